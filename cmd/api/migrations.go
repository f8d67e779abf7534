package main

import (
	"net/http"

	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/response"
)

func (app *application) handleGetMigrations(w http.ResponseWriter, r *http.Request) {
	statuses, err := app.migrations.Status(r.Context())
	if err != nil {
		app.logger.Error(component, "Failed to read migration status: error=%v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to read migration status")
		return
	}

	writeJSON(w, http.StatusOK, response.APIResponse[[]migrate.Status]{
		Success: true,
		Data:    statuses,
	})
}

func (app *application) handleGetPendingMigrations(w http.ResponseWriter, r *http.Request) {
	pending, err := app.migrations.Pending(r.Context())
	if err != nil {
		app.logger.Error(component, "Failed to read pending migrations: error=%v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to read pending migrations")
		return
	}
	if pending == nil {
		pending = []migrate.Status{}
	}

	writeJSON(w, http.StatusOK, response.APIResponse[[]migrate.Status]{
		Success: true,
		Message: pendingMessage(len(pending)),
		Data:    pending,
	})
}

func pendingMessage(n int) string {
	if n == 0 {
		return "schema is up to date"
	}
	return ""
}
