package main

import (
	"net/http"

	"github.com/farxc/pgben-schema/internal/diagnose"
	"github.com/farxc/pgben-schema/internal/response"
)

type schemaReport struct {
	*diagnose.Report
	Problems []diagnose.Problem `json:"problems"`
}

func (app *application) handleGetSchemaReport(w http.ResponseWriter, r *http.Request) {
	report, err := diagnose.Collect(r.Context(), app.catalog, app.migrations)
	if err != nil {
		app.logger.Error(component, "Failed to collect schema report: error=%v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to collect schema report")
		return
	}

	problems := report.Problems()
	if problems == nil {
		problems = []diagnose.Problem{}
	}
	writeJSON(w, http.StatusOK, response.APIResponse[schemaReport]{
		Success: true,
		Data:    schemaReport{Report: report, Problems: problems},
	})
}
