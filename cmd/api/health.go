package main

import (
	"context"
	"net/http"
	"time"
)

var version = "0.1.0"

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := map[string]string{
		"status":  "available",
		"version": version,
	}
	status := http.StatusOK
	if err := app.db.PingContext(ctx); err != nil {
		app.logger.Warn(component, "Health check failed: error=%v", err)
		data["status"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if err := writeJSON(w, status, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
