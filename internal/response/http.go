// Package response holds the JSON envelopes served by the read-only API.
package response

// APIResponse wraps migration status and schema report payloads.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// ErrorResponse carries a client-safe message; internal causes are only logged.
type ErrorResponse struct {
	Error string `json:"error"`
}
