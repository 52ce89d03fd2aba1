// Package httputil centralizes JSON response writing and domain error
// translation so every handler produces the same envelopes.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "rentalsign/pkg/domain-errors"
)

// statusByCode maps domain error codes to HTTP statuses. Pipeline-fatal codes
// surface as 500s to the synchronous caller; precondition and webhook shape
// problems are 400s.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:            http.StatusBadRequest,
	dErrors.CodeMissingFields:         http.StatusBadRequest,
	dErrors.CodeWebhookMalformed:      http.StatusBadRequest,
	dErrors.CodeNotFound:              http.StatusNotFound,
	dErrors.CodeFetchFailed:           http.StatusBadGateway,
	dErrors.CodeGenerationFailed:      http.StatusInternalServerError,
	dErrors.CodeRenderFailed:          http.StatusInternalServerError,
	dErrors.CodeAuthFailed:            http.StatusInternalServerError,
	dErrors.CodeSubmissionFailed:      http.StatusInternalServerError,
	dErrors.CodeSigningURLUnavailable: http.StatusInternalServerError,
	dErrors.CodeInternal:              http.StatusInternalServerError,
}

// ToHTTPStatus resolves the status for a domain error code.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error envelope. Internal errors omit the
// description so implementation detail never reaches API consumers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if detail := dErrors.Detail(err); detail != "" {
		body["error_description"] = detail
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// DecodeJSON decodes the request body into T. On failure it writes a
// bad_request envelope and reports false so handlers can bail early.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		logger.WarnContext(r.Context(), "invalid request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &v, true
}
