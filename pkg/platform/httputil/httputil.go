// Package httputil holds the JSON response and request helpers shared by the
// HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "github.com/cheya01/facial-recog-poc-server/pkg/domain-errors"
)

// maxJSONBody bounds JSON request bodies; uploads go through multipart parsing.
const maxJSONBody = 1 << 20

// Validatable is implemented by request bodies that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a status and a JSON body of the
// form {"error": code, "error_description": message}. Server-side failures
// omit the description so storage or upstream details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	body := map[string]string{"error": string(code)}
	if status < http.StatusInternalServerError {
		if msg := dErrors.MessageOf(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, status, body)
}

// StatusFor maps a domain code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes a JSON body into T and runs its validation. On
// failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid json body"))
		return nil, false
	}
	if err := PT(&req).Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}
