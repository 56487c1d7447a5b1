package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gather-events/events-api/internal/app/events"
	"github.com/gather-events/events-api/internal/app/users"
)

type errorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	RequestID string         `json:"requestId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	zerolog.Ctx(r.Context()).Warn().Int("status", status).Str("code", code).Msg(message)
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
		Details:   details,
	})
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="events-api"`)
	writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
}

// writeServiceError maps expected application errors to their status. Anything else
// is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ee *events.Error
	if errors.As(err, &ee) && ee.Status >= 400 && ee.Status < 500 {
		if ee.Status == http.StatusUnauthorized {
			writeUnauthorized(w, r)
			return
		}
		writeError(w, r, ee.Status, ee.Code, ee.Message, ee.Details)
		return
	}
	var ue *users.Error
	if errors.As(err, &ue) && ue.Status >= 400 && ue.Status < 500 {
		writeError(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("unexpected error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:     "internal error",
		Code:      "INTERNAL",
		RequestID: middleware.GetReqID(r.Context()),
	})
}
