package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/gather-events/events-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// requireJSON answers 415 unless the request declares a JSON body.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeError(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json", nil)
		return false
	}
	return true
}

// decodeJSON reads a single JSON object into dst, answering 400 on failure.
// The body is read whole first so it can also be fingerprinted.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes), nil)
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "MALFORMED_JSON", "could not read request body", nil)
		return nil, false
	}
	if len(raw) == 0 || !json.Valid(raw) || firstNonSpace(raw) != '{' {
		writeError(w, r, http.StatusBadRequest, "MALFORMED_JSON", "request body must be a JSON object", nil)
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "MALFORMED_JSON", "invalid request body: "+decodeErrorMessage(err), nil)
		return nil, false
	}
	return raw, true
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c
		}
	}
	return 0
}

func decodeErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field + " has the wrong type"
	}
	return err.Error()
}

// eventIDParam binds {eventId} as a UUID and returns its canonical string form.
func eventIDParam(w http.ResponseWriter, r *http.Request) (domain.EventID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "eventId", chi.URLParam(r, "eventId"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_EVENT_ID", "eventId must be a UUID", nil)
		return "", false
	}
	return domain.EventID(id.String()), true
}
