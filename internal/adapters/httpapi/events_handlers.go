package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gather-events/events-api/internal/app/events"
	"github.com/gather-events/events-api/internal/ports/out/idempotency"
)

func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := s.Events.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]eventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetEvent(w http.ResponseWriter, r *http.Request) {
	caller := s.Auth.Optional(r)
	r = r.WithContext(WithIdentity(r.Context(), caller))

	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.Events.Get(r.Context(), caller.Subject, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventViewResponse(view))
}

func (s *Server) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := s.Auth.Required(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	r = r.WithContext(WithIdentity(r.Context(), caller))

	if !validIdempotencyKey(r) {
		writeError(w, r, http.StatusBadRequest, "INVALID_IDEMPOTENCY_KEY", "Idempotency-Key must be at most 255 characters", nil)
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var in events.RawEvent
	raw, ok := decodeJSON(w, r, &in)
	if !ok {
		return
	}

	call, keyed := newIdempotentCall(s.Idem, r, caller.Subject, "/events", raw)
	if keyed {
		outcome, stored, err := call.check(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		switch outcome {
		case replayConflict:
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		case replayStored:
			writeReplay(w, stored)
			return
		}
	}

	created, err := s.Events.Create(r.Context(), caller.Subject, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := toEventResponse(created)

	if keyed {
		if b, err := json.Marshal(resp); err == nil {
			rec := idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        append(b, '\n'),
			}
			if err := call.remember(r.Context(), rec); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("storing idempotent response")
			}
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateEvent serves both PATCH and PUT; either way only supplied fields change.
func (s *Server) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := s.Auth.Required(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	r = r.WithContext(WithIdentity(r.Context(), caller))

	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var in events.RawEvent
	if _, ok := decodeJSON(w, r, &in); !ok {
		return
	}

	updated, err := s.Events.Update(r.Context(), caller.Subject, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(updated))
}

func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := s.Auth.Required(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	r = r.WithContext(WithIdentity(r.Context(), caller))

	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	if err := s.Events.Delete(r.Context(), caller.Subject, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AttendEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := s.Auth.Required(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	r = r.WithContext(WithIdentity(r.Context(), caller))

	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	att, err := s.Events.Attend(r.Context(), caller.Subject, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Message: "Attending event", AttendeeCount: att.AttendeeCount})
}

func (s *Server) UnattendEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := s.Auth.Required(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	r = r.WithContext(WithIdentity(r.Context(), caller))

	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	att, err := s.Events.Unattend(r.Context(), caller.Subject, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendanceResponse{Message: "No longer attending event", AttendeeCount: att.AttendeeCount})
}
