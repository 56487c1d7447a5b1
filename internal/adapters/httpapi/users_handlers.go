package httpapi

import (
	"net/http"

	"github.com/gather-events/events-api/internal/app/users"
)

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var in users.RegisterInput
	if _, ok := decodeJSON(w, r, &in); !ok {
		return
	}
	sess, err := s.Users.Register(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: toUserResponse(sess.User), Access: sess.AccessToken})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var in users.LoginInput
	if _, ok := decodeJSON(w, r, &in); !ok {
		return
	}
	sess, err := s.Users.Login(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: toUserResponse(sess.User), Access: sess.AccessToken})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	caller, err := s.Auth.Required(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	r = r.WithContext(WithIdentity(r.Context(), caller))

	u, err := s.Users.Profile(r.Context(), caller.Subject)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}
