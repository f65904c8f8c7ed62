package api

import (
	"encoding/json"
	"net/http"

	"rentloop/internal/models"
)

// handleUsers serves POST /users and GET /users. User creation is the
// one endpoint that needs no identity header.
func (s *HTTPServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var user models.User
		if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := s.users.Create(r.Context(), &user)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		users, err := s.users.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUserByID serves GET, PATCH and DELETE /users/{id}.
func (s *HTTPServer) handleUserByID(w http.ResponseWriter, r *http.Request) {
	userID, suffix, err := pathID(r.URL.Path, "/users/")
	if err != nil || suffix != "" {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.users.Get(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)

	case http.MethodPatch:
		var patch models.UserPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := s.users.Update(r.Context(), userID, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)

	case http.MethodDelete:
		if err := s.users.Delete(r.Context(), userID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
