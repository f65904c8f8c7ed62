package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentloop/internal/database"
	"rentloop/internal/models"
	"rentloop/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps core error kinds to response codes. Denied
// access surfaces as 404 so callers cannot probe for resources they
// may not see.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrItemNotFound),
		errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrRequestNotFound),
		errors.Is(err, service.ErrAccessDenied),
		errors.Is(err, service.ErrSelfBooking):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrItemNotAvailable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidPageParams),
		errors.Is(err, service.ErrEmptyComment),
		errors.Is(err, service.ErrCommentNotAllowed),
		errors.Is(err, models.ErrUnknownState):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrEmailExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
