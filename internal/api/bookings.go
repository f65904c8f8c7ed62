package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"rentloop/internal/domain"
	"rentloop/internal/models"

	"github.com/google/uuid"
)

var errUnknownApproved = errors.New("approved must be true or false")

type createBookingRequest struct {
	ItemID int64     `json:"item_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// handleBookings serves POST /bookings (create) and GET /bookings
// (the caller's own bookings, filtered by state).
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req createBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		candidate := &models.Booking{
			ItemID: req.ItemID,
			Start:  req.Start,
			End:    req.End,
		}
		view, err := s.bookings.Create(r.Context(), candidate, callerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)

	case http.MethodGet:
		s.listBookings(w, r, callerID, domain.RoleBooker)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleBookingsOwner serves GET /bookings/owner: bookings on items
// the caller owns.
func (s *HTTPServer) handleBookingsOwner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.listBookings(w, r, callerID, domain.RoleOwner)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request, callerID int64, role domain.Role) {
	from, size, err := s.pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, err := s.bookings.List(r.Context(), callerID, role, r.URL.Query().Get("state"), from, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleBookingsExport serves POST /bookings/export: queue an XLSX
// report of the bookings on the caller's items.
func (s *HTTPServer) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := models.ExportTask{
		ID:          uuid.NewString(),
		OwnerID:     callerID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.exports.EnqueueExport(r.Context(), task); err != nil {
		s.logger.Error().Err(err).Int64("owner_id", callerID).Msg("failed to enqueue export")
		writeError(w, http.StatusInternalServerError, "failed to enqueue export")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": task.ID})
}

// handleBookingByID serves GET /bookings/{id} and
// PATCH /bookings/{id}?approved=true|false.
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookingID, suffix, err := pathID(r.URL.Path, "/bookings/")
	if err != nil || suffix != "" {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := s.bookings.Get(r.Context(), bookingID, callerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case http.MethodPatch:
		approved, err := parseApproved(r.URL.Query().Get("approved"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		view, err := s.bookings.Decide(r.Context(), bookingID, callerID, approved)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func parseApproved(raw string) (bool, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errUnknownApproved
}
