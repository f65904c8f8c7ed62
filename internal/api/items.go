package api

import (
	"encoding/json"
	"net/http"

	"rentloop/internal/models"
)

type commentRequest struct {
	Text string `json:"text"`
}

// handleItems serves POST /items (create) and GET /items (the
// caller's items, annotated with last/next bookings).
func (s *HTTPServer) handleItems(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPost:
		var item models.Item
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := s.items.Create(r.Context(), &item, callerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		details, err := s.items.ListByOwner(r.Context(), callerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, details)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleItemsSearch serves GET /items/search?text=...
func (s *HTTPServer) handleItemsSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	items, err := s.items.Search(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleItemSubtree serves /items/{id} (GET, PATCH, DELETE) and
// /items/{id}/comment (POST).
func (s *HTTPServer) handleItemSubtree(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	itemID, suffix, err := pathID(r.URL.Path, "/items/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if suffix == "comment" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.addComment(w, r, callerID, itemID)
		return
	}
	if suffix != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := s.items.Get(r.Context(), itemID, callerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)

	case http.MethodPatch:
		var patch models.ItemPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := s.items.Update(r.Context(), itemID, callerID, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case http.MethodDelete:
		if err := s.items.Delete(r.Context(), itemID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) addComment(w http.ResponseWriter, r *http.Request, callerID, itemID int64) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := s.items.AddComment(r.Context(), callerID, itemID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}
