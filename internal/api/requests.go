package api

import (
	"encoding/json"
	"net/http"
)

type createRequestRequest struct {
	Description string `json:"description"`
}

// handleRequests serves POST /requests (create) and GET /requests
// (the caller's own requests with matching items).
func (s *HTTPServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req createRequestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := s.requests.Add(r.Context(), callerID, req.Description)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodGet:
		views, err := s.requests.OwnRequests(r.Context(), callerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRequestsAll serves GET /requests/all: other users' requests,
// paginated.
func (s *HTTPServer) handleRequestsAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, size, err := s.pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, err := s.requests.AllRequests(r.Context(), callerID, from, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleRequestByID serves GET /requests/{id}.
func (s *HTTPServer) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	callerID, err := s.callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID, suffix, err := pathID(r.URL.Path, "/requests/")
	if err != nil || suffix != "" {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	view, err := s.requests.Get(r.Context(), requestID, callerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
