// Package server exposes the presence service over HTTP. It is a thin
// translation layer: decode, call the service, encode. No business logic
// lives here.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/burrowhq/presence/internal/presence"
	"github.com/burrowhq/presence/pkg/directory"
)

// Server routes HTTP requests to a presence service.
type Server struct {
	svc    *presence.Service
	router chi.Router
}

// New creates the HTTP server for a presence service.
func New(svc *presence.Service) *Server {
	s := &Server{svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/api/ping", s.handlePing)
	r.Get("/api/users", s.handleListUsers)
	r.Get("/api/users/map", s.handleUsersInBoundary)
	r.Post("/api/status", s.handleUpdateStatus)
	r.Delete("/api/location", s.handleClearLocation)
	r.Get("/api/stream", s.handleStream)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	reply, record, err := s.svc.ConnectionTest(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply":  reply,
		"status": record,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsPayload(records))
}

func (s *Server) handleUsersInBoundary(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.UsersInBoundary(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsPayload(records))
}

// updateStatusRequest is the wire form of a status write. Longitude and
// latitude must be supplied together or not at all; a record is never
// partially geolocated.
type updateStatusRequest struct {
	Username  string   `json:"username"`
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if (req.Longitude == nil) != (req.Latitude == nil) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("longitude and latitude must be supplied together"))
		return
	}

	update := presence.UpdateRequest{
		Username: req.Username,
		Status:   directory.Status(req.Status),
		Message:  req.Message,
	}
	if req.Longitude != nil {
		update.Location = &directory.Location{
			Longitude: *req.Longitude,
			Latitude:  *req.Latitude,
		}
	}

	record, err := s.svc.UpdateStatus(r.Context(), update)
	if err != nil {
		// Validation failures surface verbatim; the service rejects them
		// before any side effect.
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleClearLocation(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if err := s.svc.ClearLocation(r.Context(), username); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStream streams broadcast messages as server-sent events for the
// lifetime of the connection. The observer is deregistered as soon as the
// client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	obs, err := s.svc.SubscribeBroadcast(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	defer obs.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Printf("[Server] Observer %s connected", obs.ID())
	for {
		select {
		case <-r.Context().Done():
			log.Printf("[Server] Observer %s disconnected", obs.ID())
			return
		case msg, ok := <-obs.Messages():
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// recordsPayload keeps an empty tenant rendering as [] rather than null.
func recordsPayload(records []*directory.StatusRecord) []*directory.StatusRecord {
	if records == nil {
		return []*directory.StatusRecord{}
	}
	return records
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
