// Package server exposes a timeline session over HTTP for an editing UI:
// block edits, evaluation at arbitrary times, playback control, exports and
// a websocket frame stream.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joyeues/wordflow-animation-lab/internal/clock"
	"github.com/joyeues/wordflow-animation-lab/internal/playback"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

// Server routes API requests to a playback session.
type Server struct {
	session *playback.Session
	hub     *Hub
	router  *mux.Router
}

// New creates a server for session and starts its frame hub.
func New(session *playback.Session) *Server {
	s := &Server{
		session: session,
		hub:     NewHub(session),
	}
	s.hub.control = func(action string, req ControlRequest) error {
		_, err := s.control(action, req)
		return err
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close disconnects all websocket clients.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scene", s.GetScene).Methods(http.MethodGet)
	api.HandleFunc("/config", s.PutConfig).Methods(http.MethodPut)
	api.HandleFunc("/blocks", s.CreateBlock).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id}", s.GetBlock).Methods(http.MethodGet)
	api.HandleFunc("/blocks/{id}", s.PatchBlock).Methods(http.MethodPatch)
	api.HandleFunc("/blocks/{id}", s.DeleteBlock).Methods(http.MethodDelete)
	api.HandleFunc("/blocks/{id}/select", s.SelectBlock).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id}/select", s.DeselectBlock).Methods(http.MethodDelete)
	api.HandleFunc("/evaluate", s.Evaluate).Methods(http.MethodGet)
	api.HandleFunc("/playback", s.GetPlayback).Methods(http.MethodGet)
	api.HandleFunc("/playback/{action}", s.Playback).Methods(http.MethodPost)
	api.HandleFunc("/export", s.Export).Methods(http.MethodGet)
	api.HandleFunc("/export/qr", s.ExportQR).Methods(http.MethodGet)
	api.HandleFunc("/ruler", s.Ruler).Methods(http.MethodGet)

	r.HandleFunc("/ws/playback", s.hub.ServeWS)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[!] server: encode response: %v", err)
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, timeline.ErrBlockNotFound):
		status = http.StatusNotFound
	case errors.Is(err, timeline.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, timeline.ErrTypeMismatch),
		errors.Is(err, timeline.ErrInvalidPatch),
		errors.Is(err, clock.ErrInvalidTime),
		errors.Is(err, clock.ErrInvalidSpeed),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errUnknownAction):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("[!] server: %v", err)
	}
	http.Error(w, err.Error(), status)
}
