// Package api serves the browser surface: a small JSON API, a live event
// stream over WebSocket and the Prometheus endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
	triggerTimeout  = 10 * time.Second
)

// Controller is the part of controller.Controller the API drives.
type Controller interface {
	Status() controller.State
	Trigger(ctx context.Context) (controller.State, error)
	LastResult() (controller.Result, bool)
}

type StatusResponse struct {
	State          controller.State   `json:"state"`
	Text           string             `json:"text"`
	Progress       float64            `json:"progress"`
	TriggerEnabled bool               `json:"trigger_enabled"`
	Camera         *CameraInfo        `json:"camera,omitempty"`
	Clip           *ClipInfo          `json:"clip,omitempty"`
	Result         *controller.Result `json:"result,omitempty"`
	Clients        int                `json:"clients"`
}

type TriggerResponse struct {
	State controller.State `json:"state"`
	Error string           `json:"error,omitempty"`
}

type Server struct {
	ctrl     Controller
	hub      *Hub
	gatherer prometheus.Gatherer
}

func NewServer(ctrl Controller, hub *Hub, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	hub.OnTrigger(ctrl.Trigger)
	return &Server{ctrl: ctrl, hub: hub, gatherer: gatherer}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Get("/status", s.StatusHandler)
	r.Post("/trigger", s.TriggerHandler)
	r.Get("/clip/{id}", s.ClipHandler)
	r.Get("/events", s.hub.ServeWS)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))

	return r
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.hub.Snapshot()
	resp := StatusResponse{
		State:          s.ctrl.Status(),
		Text:           snap.Text,
		Progress:       snap.Progress,
		TriggerEnabled: snap.TriggerEnabled,
		Camera:         snap.Camera,
		Clip:           snap.Clip,
		Clients:        s.hub.ClientCount(),
	}
	if result, ok := s.ctrl.LastResult(); ok {
		resp.Result = &result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), triggerTimeout)
	defer cancel()

	state, err := s.ctrl.Trigger(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, controller.ErrStopped):
			status = http.StatusServiceUnavailable
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, TriggerResponse{State: state, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, TriggerResponse{State: state})
}

// ClipHandler streams the preview currently on screen. Superseded previews
// are gone from disk, so only the current ID resolves.
func (s *Server) ClipHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	clip := s.hub.CurrentClip()
	if clip.IsZero() || clip.ID != id {
		http.Error(w, "Clip not found", http.StatusNotFound)
		return
	}

	if clip.MimeType != "" {
		w.Header().Set("Content-Type", clip.MimeType)
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, clip.Path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: failed to encode response: %v", err)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("API: graceful shutdown failed: %v", err)
		return err
	}
	log.Printf("API: server stopped")
	return nil
}
