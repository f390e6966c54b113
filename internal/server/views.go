package server

import (
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(s.cfg.Title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatusText returns the overall status as plain text.
func (s *Server) handleStatusText(w http.ResponseWriter, r *http.Request) {
	status := s.svc.Status()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(status.String())); err != nil {
		s.logger.Error("failed to write status response", "error", err)
	}
}

// handleStatus returns the full snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.svc.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleSSE streams probe updates via Server-Sent Events.
//
// The first event ("snapshot") carries the full state; every following
// event ("probe") carries one updated probe and the overall status.
// Writes use deadlines so a slow or gone client cannot pin the handler.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeEvent := func(event string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("failed to encode sse event", "event", event, "error", err)
			return nil
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe before the snapshot so no update falls in between
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	if err := writeEvent("snapshot", s.svc.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case update, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent("probe", update); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
