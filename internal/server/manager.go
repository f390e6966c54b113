package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/beacon/internal/store"
)

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.writeToggle(w, s.svc.Disable(chi.URLParam(r, "probe")))
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.writeToggle(w, s.svc.Enable(chi.URLParam(r, "probe")))
}

// writeToggle answers 200 whatever the outcome; a failed toggle is
// informational and carried by the message.
func (s *Server) writeToggle(w http.ResponseWriter, res store.ToggleResult) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(res.Message + "\n")); err != nil {
		s.logger.Error("failed to write toggle response", "error", err)
	}
}
