package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/beacon/internal/report"
)

// statusCode maps a report outcome to its HTTP status.
func statusCode(outcome report.Outcome) int {
	switch outcome {
	case report.OutcomeAccepted:
		return http.StatusOK
	case report.OutcomeWrongMode:
		return http.StatusPreconditionFailed
	case report.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// handleReport accepts a load or health report for a node.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	probeID := chi.URLParam(r, "probe")
	nodeID := chi.URLParam(r, "node")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReportSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "report body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read report body", http.StatusBadRequest)
		return
	}

	_, err = s.svc.Submit(probeID, nodeID, body)
	w.WriteHeader(statusCode(report.OutcomeOf(err)))
}

// handleFlush resets a replica.
func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	err := s.svc.SubmitFlush(
		chi.URLParam(r, "probe"),
		chi.URLParam(r, "node"),
		chi.URLParam(r, "replica"),
	)
	w.WriteHeader(statusCode(report.OutcomeOf(err)))
}
