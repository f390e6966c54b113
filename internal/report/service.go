package report

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/beacon/internal/registry"
	"github.com/jpalmerr/beacon/internal/store"
)

// Dispatcher receives forward values of applied load reports.
//
// Dispatch is fire-and-forget: it must not block and its failures are never
// reported back to the report path.
type Dispatcher interface {
	Dispatch(fv ForwardValue)
}

// Recorder observes report handling outcomes, typically for metrics.
type Recorder interface {
	ObserveReport(kind Kind, outcome Outcome)
	ObserveFlush(outcome Outcome)
	ObserveSuperseded(kind Kind)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(ForwardValue) {}

type nopRecorder struct{}

func (nopRecorder) ObserveReport(Kind, Outcome) {}
func (nopRecorder) ObserveFlush(Outcome)        {}
func (nopRecorder) ObserveSuperseded(Kind)      {}

// Service ties classification, application and dispatch together.
//
// Service is safe for concurrent use. It holds no state of its own besides
// the registry and store it was built with.
type Service struct {
	registry   *registry.Registry
	store      store.Store
	dispatcher Dispatcher
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a [Service].
type Option func(*Service)

// WithDispatcher sets the plugin dispatcher for load reports.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a [Service] over a registry and the store built from it.
func NewService(reg *registry.Registry, st store.Store, opts ...Option) *Service {
	s := &Service{
		registry:   reg,
		store:      st,
		dispatcher: nopDispatcher{},
		recorder:   nopRecorder{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit decodes and submits a raw report body.
//
// The probe and node are looked up before the body is decoded, so an
// unknown target is reported as [ErrNotFound] whatever the body contains.
func (s *Service) Submit(probeID, nodeID string, body []byte) (Receipt, error) {
	if _, ok := s.registry.FindNode(probeID, nodeID); !ok {
		err := fmt.Errorf("probe %q node %q: %w", probeID, nodeID, ErrNotFound)
		s.reject("", err)
		return Receipt{}, err
	}

	rep, err := Decode(body)
	if err != nil {
		s.reject("", err, "probe", probeID, "node", nodeID)
		return Receipt{}, err
	}
	return s.SubmitReport(probeID, nodeID, rep)
}

// SubmitReport classifies and applies a decoded report.
//
// On success the report is visible to every later [store.Store.Snapshot].
// Load reports are dispatched to plugins after the store lock is released.
func (s *Service) SubmitReport(probeID, nodeID string, rep Report) (Receipt, error) {
	t, err := s.Prepare(probeID, nodeID, rep)
	if err != nil {
		return Receipt{}, err
	}
	return s.Apply(t)
}

// Prepare classifies a report and captures the replica's flush generation.
func (s *Service) Prepare(probeID, nodeID string, rep Report) (Ticket, error) {
	if _, err := Classify(s.registry, probeID, nodeID, rep); err != nil {
		s.reject(kindOf(rep), err, "probe", probeID, "node", nodeID)
		return Ticket{}, err
	}
	return Ticket{
		ProbeID:    probeID,
		NodeID:     nodeID,
		Report:     rep,
		Generation: s.store.Generation(probeID, nodeID, rep.ReplicaID()),
	}, nil
}

// Apply writes a prepared ticket into the store.
//
// A ticket whose generation predates the replica's last flush is dropped and
// the receipt reports Applied=false. Plugin dispatch happens after the write
// lock is released and only for applied load reports.
func (s *Service) Apply(t Ticket) (Receipt, error) {
	var receipt Receipt
	err := s.store.WithWrite(func(st *store.States) error {
		var err error
		receipt, err = apply(st, t, s.now())
		return err
	})

	kind := t.Report.Kind()
	if err != nil {
		s.reject(kind, err, "probe", t.ProbeID, "node", t.NodeID)
		return Receipt{}, err
	}

	s.recorder.ObserveReport(kind, OutcomeAccepted)
	if !receipt.Applied {
		s.recorder.ObserveSuperseded(kind)
		s.logger.Debug("report superseded by flush",
			"probe", t.ProbeID,
			"node", t.NodeID,
			"replica", t.Report.ReplicaID(),
			"generation", t.Generation,
		)
		return receipt, nil
	}

	if receipt.Forward != nil {
		s.dispatcher.Dispatch(*receipt.Forward)
	}
	return receipt, nil
}

// SubmitFlush resets a replica's reported state.
//
// Flush is allowed for every node mode; the only failure is [ErrNotFound].
func (s *Service) SubmitFlush(probeID, nodeID, replicaID string) error {
	node, err := ClassifyFlush(s.registry, probeID, nodeID, replicaID)
	if err == nil {
		err = s.store.WithWrite(func(st *store.States) error {
			return applyFlush(st, node, probeID, replicaID, s.now())
		})
	}

	outcome := OutcomeOf(err)
	s.recorder.ObserveFlush(outcome)
	if err != nil {
		s.logger.Debug("flush rejected",
			"probe", probeID,
			"node", nodeID,
			"replica", replicaID,
			"outcome", outcome,
			"error", err,
		)
		return err
	}

	s.logger.Info("replica flushed", "probe", probeID, "node", nodeID, "replica", replicaID)
	return nil
}

// Snapshot returns a consistent copy of the store.
func (s *Service) Snapshot() store.StatesView {
	return s.store.Snapshot()
}

// Status returns the overall status.
func (s *Service) Status() store.Status {
	return s.store.Status()
}

// Disable excludes a probe from the overall status.
func (s *Service) Disable(probeID string) store.ToggleResult {
	res := s.store.Disable(probeID)
	s.logger.Info("disable probe", "probe", probeID, "ok", res.OK, "disabled", res.Disabled)
	return res
}

// Enable includes a disabled probe in the overall status again.
func (s *Service) Enable(probeID string) store.ToggleResult {
	res := s.store.Enable(probeID)
	s.logger.Info("enable probe", "probe", probeID, "ok", res.OK, "disabled", res.Disabled)
	return res
}

// reject records and logs a refused report. Wrong-mode reports point at a
// misconfigured node and are logged as warnings.
func (s *Service) reject(kind Kind, err error, attrs ...any) {
	outcome := OutcomeOf(err)
	s.recorder.ObserveReport(kind, outcome)

	attrs = append(attrs, "kind", kind, "outcome", outcome, "error", err)
	if errors.Is(err, ErrWrongMode) {
		s.logger.Warn("report rejected", attrs...)
		return
	}
	s.logger.Debug("report rejected", attrs...)
}

func kindOf(rep Report) Kind {
	if rep == nil {
		return ""
	}
	return rep.Kind()
}
