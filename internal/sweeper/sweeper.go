package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/beacon/internal/store"
)

const (
	DefaultInterval = 5 * time.Second
	MinInterval     = time.Second
)

// Sweeper refreshes a store on a fixed interval.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Sweeper struct {
	store    store.Store
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a [Sweeper]. Intervals below [MinInterval] are raised to it;
// zero means [DefaultInterval].
func New(st store.Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval == 0 {
		interval = DefaultInterval
	}
	// floor at 1 second to prevent CPU thrashing
	if interval < MinInterval {
		interval = MinInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    st,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Interval returns the effective sweep interval.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start begins the sweep loop in a background goroutine.
//
// The store is refreshed immediately, then on every tick until
// [Sweeper.Stop] is called or ctx is cancelled. Start is idempotent; if Stop
// was called before Start, Start is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		last := s.sweep(s.store.Status())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				last = s.sweep(last)
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit.
//
// Stop is idempotent. Calling Stop before Start is a safe no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// sweep refreshes the store and logs overall status transitions.
func (s *Sweeper) sweep(last store.Status) store.Status {
	s.store.Refresh(s.now())
	current := s.store.Status()
	if current != last {
		s.logger.Info("overall status changed", "from", last, "to", current)
	}
	return current
}
