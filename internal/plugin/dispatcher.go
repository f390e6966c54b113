package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/jpalmerr/beacon/internal/report"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// Dispatcher hands forward values to plugins on a fixed worker pool.
//
// [Dispatcher.Dispatch] never blocks: values are queued on a bounded channel
// and dropped when it is full. Every plugin sees every queued value; values
// are not ordered across workers.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Dispatcher struct {
	plugins  []Plugin
	queue    chan report.ForwardValue
	workers  int
	observer Observer
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.RWMutex
	started bool
	stopped bool
}

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithWorkers sets the number of workers. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the queue capacity. Values below 1 are ignored.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan report.ForwardValue, n)
		}
	}
}

// WithObserver sets the dispatch observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a [Dispatcher] for the given plugins.
//
// The dispatcher must be started with [Dispatcher.Start] and stopped with
// [Dispatcher.Stop]. Values dispatched before Start wait in the queue.
func NewDispatcher(plugins []Plugin, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		plugins:  plugins,
		queue:    make(chan report.ForwardValue, DefaultQueueSize),
		workers:  DefaultWorkers,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers.
//
// Plugin calls keep the values of ctx but not its cancellation: values
// already queued are still delivered by Stop's drain.
//
// Start is idempotent. If Stop was called before Start, Start is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for fv := range d.queue {
				for _, p := range d.plugins {
					d.call(ctx, p, fv)
				}
			}
		}()
	}
}

// Dispatch queues a forward value for every plugin.
//
// Dispatch never blocks. When the queue is full, or the dispatcher is
// stopped, the value is dropped and counted.
func (d *Dispatcher) Dispatch(fv report.ForwardValue) {
	if len(d.plugins) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.observer.ObserveDropped()
		return
	}

	select {
	case d.queue <- fv:
	default:
		d.observer.ObserveDropped()
		d.logger.Warn("plugin queue full, dropping forward value",
			"probe", fv.ProbeID,
			"node", fv.NodeID,
			"replica", fv.ReplicaID,
		)
	}
}

// Stop closes the queue, lets the workers drain it and waits for them.
//
// Stop is idempotent and safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	for _, p := range d.plugins {
		if c, ok := p.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// call runs one plugin and records the result.
func (d *Dispatcher) call(ctx context.Context, p Plugin, fv report.ForwardValue) {
	err := d.safeHandle(ctx, p, fv)
	switch {
	case err == nil:
		d.observer.ObserveDispatch(p.Name(), "ok")
	case isPanic(err):
		d.observer.ObserveDispatch(p.Name(), "panic")
	default:
		d.observer.ObserveDispatch(p.Name(), "error")
		d.logger.Warn("plugin failed",
			"plugin", p.Name(),
			"probe", fv.ProbeID,
			"node", fv.NodeID,
			"replica", fv.ReplicaID,
			"error", err,
		)
	}
}

type panicError struct {
	correlationID string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("plugin panic (correlation_id: %s)", e.correlationID)
}

func isPanic(err error) bool {
	_, ok := err.(*panicError)
	return ok
}

// safeHandle calls the plugin with panic recovery.
// If the plugin panics, it logs the full stack trace with a correlation ID.
func (d *Dispatcher) safeHandle(ctx context.Context, p Plugin, fv report.ForwardValue) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			d.logger.Error("plugin panic",
				"plugin", p.Name(),
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = &panicError{correlationID: correlationID}
		}
	}()
	return p.Handle(ctx, fv)
}
