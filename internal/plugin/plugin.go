package plugin

import (
	"context"

	"github.com/jpalmerr/beacon/internal/report"
)

// Plugin consumes forward values of applied load reports.
type Plugin interface {
	// Name identifies the plugin in logs and metrics.
	Name() string
	// Handle processes one forward value. Returned errors are logged.
	Handle(ctx context.Context, fv report.ForwardValue) error
}

// Observer is notified of dispatch results, typically for metrics.
type Observer interface {
	// ObserveDispatch records a plugin call result: "ok", "error" or "panic".
	ObserveDispatch(plugin, result string)
	// ObserveDropped records a forward value dropped by a full queue.
	ObserveDropped()
}

type nopObserver struct{}

func (nopObserver) ObserveDispatch(string, string) {}
func (nopObserver) ObserveDropped()                {}

// Func adapts a callback to the [Plugin] interface.
type Func struct {
	name string
	fn   func(report.ForwardValue)
}

// NewFunc wraps fn as a plugin called name.
func NewFunc(name string, fn func(report.ForwardValue)) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the plugin name.
func (f *Func) Name() string { return f.name }

// Handle calls the wrapped callback.
func (f *Func) Handle(_ context.Context, fv report.ForwardValue) error {
	f.fn(fv)
	return nil
}
