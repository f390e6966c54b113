package store

import (
	"sync"
	"time"

	"github.com/jpalmerr/beacon/internal/registry"
)

// MemoryStore is an in-memory implementation of [Store].
//
// All runtime state lives in a single [States] value guarded by one RWMutex.
// Readers copy what they need under the read lock; writers mutate through
// [MemoryStore.WithWrite]. Probe updates are built while the lock is held and
// delivered to subscribers after it is released.
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	mu     sync.RWMutex
	states *States

	subscribers map[chan ProbeUpdate]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a store holding one entry per registry probe.
func NewMemoryStore(reg *registry.Registry, th Thresholds) *MemoryStore {
	return &MemoryStore{
		states:      NewStates(reg, th),
		subscribers: make(map[chan ProbeUpdate]struct{}),
	}
}

// Snapshot returns a consistent copy of all state.
//
// The returned value shares nothing with the store.
func (m *MemoryStore) Snapshot() StatesView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states.View()
}

// Status returns the overall status.
func (m *MemoryStore) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states.Status
}

// Generation returns the current flush generation of a replica.
// Unknown replicas are at generation 0.
func (m *MemoryStore) Generation(probeID, nodeID, replicaID string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.states.Replica(probeID, nodeID, replicaID)
	if !ok {
		return 0
	}
	return r.Generation
}

// WithWrite runs fn with exclusive access to the states and returns its error.
//
// fn must not block: no I/O, rendering or dispatch. Probes marked with
// [States.Touch] are published to subscribers once the lock is released,
// whether or not fn returned an error.
func (m *MemoryStore) WithWrite(fn func(*States) error) error {
	m.mu.Lock()
	err := fn(m.states)
	updates := m.collectUpdates()
	m.mu.Unlock()

	m.notifySubscribers(updates)
	return err
}

// Refresh recomputes every derived status at now, so replicas that stopped
// reporting turn dead.
func (m *MemoryStore) Refresh(now time.Time) {
	_ = m.WithWrite(func(s *States) error {
		s.RecomputeAll(now)
		return nil
	})
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan ProbeUpdate {
	ch := make(chan ProbeUpdate, 100)
	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan ProbeUpdate) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// collectUpdates builds the updates for touched probes. Caller holds m.mu.
func (m *MemoryStore) collectUpdates() []ProbeUpdate {
	ids := m.states.takeDirty()
	if len(ids) == 0 {
		return nil
	}
	updates := make([]ProbeUpdate, 0, len(ids))
	for _, id := range ids {
		p, ok := m.states.Probe(id)
		if !ok {
			continue
		}
		updates = append(updates, ProbeUpdate{
			Status: m.states.Status,
			Probe:  m.states.probeView(p),
		})
	}
	return updates
}

// notifySubscribers sends the updates to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the message
// is dropped for that subscriber rather than blocking the write path.
func (m *MemoryStore) notifySubscribers(updates []ProbeUpdate) {
	if len(updates) == 0 {
		return
	}

	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		for _, u := range updates {
			select {
			case ch <- u:
			default:
				// subscriber is slow, drop the message
			}
		}
	}
}
