package report

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/beacon/internal/store"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	values []ForwardValue
}

func (d *recordingDispatcher) Dispatch(fv ForwardValue) {
	d.mu.Lock()
	d.values = append(d.values, fv)
	d.mu.Unlock()
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.values)
}

type countingRecorder struct {
	mu         sync.Mutex
	reports    map[string]int
	flushes    map[Outcome]int
	superseded int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{reports: map[string]int{}, flushes: map[Outcome]int{}}
}

func (r *countingRecorder) ObserveReport(kind Kind, outcome Outcome) {
	r.mu.Lock()
	r.reports[fmt.Sprintf("%s/%s", kind, outcome)]++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveFlush(outcome Outcome) {
	r.mu.Lock()
	r.flushes[outcome]++
	r.mu.Unlock()
}

func (r *countingRecorder) ObserveSuperseded(Kind) {
	r.mu.Lock()
	r.superseded++
	r.mu.Unlock()
}

type fixture struct {
	svc        *Service
	store      *store.MemoryStore
	dispatcher *recordingDispatcher
	recorder   *countingRecorder
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := testRegistry(t)
	f := &fixture{
		store:      store.NewMemoryStore(reg, store.DefaultThresholds()),
		dispatcher: &recordingDispatcher{},
		recorder:   newCountingRecorder(),
		now:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(reg, f.store,
		WithDispatcher(f.dispatcher),
		WithRecorder(f.recorder),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func TestService_LoadReportAccepted(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.svc.SubmitReport("api", "worker-1", goodLoad())
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	require.NotNil(t, receipt.Forward)
	assert.Equal(t, "r1", receipt.Forward.ReplicaID)
	assert.Equal(t, store.StatusHealthy, receipt.Forward.Status)
	assert.Equal(t, int64(10), receipt.Forward.IntervalSeconds)

	r, ok := f.svc.Snapshot().Replica("api", "worker-1", "r1")
	require.True(t, ok)
	require.NotNil(t, r.Load)
	assert.Equal(t, 0.42, r.Load.CPU)
	assert.Equal(t, 0.77, r.Load.RAM)
	assert.Equal(t, f.now, *r.ReportedAt)

	assert.Equal(t, 1, f.dispatcher.count())
	assert.Equal(t, 1, f.recorder.reports["load/accepted"])
}

func TestService_HealthReportAccepted(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.svc.SubmitReport("api", "gateway", HealthReport{
		Replica: "default", Interval: 10 * time.Second, Health: store.StatusSick,
	})
	require.NoError(t, err)
	assert.True(t, receipt.Applied)
	assert.Nil(t, receipt.Forward)

	snap := f.svc.Snapshot()
	r, ok := snap.Replica("api", "gateway", "default")
	require.True(t, ok)
	assert.Equal(t, store.StatusSick, r.Health)
	assert.Equal(t, store.StatusSick, r.Status)

	// health reports never reach plugins
	assert.Equal(t, 0, f.dispatcher.count())
}

func TestService_Example(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit("api", "worker-1",
		[]byte(`{"replica":"r1","interval":10,"load":{"cpu":0.42,"ram":0.77}}`))
	require.NoError(t, err)

	r, ok := f.svc.Snapshot().Replica("api", "worker-1", "r1")
	require.True(t, ok)
	assert.Equal(t, 0.42, r.Load.CPU)

	_, err = f.svc.Submit("api", "worker-1",
		[]byte(`{"replica":"r1","interval":10,"health":"healthy"}`))
	assert.Equal(t, OutcomeWrongMode, OutcomeOf(err))

	_, err = f.svc.Submit("unknown", "worker-1",
		[]byte(`{"replica":"r1","interval":10,"load":{"cpu":0.42,"ram":0.77}}`))
	assert.Equal(t, OutcomeNotFound, OutcomeOf(err))
}

func TestService_RejectionsLeaveStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitReport("api", "worker-1", goodLoad())
	require.NoError(t, err)
	before := f.svc.Snapshot()

	f.now = f.now.Add(time.Second)
	_, err = f.svc.SubmitReport("api", "worker-1", goodHealth())
	assert.ErrorIs(t, err, ErrWrongMode)
	_, err = f.svc.SubmitReport("api", "gateway", goodLoad())
	assert.ErrorIs(t, err, ErrWrongMode)
	_, err = f.svc.Submit("api", "worker-1", []byte(`{"replica":"r1"}`))
	assert.ErrorIs(t, err, ErrMalformed)

	assert.Equal(t, before, f.svc.Snapshot())
	assert.Equal(t, 1, f.dispatcher.count())
	assert.Equal(t, 2, f.recorder.reports["health/wrong_mode"]+f.recorder.reports["load/wrong_mode"])
	assert.Equal(t, 1, f.recorder.reports["/bad_request"])
}

func TestService_FlushSupersedesInFlightReport(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitReport("api", "worker-1", goodLoad())
	require.NoError(t, err)

	// a report classified before the flush...
	ticket, err := f.svc.Prepare("api", "worker-1", LoadReport{Replica: "r1", Interval: 10 * time.Second, CPU: 0.99, RAM: 0.99})
	require.NoError(t, err)

	require.NoError(t, f.svc.SubmitFlush("api", "worker-1", "r1"))

	// ...must not resurrect data once applied after it
	receipt, err := f.svc.Apply(ticket)
	require.NoError(t, err)
	assert.False(t, receipt.Applied)
	assert.Nil(t, receipt.Forward)

	r, ok := f.svc.Snapshot().Replica("api", "worker-1", "r1")
	require.True(t, ok)
	assert.Nil(t, r.Load)
	assert.Nil(t, r.ReportedAt)
	assert.Equal(t, uint64(1), r.Generation)
	assert.Equal(t, 1, f.dispatcher.count())
	assert.Equal(t, 1, f.recorder.superseded)

	// a report prepared after the flush applies normally
	receipt, err = f.svc.SubmitReport("api", "worker-1", goodLoad())
	require.NoError(t, err)
	assert.True(t, receipt.Applied)

	r, _ = f.svc.Snapshot().Replica("api", "worker-1", "r1")
	require.NotNil(t, r.Load)
	assert.Equal(t, 0.42, r.Load.CPU)
}

func TestService_Flush(t *testing.T) {
	f := newFixture(t)

	// declared replica that never reported
	require.NoError(t, f.svc.SubmitFlush("api", "worker-1", "r1"))

	// undeclared replica that never reported
	err := f.svc.SubmitFlush("api", "worker-1", "r7")
	assert.ErrorIs(t, err, ErrNotFound)

	// undeclared replica known from a report
	_, err = f.svc.SubmitReport("api", "worker-1", LoadReport{Replica: "r7", Interval: time.Second, CPU: 0.1, RAM: 0.1})
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitFlush("api", "worker-1", "r7"))

	// local nodes can be flushed too
	_, err = f.svc.SubmitReport("api", "gateway", goodHealth())
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitFlush("api", "gateway", "default"))

	err = f.svc.SubmitFlush("nope", "worker-1", "r1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 3, f.recorder.flushes[OutcomeAccepted])
	assert.Equal(t, 2, f.recorder.flushes[OutcomeNotFound])

	node := f.svc.Snapshot().Probes[0].Nodes[0]
	assert.Equal(t, store.StatusDead, node.Status)
}

func TestService_ConcurrentReplicas(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	replicas := 8
	reports := 50
	for i := 0; i < replicas; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replica := fmt.Sprintf("r%d", i)
			for j := 1; j <= reports; j++ {
				_, err := f.svc.SubmitReport("api", "worker-1", LoadReport{
					Replica:  replica,
					Interval: 10 * time.Second,
					CPU:      float64(i),
					RAM:      float64(j),
				})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	node := f.svc.Snapshot().Probes[0].Nodes[0]
	require.Len(t, node.Replicas, replicas)
	for _, r := range node.Replicas {
		var i int
		_, err := fmt.Sscanf(r.ID, "r%d", &i)
		require.NoError(t, err)
		assert.Equal(t, float64(i), r.Load.CPU, "replica %s cpu", r.ID)
		assert.Equal(t, float64(reports), r.Load.RAM, "replica %s ram", r.ID)
	}
	assert.Equal(t, replicas*reports, f.dispatcher.count())
}

func TestService_DisableEnable(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Disable("api")
	assert.True(t, res.OK)
	assert.Equal(t, store.StatusHealthy, f.svc.Status())

	res = f.svc.Disable("unknown")
	assert.False(t, res.OK)

	res = f.svc.Enable("api")
	assert.True(t, res.OK)
	assert.Equal(t, store.StatusDead, f.svc.Status())

	res = f.svc.Enable("api")
	assert.False(t, res.OK)
}

func TestService_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	metric := gen.Float64Range(0, 4)
	replica := gen.Identifier()
	interval := gen.IntRange(1, 3600)

	properties.Property("push nodes accept load and reflect it", prop.ForAll(
		func(replica string, cpu, ram float64, secs int) bool {
			f := newFixture(t)
			rep := LoadReport{Replica: replica, Interval: time.Duration(secs) * time.Second, CPU: cpu, RAM: ram}
			if _, err := f.svc.SubmitReport("api", "worker-1", rep); err != nil {
				return false
			}
			r, ok := f.svc.Snapshot().Replica("api", "worker-1", replica)
			return ok && r.Load != nil && r.Load.CPU == cpu && r.Load.RAM == ram
		},
		replica, metric, metric, interval,
	))

	properties.Property("push nodes refuse health without mutation", prop.ForAll(
		func(replica string, secs int) bool {
			f := newFixture(t)
			before := f.svc.Snapshot()
			rep := HealthReport{Replica: replica, Interval: time.Duration(secs) * time.Second, Health: store.StatusHealthy}
			_, err := f.svc.SubmitReport("api", "worker-1", rep)
			return OutcomeOf(err) == OutcomeWrongMode && assert.ObjectsAreEqual(before, f.svc.Snapshot())
		},
		replica, interval,
	))

	properties.Property("local nodes accept health and refuse load", prop.ForAll(
		func(replica string, cpu float64, secs int) bool {
			f := newFixture(t)
			d := time.Duration(secs) * time.Second
			if _, err := f.svc.SubmitReport("api", "gateway", HealthReport{Replica: replica, Interval: d, Health: store.StatusSick}); err != nil {
				return false
			}
			before := f.svc.Snapshot()
			_, err := f.svc.SubmitReport("api", "gateway", LoadReport{Replica: replica, Interval: d, CPU: cpu, RAM: cpu})
			return OutcomeOf(err) == OutcomeWrongMode && assert.ObjectsAreEqual(before, f.svc.Snapshot())
		},
		replica, metric, interval,
	))

	properties.Property("unknown targets are not found for any body", prop.ForAll(
		func(probe, node string, body []byte) bool {
			f := newFixture(t)
			if probe == "api" {
				probe = "api-unknown"
			}
			_, err := f.svc.Submit(probe, node, body)
			return OutcomeOf(err) == OutcomeNotFound
		},
		gen.AlphaString(), gen.AlphaString(), gen.SliceOf(gen.UInt8()),
	))

	properties.Property("flush blocks earlier generations only", prop.ForAll(
		func(flushes int) bool {
			f := newFixture(t)
			stale, err := f.svc.Prepare("api", "worker-1", goodLoad())
			if err != nil {
				return false
			}
			for i := 0; i < flushes; i++ {
				if err := f.svc.SubmitFlush("api", "worker-1", "r1"); err != nil {
					return false
				}
			}
			fresh, err := f.svc.Prepare("api", "worker-1", goodLoad())
			if err != nil {
				return false
			}

			staleReceipt, _ := f.svc.Apply(stale)
			freshReceipt, _ := f.svc.Apply(fresh)
			return !staleReceipt.Applied && freshReceipt.Applied
		},
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
