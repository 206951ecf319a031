package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dtgoitia/healthsync/internal/changequeue"
	"github.com/dtgoitia/healthsync/internal/config"
	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/kv"
	"github.com/dtgoitia/healthsync/internal/localstore"
	"github.com/dtgoitia/healthsync/internal/metricstore"
	"github.com/dtgoitia/healthsync/internal/remote"
	"github.com/dtgoitia/healthsync/internal/settingsstore"
	"github.com/dtgoitia/healthsync/internal/symptomstore"
	"github.com/dtgoitia/healthsync/internal/syncengine"
	"github.com/dtgoitia/healthsync/internal/trie"
)

type stubRemote struct{}

func (stubRemote) CreateSymptom(context.Context, domain.Symptom) error       { return nil }
func (stubRemote) UpdateSymptom(context.Context, domain.Symptom) error       { return nil }
func (stubRemote) DeleteSymptom(context.Context, string, time.Time) error    { return nil }
func (stubRemote) CreateMetric(context.Context, domain.Metric) error         { return nil }
func (stubRemote) UpdateMetric(context.Context, domain.Metric) error         { return nil }
func (stubRemote) DeleteMetric(context.Context, string, time.Time) error     { return nil }
func (stubRemote) HealthCheck(context.Context) error                         { return nil }
func (stubRemote) ReadAll(context.Context, time.Time) (remote.ReadAllResult, error) {
	return remote.ReadAllResult{}, nil
}
func (stubRemote) PushAll(context.Context, []domain.Symptom, []domain.Metric) (remote.PushAllResult, error) {
	return remote.PushAllResult{}, nil
}

type harness struct {
	local    *localstore.Store
	symptoms *symptomstore.Store
	metrics  *metricstore.Store
	settings *settingsstore.Store
	queue    *changequeue.Queue
	coord    *Coordinator
	cancel   context.CancelFunc
	done     chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs, err := kv.NewFileStore(filepath.Join(t.TempDir(), "local.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	local := localstore.New(fs, "health")
	symptoms := symptomstore.New(trie.New())
	metrics := metricstore.New()
	settings := settingsstore.New()
	queue := changequeue.New()
	engine := syncengine.New(stubRemote{}, local, symptoms, metrics, settings, queue, config.Default(), nil)

	h := &harness{
		local:    local,
		symptoms: symptoms,
		metrics:  metrics,
		settings: settings,
		queue:    queue,
		coord:    New(local, symptoms, metrics, settings, engine, nil),
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.coord.Run(ctx)
		close(h.done)
	}()
	t.Cleanup(h.stop)
	return h
}

// stop cancels the coordinator and waits for its final drain, so
// assertions below observe fully-settled state.
func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLocalAddIsPersistedAndQueued(t *testing.T) {
	h := newHarness(t)

	sym, err := h.symptoms.Add(domain.Symptom{Name: "headache", LastModified: time.Now()})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	waitFor(t, "queued change", func() bool {
		_, ok := h.queue.Get(sym.ID)
		return ok
	})
	change, _ := h.queue.Get(sym.ID)
	if change.Kind != domain.ChangeAddSymptom {
		t.Fatalf("queued kind = %v, want add_symptom", change.Kind)
	}

	h.stop()
	persisted, err := h.local.LoadSymptoms()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, sym.ID, persisted[0].ID)
	require.Equal(t, "headache", persisted[0].Name)
}

func TestDeleteEnqueuesDeletionChange(t *testing.T) {
	h := newHarness(t)

	sym, err := h.symptoms.Add(domain.Symptom{Name: "nausea", LastModified: time.Now()})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitFor(t, "add queued", func() bool {
		_, ok := h.queue.Get(sym.ID)
		return ok
	})

	h.symptoms.Delete(sym.ID)

	// The unpushed Add and the Delete cancel out; the server never
	// hears about this symptom.
	waitFor(t, "changes to cancel", func() bool {
		_, ok := h.queue.Get(sym.ID)
		return !ok
	})
}

func TestPulledDataDoesNotEnterQueue(t *testing.T) {
	h := newHarness(t)

	h.symptoms.AddPulledData(domain.Symptom{ID: "sym_remote", Name: "cough", LastModified: time.Now()})
	h.metrics.AddPulledData(domain.Metric{ID: "met_remote", SymptomID: "sym_remote", Date: time.Now(), LastModified: time.Now()})

	h.stop()
	if h.queue.Len() != 0 {
		t.Fatalf("queue len = %d, want 0: pulled data must not re-enter the queue", h.queue.Len())
	}
	persisted, err := h.local.LoadSymptoms()
	if err != nil {
		t.Fatalf("LoadSymptoms: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected pulled symptom persisted, got %+v", persisted)
	}
}

func TestMetricMutationsQueueAndPersist(t *testing.T) {
	h := newHarness(t)

	m, err := h.metrics.Add(domain.Metric{
		SymptomID: "sym_a", Intensity: domain.IntensityLow,
		Date: time.Now(), LastModified: time.Now(),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitFor(t, "metric add queued", func() bool {
		c, ok := h.queue.Get(m.ID)
		return ok && c.Kind == domain.ChangeAddMetric
	})

	m.Intensity = domain.IntensityHigh
	m.LastModified = time.Now()
	if err := h.metrics.Update(m); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Add merged with Update stays an Add carrying the latest payload.
	waitFor(t, "merged change", func() bool {
		c, ok := h.queue.Get(m.ID)
		return ok && c.Kind == domain.ChangeAddMetric && c.Metric.Intensity == domain.IntensityHigh
	})

	h.stop()
	persisted, err := h.local.LoadMetrics()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, domain.IntensityHigh, persisted[0].Intensity)
}

func TestSettingsChangesArePersisted(t *testing.T) {
	h := newHarness(t)

	h.settings.SetEndpoint("https://api.example.test/", "tok")

	h.stop()
	snapshot, err := h.local.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if snapshot.Settings.APIUrl == nil || *snapshot.Settings.APIUrl != "https://api.example.test" {
		t.Fatalf("persisted settings = %+v", snapshot.Settings)
	}
}

func TestSameEndpoint(t *testing.T) {
	url := "https://a"
	tok := "t"
	a := domain.Settings{APIUrl: &url, APIToken: &tok}
	if !sameEndpoint(a, a) {
		t.Fatal("identical settings should compare equal")
	}
	other := "https://b"
	b := domain.Settings{APIUrl: &other, APIToken: &tok}
	if sameEndpoint(a, b) {
		t.Fatal("different URLs should not compare equal")
	}
	if sameEndpoint(a, domain.Settings{}) {
		t.Fatal("configured vs unconfigured should not compare equal")
	}
}
