package syncengine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtgoitia/healthsync/internal/changequeue"
	"github.com/dtgoitia/healthsync/internal/config"
	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/kv"
	"github.com/dtgoitia/healthsync/internal/localstore"
	"github.com/dtgoitia/healthsync/internal/remote"
	"github.com/dtgoitia/healthsync/internal/settingsstore"
)

type fakeRemote struct {
	readAllResult remote.ReadAllResult
	readAllErr    error
	created       []domain.Symptom
	deleted       []string
	deleteErr     error
}

func (f *fakeRemote) CreateSymptom(ctx context.Context, s domain.Symptom) error {
	f.created = append(f.created, s)
	return nil
}
func (f *fakeRemote) UpdateSymptom(ctx context.Context, s domain.Symptom) error { return nil }
func (f *fakeRemote) DeleteSymptom(ctx context.Context, id string, deletedAt time.Time) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}
func (f *fakeRemote) CreateMetric(ctx context.Context, m domain.Metric) error { return nil }
func (f *fakeRemote) UpdateMetric(ctx context.Context, m domain.Metric) error { return nil }
func (f *fakeRemote) DeleteMetric(ctx context.Context, id string, deletedAt time.Time) error {
	return nil
}
func (f *fakeRemote) ReadAll(ctx context.Context, since time.Time) (remote.ReadAllResult, error) {
	return f.readAllResult, f.readAllErr
}
func (f *fakeRemote) PushAll(ctx context.Context, symptoms []domain.Symptom, metrics []domain.Metric) (remote.PushAllResult, error) {
	return remote.PushAllResult{}, nil
}
func (f *fakeRemote) HealthCheck(ctx context.Context) error { return nil }

type fakeSymptomStore struct {
	items  map[string]domain.Symptom
	pulled []domain.Symptom
}

func newFakeSymptomStore() *fakeSymptomStore {
	return &fakeSymptomStore{items: make(map[string]domain.Symptom)}
}
func (f *fakeSymptomStore) AddPulledData(s domain.Symptom) {
	f.items[s.ID] = s
	f.pulled = append(f.pulled, s)
}
func (f *fakeSymptomStore) Get(id string) (domain.Symptom, bool) {
	s, ok := f.items[id]
	return s, ok
}
func (f *fakeSymptomStore) GetAll() []domain.Symptom {
	out := make([]domain.Symptom, 0, len(f.items))
	for _, s := range f.items {
		out = append(out, s)
	}
	return out
}

type fakeMetricStore struct {
	items map[string]domain.Metric
}

func newFakeMetricStore() *fakeMetricStore {
	return &fakeMetricStore{items: make(map[string]domain.Metric)}
}
func (f *fakeMetricStore) AddPulledData(m domain.Metric) { f.items[m.ID] = m }
func (f *fakeMetricStore) Get(id string) (domain.Metric, bool) {
	m, ok := f.items[id]
	return m, ok
}
func (f *fakeMetricStore) GetAll() []domain.Metric {
	out := make([]domain.Metric, 0, len(f.items))
	for _, m := range f.items {
		out = append(out, m)
	}
	return out
}

func newTestEngine(t *testing.T, rc remote.RemoteClient) (*Engine, *fakeSymptomStore, *fakeMetricStore, *settingsstore.Store) {
	t.Helper()
	fs, err := kv.NewFileStore(filepath.Join(t.TempDir(), "local.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	local := localstore.New(fs, "health")
	symptoms := newFakeSymptomStore()
	metrics := newFakeMetricStore()
	settings := settingsstore.New()
	settings.SetEndpoint("https://example.test", "tok")

	e := New(rc, local, symptoms, metrics, settings, changequeue.New(), config.Default(), nil)
	return e, symptoms, metrics, settings
}

func TestTickMissingConfigPublishesOffline(t *testing.T) {
	fs, _ := kv.NewFileStore(filepath.Join(t.TempDir(), "local.json"))
	local := localstore.New(fs, "health")
	e := New(&fakeRemote{}, local, newFakeSymptomStore(), newFakeMetricStore(), settingsstore.New(), changequeue.New(), config.Default(), nil)

	ch := e.StatusChanges(4)
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Status != StatusOffline {
			t.Fatalf("Status = %v, want offline", ev.Status)
		}
	default:
		t.Fatal("expected a status event")
	}
}

func TestTickPullsAndAppliesNewEntity(t *testing.T) {
	rc := &fakeRemote{readAllResult: remote.ReadAllResult{
		Symptoms: []domain.Symptom{{ID: "sym_a", Name: "Headache", LastModified: time.Now()}},
	}}
	e, symptoms, _, settings := newTestEngine(t, rc)

	before := time.Now()
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, ok := symptoms.Get("sym_a"); !ok {
		t.Fatal("expected pulled symptom applied to domain")
	}
	pulledAt := settings.Get().LastPulledAt
	if pulledAt == nil || pulledAt.Before(before) {
		t.Fatalf("LastPulledAt = %v, want anchored at the pre-pull instant", pulledAt)
	}
}

func TestReconcileWithQueueKeepsNewerLocalChange(t *testing.T) {
	now := time.Now()
	rc := &fakeRemote{readAllResult: remote.ReadAllResult{
		Symptoms: []domain.Symptom{{ID: "sym_a", Name: "Stale remote", LastModified: now.Add(-time.Hour)}},
	}}
	e, symptoms, _, _ := newTestEngine(t, rc)
	e.queue.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeUpdateSymptom, EntityID: "sym_a",
		Symptom: &domain.Symptom{ID: "sym_a", Name: "Fresh local", LastModified: now},
	})

	if err := e.pullAndReconcile(context.Background()); err != nil {
		t.Fatalf("pullAndReconcile: %v", err)
	}
	if _, ok := symptoms.Get("sym_a"); ok {
		t.Fatal("expected pulled entity discarded in favor of fresher queued change")
	}
	if _, ok := e.queue.Get("sym_a"); !ok {
		t.Fatal("expected queued change retained")
	}
}

func TestPushDequeuesOnSuccessAndRetainsOnFailure(t *testing.T) {
	rc := &fakeRemote{deleteErr: context.DeadlineExceeded}
	e, _, _, _ := newTestEngine(t, rc)
	e.queue.Enqueue(domain.ChangeToPush{Kind: domain.ChangeDeleteSymptom, EntityID: "sym_a", DeletionDate: time.Now()})
	e.queue.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeAddSymptom, EntityID: "sym_b",
		Symptom: &domain.Symptom{ID: "sym_b", Name: "b", LastModified: time.Now()},
	})

	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, ok := e.queue.Get("sym_a"); !ok {
		t.Fatal("expected failed push to retain its queue entry")
	}
	if _, ok := e.queue.Get("sym_b"); ok {
		t.Fatal("expected successful push to dequeue its entry")
	}
}

func TestQueueChangePersistsAndPublishesWaitingToSync(t *testing.T) {
	e, _, _, _ := newTestEngine(t, &fakeRemote{})
	ch := e.StatusChanges(4)

	if err := e.QueueChange(domain.ChangeToPush{Kind: domain.ChangeAddSymptom, EntityID: "sym_a", Symptom: &domain.Symptom{ID: "sym_a"}}); err != nil {
		t.Fatalf("QueueChange: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Status != StatusWaitingToSync {
			t.Fatalf("Status = %v, want waitingToSync", ev.Status)
		}
	default:
		t.Fatal("expected a status event")
	}

	persisted, err := e.local.LoadQueue()
	if err != nil {
		t.Fatalf("LoadQueue: %v", err)
	}
	if len(persisted) != 1 || persisted[0].EntityID != "sym_a" {
		t.Fatalf("persisted queue = %+v", persisted)
	}
}
