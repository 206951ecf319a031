// Package localstore is the durable key-value adapter for settings,
// symptoms, metrics, and the change queue. It is a scoped namespace
// over the abstract kv.KV boundary: five string keys under a
// process-wide prefix, each holding a full per-kind snapshot rather
// than deltas; totals are small enough that rewriting a snapshot
// beats tracking deltas.
package localstore

import (
	"fmt"
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/kv"
)

const (
	slotSettings      = "settings"
	slotSymptoms      = "symptoms"
	slotHistory       = "history"
	slotChangesToPush = "changesToPush"
	slotLastPullDate  = "lastPullDate"
)

// Store is the five-slot durable adapter.
type Store struct {
	kv     kv.KV
	prefix string
}

// New creates a Store namespaced under prefix + "__"; the default
// "health" prefix yields keys like "health__settings".
func New(backing kv.KV, prefix string) *Store {
	return &Store{kv: backing, prefix: prefix}
}

func (s *Store) key(slot string) string {
	return s.prefix + "__" + slot
}

// Snapshot is every persisted slot read at once, as the coordinator
// does on startup.
type Snapshot struct {
	Settings domain.Settings
	Symptoms []domain.Symptom
	Metrics  []domain.Metric
	Queue    []domain.ChangeToPush
}

// LoadAll reads every slot. Missing slots decode as their zero value,
// not an error: a fresh device has nothing persisted yet.
func (s *Store) LoadAll() (Snapshot, error) {
	settings, err := s.loadSettings()
	if err != nil {
		return Snapshot{}, err
	}
	symptoms, err := s.LoadSymptoms()
	if err != nil {
		return Snapshot{}, err
	}
	metrics, err := s.LoadMetrics()
	if err != nil {
		return Snapshot{}, err
	}
	queue, err := s.LoadQueue()
	if err != nil {
		return Snapshot{}, err
	}
	lastPull, err := s.LoadLastPullDate()
	if err != nil {
		return Snapshot{}, err
	}
	settings.LastPulledAt = lastPull

	return Snapshot{Settings: settings, Symptoms: symptoms, Metrics: metrics, Queue: queue}, nil
}

func (s *Store) loadSettings() (domain.Settings, error) {
	raw, ok, err := s.kv.Get(s.key(slotSettings))
	if err != nil {
		return domain.Settings{}, fmt.Errorf("localstore: load settings: %w", err)
	}
	if !ok {
		return domain.Settings{}, nil
	}
	var w wireSettings
	if err := unmarshal(raw, &w); err != nil {
		return domain.Settings{}, err
	}
	return domain.Settings{APIUrl: w.APIUrl, APIToken: w.APIToken}, nil
}

// SaveSettings persists apiUrl/apiToken. lastPulledAt lives in its
// own slot, persisted via SaveLastPullDate.
func (s *Store) SaveSettings(settings domain.Settings) error {
	raw, err := marshal(wireSettings{APIUrl: settings.APIUrl, APIToken: settings.APIToken})
	if err != nil {
		return err
	}
	return s.kv.Set(s.key(slotSettings), raw)
}

// LoadSymptoms reads the full symptom snapshot.
func (s *Store) LoadSymptoms() ([]domain.Symptom, error) {
	raw, ok, err := s.kv.Get(s.key(slotSymptoms))
	if err != nil {
		return nil, fmt.Errorf("localstore: load symptoms: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var wire []wireSymptom
	if err := unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Symptom, len(wire))
	for i, w := range wire {
		out[i] = fromWireSymptom(w)
	}
	return out, nil
}

// SaveSymptoms persists the full symptom snapshot (not deltas).
func (s *Store) SaveSymptoms(symptoms []domain.Symptom) error {
	wire := make([]wireSymptom, len(symptoms))
	for i, sym := range symptoms {
		wire[i] = toWireSymptom(sym)
	}
	raw, err := marshal(wire)
	if err != nil {
		return err
	}
	return s.kv.Set(s.key(slotSymptoms), raw)
}

// LoadMetrics reads the full metric history snapshot.
func (s *Store) LoadMetrics() ([]domain.Metric, error) {
	raw, ok, err := s.kv.Get(s.key(slotHistory))
	if err != nil {
		return nil, fmt.Errorf("localstore: load history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var wire []wireMetric
	if err := unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Metric, len(wire))
	for i, w := range wire {
		out[i] = fromWireMetric(w)
	}
	return out, nil
}

// SaveMetrics persists the full metric history snapshot.
func (s *Store) SaveMetrics(metrics []domain.Metric) error {
	wire := make([]wireMetric, len(metrics))
	for i, m := range metrics {
		wire[i] = toWireMetric(m)
	}
	raw, err := marshal(wire)
	if err != nil {
		return err
	}
	return s.kv.Set(s.key(slotHistory), raw)
}

// LoadQueue reads the persisted pending-change queue, written after
// every enqueue/dequeue so a restart can replay it.
func (s *Store) LoadQueue() ([]domain.ChangeToPush, error) {
	raw, ok, err := s.kv.Get(s.key(slotChangesToPush))
	if err != nil {
		return nil, fmt.Errorf("localstore: load queue: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var wire []wireChange
	if err := unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.ChangeToPush, len(wire))
	for i, w := range wire {
		out[i] = fromWireChange(w)
	}
	return out, nil
}

// SaveQueue persists the full pending-change queue.
func (s *Store) SaveQueue(queue []domain.ChangeToPush) error {
	wire := make([]wireChange, len(queue))
	for i, c := range queue {
		wire[i] = toWireChange(c)
	}
	raw, err := marshal(wire)
	if err != nil {
		return err
	}
	return s.kv.Set(s.key(slotChangesToPush), raw)
}

// LoadLastPullDate reads the last successful pull anchor, or nil if
// never set.
func (s *Store) LoadLastPullDate() (*time.Time, error) {
	raw, ok, err := s.kv.Get(s.key(slotLastPullDate))
	if err != nil {
		return nil, fmt.Errorf("localstore: load lastPullDate: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var t time.Time
	if err := unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SaveLastPullDate persists the anchor as an ISO-8601 string.
func (s *Store) SaveLastPullDate(t time.Time) error {
	raw, err := marshal(t)
	if err != nil {
		return err
	}
	return s.kv.Set(s.key(slotLastPullDate), raw)
}
