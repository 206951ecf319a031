// Package metricstore owns the in-memory metric map and its
// day-bucket index.
package metricstore

import (
	"sort"
	"sync"
	"time"

	"github.com/dtgoitia/healthsync/internal/changebus"
	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/idgen"
)

// EventKind tags a MetricStore change event.
type EventKind string

const (
	EventInitialized       EventKind = "initialized"
	EventAdded             EventKind = "added"
	EventUpdated           EventKind = "updated"
	EventDeleted           EventKind = "deleted"
	EventAddedFromExternal EventKind = "added_from_external_source"
)

// Event is published on the store's change stream.
type Event struct {
	Kind EventKind
	ID   string
}

// dayKey returns the local calendar day a metric's date falls on,
// used to key the day-bucket index.
func dayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// Store is the keyed map of metrics plus its day-bucket index.
type Store struct {
	mu          sync.RWMutex
	items       map[string]domain.Metric
	byDay       map[string]map[string]struct{} // day -> set of metric ids
	initialized bool
	bus         *changebus.Bus[Event]
}

// New creates an empty, uninitialized Store.
func New() *Store {
	return &Store{
		items: make(map[string]domain.Metric),
		byDay: make(map[string]map[string]struct{}),
		bus:   changebus.New[Event](),
	}
}

func (s *Store) Changes(buffer int) <-chan Event {
	return s.bus.Subscribe(buffer)
}

func (s *Store) indexAdd(m domain.Metric) {
	day := dayKey(m.Date)
	if s.byDay[day] == nil {
		s.byDay[day] = make(map[string]struct{})
	}
	s.byDay[day][m.ID] = struct{}{}
}

func (s *Store) indexRemove(m domain.Metric) {
	day := dayKey(m.Date)
	if set := s.byDay[day]; set != nil {
		delete(set, m.ID)
		if len(set) == 0 {
			delete(s.byDay, day)
		}
	}
}

// Initialize seeds the store. A second call fails with
// ErrInitializationFailed.
func (s *Store) Initialize(items []domain.Metric) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return domain.NewError(domain.ErrInitializationFailed, "metric store already initialized", nil)
	}
	for _, it := range items {
		s.items[it.ID] = it.Clone()
		s.indexAdd(it)
	}
	s.initialized = true
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventInitialized})
	return nil
}

// Add inserts a new metric, generating its id if empty.
func (s *Store) Add(m domain.Metric) (domain.Metric, error) {
	s.mu.Lock()
	if m.ID == "" {
		id, err := idgen.Generate("met", func(id string) bool {
			_, exists := s.items[id]
			return exists
		})
		if err != nil {
			s.mu.Unlock()
			return domain.Metric{}, domain.NewError(domain.ErrFailedToCreateMetric, "id generation failed", err)
		}
		m.ID = id
	}
	s.items[m.ID] = m.Clone()
	s.indexAdd(m)
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventAdded, ID: m.ID})
	return m, nil
}

// Update replaces an existing metric, re-bucketing the day index if
// its date moved. Returns ErrFailedToUpdate if id is not present.
func (s *Store) Update(m domain.Metric) error {
	s.mu.Lock()
	old, ok := s.items[m.ID]
	if !ok {
		s.mu.Unlock()
		return domain.NewError(domain.ErrFailedToUpdate, "metric "+m.ID+" not found", nil)
	}
	s.indexRemove(old)
	s.items[m.ID] = m.Clone()
	s.indexAdd(m)
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventUpdated, ID: m.ID})
	return nil
}

// Delete removes a metric. Deleting a missing id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	old, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.items, id)
	s.indexRemove(old)
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventDeleted, ID: id})
}

// AddPulledData upserts a metric received from the remote server
// without re-queueing it for push.
func (s *Store) AddPulledData(m domain.Metric) {
	s.mu.Lock()
	if old, ok := s.items[m.ID]; ok {
		s.indexRemove(old)
	}
	s.items[m.ID] = m.Clone()
	s.indexAdd(m)
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventAddedFromExternal, ID: m.ID})
}

// Get returns a copy of the metric with the given id.
func (s *Store) Get(id string) (domain.Metric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.items[id]
	if !ok {
		return domain.Metric{}, false
	}
	return m.Clone(), true
}

func sortByDateDesc(ms []domain.Metric) {
	sort.Slice(ms, func(i, j int) bool {
		return ms[i].Date.After(ms[j].Date)
	})
}

// GetAll returns every metric sorted by date descending.
func (s *Store) GetAll() []domain.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Metric, 0, len(s.items))
	for _, m := range s.items {
		out = append(out, m.Clone())
	}
	sortByDateDesc(out)
	return out
}

// GetMetricsOfLastNDays returns metrics whose local calendar day falls
// within the n-day window ending today, sorted newest-first.
func (s *Store) GetMetricsOfLastNDays(n int) []domain.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := time.Now().Local()
	days := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		days[dayKey(today.AddDate(0, 0, -i))] = struct{}{}
	}

	var out []domain.Metric
	for day := range days {
		for id := range s.byDay[day] {
			if m, ok := s.items[id]; ok {
				out = append(out, m.Clone())
			}
		}
	}
	sortByDateDesc(out)
	return out
}

// IsSymptomUsedInHistory reports whether any metric references
// symptomID; used to block symptom deletion while history still
// references it.
func (s *Store) IsSymptomUsedInHistory(symptomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.items {
		if m.SymptomID == symptomID {
			return true
		}
	}
	return false
}
