// Package symptomstore owns the in-memory symptom map and its
// autocomplete index. It is the only component permitted to mutate
// that map; all other components learn about changes by subscribing
// to its change stream.
package symptomstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/dtgoitia/healthsync/internal/changebus"
	"github.com/dtgoitia/healthsync/internal/domain"
	"github.com/dtgoitia/healthsync/internal/idgen"
)

// EventKind tags a SymptomStore change event.
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

// Store is the keyed map of symptoms plus its prefix-autocomplete
// index.
type Store struct {
	mu          sync.RWMutex
	items       map[string]domain.Symptom
	initialized bool
	bus         *changebus.Bus[Event]
	index       autocompleteIndex
}

// autocompleteIndex is satisfied by *trie.Autocompleter; declared here
// so this package doesn't force a specific implementation on callers
// that don't need search (keeps the dependency direction the same as
// the rest of the store graph: stores depend on primitives, never the
// reverse).
type autocompleteIndex interface {
	AddItem(itemID string, texts ...string)
	RemoveItem(itemID string)
	Search(query string) []string
}

// New creates an empty, uninitialized Store. idx is typically
// trie.New().
func New(idx autocompleteIndex) *Store {
	return &Store{
		items: make(map[string]domain.Symptom),
		bus:   changebus.New[Event](),
		index: idx,
	}
}

// Changes returns a channel of change events. Subscribers observe
// events in emission order.
func (s *Store) Changes(buffer int) <-chan Event {
	return s.bus.Subscribe(buffer)
}

// Initialize seeds the store from persisted or pulled items. A second
// call fails with ErrInitializationFailed.
func (s *Store) Initialize(items []domain.Symptom) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return domain.NewError(domain.ErrInitializationFailed, "symptom store already initialized", nil)
	}
	for _, it := range items {
		s.items[it.ID] = it.Clone()
		s.index.AddItem(it.ID, it.Name, strings.Join(it.OtherNames, " "))
	}
	s.initialized = true
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventInitialized})
	return nil
}

// Add inserts a new symptom, generating its id if empty, and emits
// EventAdded.
func (s *Store) Add(sym domain.Symptom) (domain.Symptom, error) {
	s.mu.Lock()
	if sym.ID == "" {
		id, err := idgen.Generate("sym", func(id string) bool {
			_, exists := s.items[id]
			return exists
		})
		if err != nil {
			s.mu.Unlock()
			return domain.Symptom{}, domain.NewError(domain.ErrFailedToCreateSymptom, "id generation failed", err)
		}
		sym.ID = id
	}
	s.items[sym.ID] = sym.Clone()
	s.index.AddItem(sym.ID, sym.Name, strings.Join(sym.OtherNames, " "))
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventAdded, ID: sym.ID})
	return sym, nil
}

// Update replaces an existing symptom's fields. Returns
// ErrFailedToUpdate if id is not present.
func (s *Store) Update(sym domain.Symptom) error {
	s.mu.Lock()
	if _, ok := s.items[sym.ID]; !ok {
		s.mu.Unlock()
		return domain.NewError(domain.ErrFailedToUpdate, "symptom "+sym.ID+" not found", nil)
	}
	s.items[sym.ID] = sym.Clone()
	s.index.RemoveItem(sym.ID)
	s.index.AddItem(sym.ID, sym.Name, strings.Join(sym.OtherNames, " "))
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventUpdated, ID: sym.ID})
	return nil
}

// Delete removes a symptom. Deleting a missing id is a no-op: no event
// is published and nothing is logged.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.items, id)
	s.index.RemoveItem(id)
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventDeleted, ID: id})
}

// AddPulledData upserts a symptom received from the remote server
// without re-queueing it for push. Existing ids are overwritten; new
// ids are inserted.
func (s *Store) AddPulledData(sym domain.Symptom) {
	s.mu.Lock()
	s.items[sym.ID] = sym.Clone()
	s.index.RemoveItem(sym.ID)
	s.index.AddItem(sym.ID, sym.Name, strings.Join(sym.OtherNames, " "))
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: EventAddedFromExternal, ID: sym.ID})
}

// Get returns a copy of the symptom with the given id.
func (s *Store) Get(id string) (domain.Symptom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.items[id]
	if !ok {
		return domain.Symptom{}, false
	}
	return sym.Clone(), true
}

// GetAll returns every symptom sorted alphabetically by lowercase
// name.
func (s *Store) GetAll() []domain.Symptom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Symptom, 0, len(s.items))
	for _, sym := range s.items {
		out = append(out, sym.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Search performs the AND-prefix autocomplete search over symptom
// names and other names.
func (s *Store) Search(query string) []domain.Symptom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.index.Search(query)
	out := make([]domain.Symptom, 0, len(ids))
	for _, id := range ids {
		if sym, ok := s.items[id]; ok {
			out = append(out, sym.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
