// Package settingsstore owns the endpoint URL, auth token, and
// lastPulledAt watermark.
package settingsstore

import (
	"sync"
	"time"

	"github.com/dtgoitia/healthsync/internal/changebus"
	"github.com/dtgoitia/healthsync/internal/domain"
)

type EventKind string

const (
	EventInitialized EventKind = "initialized"
	EventUpdated     EventKind = "updated"
)

type Event struct {
	Kind EventKind
}

// Store holds the current Settings value and broadcasts changes.
type Store struct {
	mu       sync.RWMutex
	settings domain.Settings
	bus      *changebus.Bus[Event]
}

func New() *Store {
	return &Store{bus: changebus.New[Event]()}
}

func (s *Store) Changes(buffer int) <-chan Event {
	return s.bus.Subscribe(buffer)
}

// Initialize seeds the store from a persisted snapshot.
func (s *Store) Initialize(settings domain.Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.bus.Publish(Event{Kind: EventInitialized})
}

// Get returns the current settings snapshot.
func (s *Store) Get() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetEndpoint updates the API URL and token. Trailing slashes are
// trimmed so path joins in the HTTP client stay predictable.
func (s *Store) SetEndpoint(apiURL, apiToken string) {
	s.mu.Lock()
	for len(apiURL) > 0 && apiURL[len(apiURL)-1] == '/' {
		apiURL = apiURL[:len(apiURL)-1]
	}
	s.settings.APIUrl = &apiURL
	s.settings.APIToken = &apiToken
	s.mu.Unlock()
	s.bus.Publish(Event{Kind: EventUpdated})
}

// SetLastPulledAt records the anchor for the next pull's overlap
// window.
func (s *Store) SetLastPulledAt(t time.Time) {
	s.mu.Lock()
	s.settings.LastPulledAt = &t
	s.mu.Unlock()
	s.bus.Publish(Event{Kind: EventUpdated})
}
