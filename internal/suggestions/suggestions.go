// Package suggestions derives the "recently tracked symptoms" list a
// UI shows when the user is about to record a new metric: the metrics
// of the last few days, enriched with symptom names and squashed to
// one entry per symptom.
package suggestions

import (
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
)

// UnknownSymptomName is rendered for orphaned metrics whose symptom
// was deleted on another device.
const UnknownSymptomName = "unknown symptom"

// Suggestion is one squashed entry: a symptom the user recorded
// recently, flagged by when it last appeared.
type Suggestion struct {
	SymptomID      string
	Name           string
	RecordedToday  bool
	RecordedInPast bool
}

// symptomLookup is the slice of symptomstore.Store this package needs.
type symptomLookup interface {
	Get(id string) (domain.Symptom, bool)
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

// EnrichAndSquash collapses a newest-first metric sequence into exactly
// one Suggestion per symptom id, preserving first-appearance order.
// RecordedToday is set iff the symptom appears in a metric dated today
// (local calendar day); RecordedInPast iff it appears in a metric dated
// earlier than today. A symptom can have both flags set.
func EnrichAndSquash(metrics []domain.Metric, symptoms symptomLookup, now time.Time) []Suggestion {
	order := make([]string, 0, len(metrics))
	byID := make(map[string]*Suggestion, len(metrics))

	for _, m := range metrics {
		s, ok := byID[m.SymptomID]
		if !ok {
			name := UnknownSymptomName
			if sym, found := symptoms.Get(m.SymptomID); found {
				name = sym.Name
			}
			s = &Suggestion{SymptomID: m.SymptomID, Name: name}
			byID[m.SymptomID] = s
			order = append(order, m.SymptomID)
		}
		if sameLocalDay(m.Date, now) {
			s.RecordedToday = true
		} else if m.Date.Before(now) {
			s.RecordedInPast = true
		}
	}

	out := make([]Suggestion, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
