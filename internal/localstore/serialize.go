package localstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
)

// Wire structs keep the on-disk JSON shape independent of the domain
// model. Dates round-trip as RFC3339 strings, which are
// ISO-8601-compatible.

type wireSymptom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OtherNames   []string  `json:"otherNames"`
	LastModified time.Time `json:"lastModified"`
}

type wireMetric struct {
	ID           string    `json:"id"`
	SymptomID    string    `json:"symptomId"`
	Intensity    string    `json:"intensity"`
	Date         time.Time `json:"date"`
	Notes        string    `json:"notes"`
	LastModified time.Time `json:"lastModified"`
}

type wireSettings struct {
	APIUrl   *string `json:"apiUrl,omitempty"`
	APIToken *string `json:"apiToken,omitempty"`
}

type wireChange struct {
	Kind         string       `json:"kind"`
	EntityID     string       `json:"entityId"`
	Symptom      *wireSymptom `json:"symptom,omitempty"`
	Metric       *wireMetric  `json:"metric,omitempty"`
	DeletionDate *time.Time   `json:"deletionDate,omitempty"`
}

func toWireSymptom(s domain.Symptom) wireSymptom {
	return wireSymptom{ID: s.ID, Name: s.Name, OtherNames: s.OtherNames, LastModified: s.LastModified}
}

func fromWireSymptom(w wireSymptom) domain.Symptom {
	return domain.Symptom{ID: w.ID, Name: w.Name, OtherNames: w.OtherNames, LastModified: w.LastModified}
}

func toWireMetric(m domain.Metric) wireMetric {
	return wireMetric{
		ID: m.ID, SymptomID: m.SymptomID, Intensity: string(m.Intensity),
		Date: m.Date, Notes: m.Notes, LastModified: m.LastModified,
	}
}

func fromWireMetric(w wireMetric) domain.Metric {
	return domain.Metric{
		ID: w.ID, SymptomID: w.SymptomID, Intensity: domain.Intensity(w.Intensity),
		Date: w.Date, Notes: w.Notes, LastModified: w.LastModified,
	}
}

func toWireChange(c domain.ChangeToPush) wireChange {
	w := wireChange{Kind: string(c.Kind), EntityID: c.EntityID}
	if c.Symptom != nil {
		ws := toWireSymptom(*c.Symptom)
		w.Symptom = &ws
	}
	if c.Metric != nil {
		wm := toWireMetric(*c.Metric)
		w.Metric = &wm
	}
	if !c.DeletionDate.IsZero() {
		d := c.DeletionDate
		w.DeletionDate = &d
	}
	return w
}

func fromWireChange(w wireChange) domain.ChangeToPush {
	c := domain.ChangeToPush{Kind: domain.ChangeKind(w.Kind), EntityID: w.EntityID}
	if w.Symptom != nil {
		s := fromWireSymptom(*w.Symptom)
		c.Symptom = &s
	}
	if w.Metric != nil {
		m := fromWireMetric(*w.Metric)
		c.Metric = &m
	}
	if w.DeletionDate != nil {
		c.DeletionDate = *w.DeletionDate
	}
	return c
}

func marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("localstore: marshal: %w", err)
	}
	return b, nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("localstore: unmarshal: %w", err)
	}
	return nil
}
