// Package remote implements RemoteClient, the typed request/response
// layer over the server's JSON wire contract: one typed method per
// wire operation, all funneled through a shared doRequest helper.
package remote

import (
	"fmt"
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
)

// apiSymptom is the wire shape of a Symptom.
type apiSymptom struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	OtherNames []string `json:"other_names"`
	UpdatedAt  string   `json:"updated_at"`
}

// apiMetric is the wire shape of a Metric.
type apiMetric struct {
	ID        string `json:"id"`
	SymptomID string `json:"symptom_id"`
	Date      string `json:"date"`
	UpdatedAt string `json:"updated_at"`
	Intensity string `json:"intensity"`
	Notes     string `json:"notes"`
}

func toAPISymptom(s domain.Symptom) apiSymptom {
	return apiSymptom{
		ID:         s.ID,
		Name:       s.Name,
		OtherNames: s.OtherNames,
		UpdatedAt:  s.LastModified.UTC().Format(time.RFC3339),
	}
}

// decodeSymptom converts a wire symptom to the domain type. All
// decoding is explicit and total: an unparseable date produces a
// typed error rather than a zero-value time that would silently
// corrupt last-writer-wins comparisons.
func decodeSymptom(a apiSymptom) (domain.Symptom, error) {
	t, err := time.Parse(time.RFC3339, a.UpdatedAt)
	if err != nil {
		return domain.Symptom{}, fmt.Errorf("remote: symptom %s: bad updated_at %q: %w", a.ID, a.UpdatedAt, err)
	}
	if a.ID == "" {
		return domain.Symptom{}, fmt.Errorf("remote: symptom missing id")
	}
	return domain.Symptom{
		ID:           a.ID,
		Name:         a.Name,
		OtherNames:   a.OtherNames,
		LastModified: t,
	}, nil
}

func toAPIMetric(m domain.Metric) apiMetric {
	return apiMetric{
		ID:        m.ID,
		SymptomID: m.SymptomID,
		Date:      m.Date.UTC().Format(time.RFC3339),
		UpdatedAt: m.LastModified.UTC().Format(time.RFC3339),
		Intensity: string(m.Intensity),
		Notes:     m.Notes,
	}
}

func decodeMetric(a apiMetric) (domain.Metric, error) {
	if a.ID == "" {
		return domain.Metric{}, fmt.Errorf("remote: metric missing id")
	}
	date, err := time.Parse(time.RFC3339, a.Date)
	if err != nil {
		return domain.Metric{}, fmt.Errorf("remote: metric %s: bad date %q: %w", a.ID, a.Date, err)
	}
	updated, err := time.Parse(time.RFC3339, a.UpdatedAt)
	if err != nil {
		return domain.Metric{}, fmt.Errorf("remote: metric %s: bad updated_at %q: %w", a.ID, a.UpdatedAt, err)
	}
	switch domain.Intensity(a.Intensity) {
	case domain.IntensityLow, domain.IntensityMedium, domain.IntensityHigh:
	default:
		return domain.Metric{}, fmt.Errorf("remote: metric %s: unknown intensity %q", a.ID, a.Intensity)
	}
	return domain.Metric{
		ID:           a.ID,
		SymptomID:    a.SymptomID,
		Intensity:    domain.Intensity(a.Intensity),
		Date:         date,
		Notes:        a.Notes,
		LastModified: updated,
	}, nil
}

// ReadAllResult is the decoded /get-all response. A malformed entity
// is collected in Errors rather than failing the whole pull; one bad
// entity must not poison the response.
type ReadAllResult struct {
	Symptoms []domain.Symptom
	Metrics  []domain.Metric
	Errors   []error
}

// FailedPush describes one entity pushAll could not deliver.
type FailedPush struct {
	ID    string
	Error string
}

// PushResult is the per-kind outcome of a pushAll call.
type PushResult struct {
	Succeeded []string
	Failed    []FailedPush
}

// PushAllResult is the full response to /push-all.
type PushAllResult struct {
	Symptoms PushResult
	Metrics  PushResult
}
