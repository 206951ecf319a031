package changequeue

import (
	"testing"
	"time"

	"github.com/dtgoitia/healthsync/internal/domain"
)

func at(seconds int) time.Time {
	return time.Unix(int64(seconds), 0).UTC()
}

func TestEnqueueAddThenDeleteCancelsOut(t *testing.T) {
	q := New()
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeAddSymptom, EntityID: "sym_a",
		Symptom: &domain.Symptom{ID: "sym_a", Name: "a", LastModified: at(1)},
	})
	still := q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeDeleteSymptom, EntityID: "sym_a", DeletionDate: at(2),
	})
	if still {
		t.Fatal("expected Add+Delete to cancel out")
	}
	if _, ok := q.Get("sym_a"); ok {
		t.Fatal("expected entry removed")
	}
}

func TestEnqueueAddThenUpdateStaysTaggedAsAdd(t *testing.T) {
	q := New()
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeAddSymptom, EntityID: "sym_a",
		Symptom: &domain.Symptom{ID: "sym_a", Name: "a", LastModified: at(1)},
	})
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeUpdateSymptom, EntityID: "sym_a",
		Symptom: &domain.Symptom{ID: "sym_a", Name: "a renamed", LastModified: at(2)},
	})

	got, ok := q.Get("sym_a")
	if !ok {
		t.Fatal("expected pending change")
	}
	if got.Kind != domain.ChangeAddSymptom {
		t.Fatalf("Kind = %v, want still tagged as Add", got.Kind)
	}
	if got.Symptom.Name != "a renamed" {
		t.Fatalf("Symptom.Name = %q, want final payload", got.Symptom.Name)
	}
}

func TestEnqueueUpdateThenUpdateKeepsLatest(t *testing.T) {
	q := New()
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeUpdateMetric, EntityID: "met_a",
		Metric: &domain.Metric{ID: "met_a", Notes: "first", LastModified: at(1)},
	})
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeUpdateMetric, EntityID: "met_a",
		Metric: &domain.Metric{ID: "met_a", Notes: "second", LastModified: at(2)},
	})

	got, _ := q.Get("met_a")
	if got.Metric.Notes != "second" {
		t.Fatalf("Notes = %q, want second (latest)", got.Metric.Notes)
	}
}

func TestEnqueueUpdateThenDeleteKeepsDelete(t *testing.T) {
	q := New()
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeUpdateMetric, EntityID: "met_a",
		Metric: &domain.Metric{ID: "met_a", LastModified: at(1)},
	})
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeDeleteMetric, EntityID: "met_a", DeletionDate: at(2),
	})

	got, _ := q.Get("met_a")
	if got.Kind != domain.ChangeDeleteMetric {
		t.Fatalf("Kind = %v, want Delete", got.Kind)
	}
}

func TestEnqueueOutOfOrderArrivalStillOrdersByEffectiveDate(t *testing.T) {
	q := New()
	// The delete is enqueued first even though it carries a later
	// effective date than the update enqueued after it.
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeDeleteMetric, EntityID: "met_a", DeletionDate: at(10),
	})
	q.Enqueue(domain.ChangeToPush{
		Kind: domain.ChangeUpdateMetric, EntityID: "met_a",
		Metric: &domain.Metric{ID: "met_a", Notes: "late update", LastModified: at(5)},
	})

	got, _ := q.Get("met_a")
	if got.Kind != domain.ChangeDeleteMetric {
		t.Fatalf("Kind = %v, want the chronologically later Delete", got.Kind)
	}
}

func TestDequeueRemovesEntry(t *testing.T) {
	q := New()
	q.Enqueue(domain.ChangeToPush{Kind: domain.ChangeAddSymptom, EntityID: "sym_a", Symptom: &domain.Symptom{ID: "sym_a"}})
	q.Dequeue("sym_a")
	if _, ok := q.Get("sym_a"); ok {
		t.Fatal("expected entry removed")
	}
	q.Dequeue("sym_a") // idempotent
}

func TestLoadPreservesOrderAndAllReturnsInsertionOrder(t *testing.T) {
	changes := []domain.ChangeToPush{
		{Kind: domain.ChangeAddSymptom, EntityID: "sym_b", Symptom: &domain.Symptom{ID: "sym_b"}},
		{Kind: domain.ChangeAddSymptom, EntityID: "sym_a", Symptom: &domain.Symptom{ID: "sym_a"}},
	}
	q := Load(changes)
	all := q.All()
	if len(all) != 2 || all[0].EntityID != "sym_b" || all[1].EntityID != "sym_a" {
		t.Fatalf("All() = %+v, want insertion order preserved", all)
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d", q.Len())
	}
	ids := q.sortedIDs()
	if len(ids) != 2 || ids[0] != "sym_a" || ids[1] != "sym_b" {
		t.Fatalf("sortedIDs() = %v", ids)
	}
}
