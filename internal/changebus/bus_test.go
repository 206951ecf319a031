package changebus

import "testing"

func TestPublishDeliversToAllSubscribersInOrder(t *testing.T) {
	b := New[int]()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	for _, want := range []int{1, 2, 3} {
		if got := <-a; got != want {
			t.Fatalf("subscriber a: got %d, want %d", got, want)
		}
		if got := <-c; got != want {
			t.Fatalf("subscriber c: got %d, want %d", got, want)
		}
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	b := New[string]()
	ch := b.Subscribe(1)
	b.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
}
