package plugin

import (
	"sync"
	"testing"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := NewBus()
	var mu sync.Mutex
	var got []string

	b.Subscribe(EventFileCreated, func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "sub1:"+payload.(string))
	})
	b.Subscribe(EventFileCreated, func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "sub2:"+payload.(string))
	})

	b.Publish(EventFileCreated, "a.md")

	if len(got) != 2 {
		t.Fatalf("expected both subscribers to run, got %v", got)
	}
}

func TestPublishOnlyReachesMatchingEventType(t *testing.T) {
	b := NewBus()
	var created, removed int
	b.Subscribe(EventFileCreated, func(payload any) { created++ })
	b.Subscribe(EventFileRemoved, func(payload any) { removed++ })

	b.Publish(EventFileCreated, "a.md")

	if created != 1 || removed != 0 {
		t.Fatalf("expected only the created handler to fire, got created=%d removed=%d", created, removed)
	}
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	b := NewBus()
	ran := false
	b.Subscribe(EventBuildDone, func(payload any) { panic("boom") })
	b.Subscribe(EventBuildDone, func(payload any) { ran = true })

	b.Publish(EventBuildDone, nil)

	if !ran {
		t.Fatalf("expected the second handler to run despite the first panicking")
	}
}

func TestRequestIDReturnsDistinctValues(t *testing.T) {
	a := RequestID()
	b := RequestID()
	if a == "" || b == "" || a == b {
		t.Fatalf("expected two distinct non-empty request ids, got %q and %q", a, b)
	}
}
