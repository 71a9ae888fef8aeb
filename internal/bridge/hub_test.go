package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()

	events, cancel := h.Subscribe()
	defer cancel()

	h.Publish("file:change", map[string]string{"path": "/p/a.txt"})

	select {
	case ev := <-events:
		assert.Equal(t, "file:change", ev.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
}

func TestHubFanout(t *testing.T) {
	h := NewHub()

	a, cancelA := h.Subscribe()
	defer cancelA()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.Publish("cli:output", "x")

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, "cli:output", ev.Channel)
		case <-time.After(time.Second):
			t.Fatal("expected event on every subscriber")
		}
	}
}

func TestHubCancelIdempotent(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe()
	require.Equal(t, 1, h.SubscriberCount())

	cancel()
	cancel()
	assert.Equal(t, 0, h.SubscriberCount())
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()

	// Never drained
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.Publish("cli:output", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publishing must not block on a slow subscriber")
	}
}
