package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ calls int }

func (f *failingStore) Append(context.Context, Event) error {
	f.calls++
	return errors.New("sink down")
}

func TestPublisherEmit(t *testing.T) {
	t.Run("stamps a timestamp when missing", func(t *testing.T) {
		p := NewPublisher()
		p.Emit(context.Background(), Event{Action: ActionRegistered, VisitorID: "v-1"})

		got := <-p.Inbox()
		assert.False(t, got.Timestamp.IsZero())
		assert.Equal(t, "v-1", got.VisitorID)
	})

	t.Run("drops instead of blocking when the buffer is full", func(t *testing.T) {
		p := NewPublisher(WithBuffer(1))
		p.Emit(context.Background(), Event{VisitorID: "first"})

		done := make(chan struct{})
		go func() {
			p.Emit(context.Background(), Event{VisitorID: "second"})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Emit blocked on a full buffer")
		}
		assert.Equal(t, "first", (<-p.Inbox()).VisitorID)
		assert.Empty(t, p.Inbox())
	})
}

func TestInMemoryStoreCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(WithCapacity(3))
	for _, id := range []string{"v-1", "v-2", "v-3", "v-4", "v-5"} {
		require.NoError(t, store.Append(ctx, Event{Action: ActionRegistered, VisitorID: id}))
	}

	events := store.All()
	require.Len(t, events, 3)
	assert.Equal(t, "v-3", events[0].VisitorID)
	assert.Equal(t, "v-5", events[2].VisitorID)

	evicted, err := store.ListByVisitor(ctx, "v-1")
	require.NoError(t, err)
	assert.Empty(t, evicted)

	bounded := NewInMemoryStore()
	for i := 0; i < DefaultMemoryCapacity+50; i++ {
		require.NoError(t, bounded.Append(ctx, Event{VisitorID: "v"}))
	}
	assert.Len(t, bounded.All(), DefaultMemoryCapacity)
}

func TestWorkerRun(t *testing.T) {
	t.Run("persists queued events and drains on shutdown", func(t *testing.T) {
		store := NewInMemoryStore()
		p := NewPublisher()
		p.Emit(context.Background(), Event{Action: ActionRegistered, VisitorID: "v-1"})
		p.Emit(context.Background(), Event{Action: ActionManualVerification, VisitorID: "v-1"})
		p.Emit(context.Background(), Event{Action: ActionRegistered, VisitorID: "v-2"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, NewWorker(store, p.Inbox(), nil).Run(ctx))

		assert.Len(t, store.All(), 3)
		events, err := store.ListByVisitor(context.Background(), "v-1")
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("keeps going when the sink fails", func(t *testing.T) {
		store := &failingStore{}
		p := NewPublisher()
		p.Emit(context.Background(), Event{VisitorID: "a"})
		p.Emit(context.Background(), Event{VisitorID: "b"})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, NewWorker(store, p.Inbox(), nil).Run(ctx))
		assert.Equal(t, 2, store.calls)
	})
}
