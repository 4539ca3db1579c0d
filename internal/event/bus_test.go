package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribePublishSync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []Event
	bus.Subscribe(ApprovalRequested, func(e Event) {
		got = append(got, e)
	})

	bus.PublishSync(Event{Type: ApprovalRequested, Data: "a"})
	bus.PublishSync(Event{Type: ApprovalResolved, Data: "b"}) // different type, not delivered

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Data)
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	done := make(chan Event, 1)
	bus.Subscribe(FileChanged, func(e Event) {
		done <- e
	})

	bus.Publish(Event{Type: FileChanged, Data: FileChangedData{Path: "/w/a.txt", Op: "WRITE"}})

	select {
	case e := <-done:
		data, ok := e.Data.(FileChangedData)
		require.True(t, ok)
		assert.Equal(t, "/w/a.txt", data.Path)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int
	unsub := bus.Subscribe(ApprovalRequested, func(Event) { count++ })

	bus.PublishSync(Event{Type: ApprovalRequested})
	unsub()
	bus.PublishSync(Event{Type: ApprovalRequested})

	assert.Equal(t, 1, count)
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var types []Type
	bus.SubscribeAll(func(e Event) { types = append(types, e.Type) })

	bus.PublishSync(Event{Type: ApprovalRequested})
	bus.PublishSync(Event{Type: FileWritten})

	assert.Equal(t, []Type{ApprovalRequested, FileWritten}, types)
}

func TestClose_DropsSubscribers(t *testing.T) {
	bus := NewBus()

	var count int
	bus.Subscribe(ApprovalRequested, func(Event) { count++ })

	require.NoError(t, bus.Close())
	bus.PublishSync(Event{Type: ApprovalRequested})
	assert.Zero(t, count)

	// Close is idempotent and subscribing after close is a no-op.
	require.NoError(t, bus.Close())
	unsub := bus.Subscribe(ApprovalRequested, func(Event) {})
	unsub()
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var mu sync.Mutex
	var count int
	bus.Subscribe(ApprovalRequested, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.PublishSync(Event{Type: ApprovalRequested})
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 400, count)
}
