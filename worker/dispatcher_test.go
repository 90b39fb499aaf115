package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversEvents(t *testing.T) {
	d, err := NewDispatcher(WithPoolSize(2))
	require.NoError(t, err)
	defer d.Release()

	err = d.Submit(func(emit func(Event)) {
		emit(StateChangeEvent{State: StateSearching, Time: time.Now()})
		emit(ChatTurnEvent{SessionID: "session_abc", Query: "q", Response: "a", Time: time.Now()})
	})
	require.NoError(t, err)

	first := <-d.Events()
	state, ok := first.(StateChangeEvent)
	require.True(t, ok)
	assert.Equal(t, StateSearching, state.State)

	second := <-d.Events()
	turn, ok := second.(ChatTurnEvent)
	require.True(t, ok)
	assert.Equal(t, "session_abc", turn.SessionID)
}

func TestDispatcherRunDrains(t *testing.T) {
	d, err := NewDispatcher(WithPoolSize(1))
	require.NoError(t, err)
	defer d.Release()

	require.NoError(t, d.Submit(func(emit func(Event)) {
		for i := 0; i < 3; i++ {
			emit(LogEvent{Message: "line", Time: time.Now()})
		}
	}))

	var mu sync.Mutex
	count := 0
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx, func(event Event) {
			mu.Lock()
			count++
			if count == 3 {
				cancel()
			}
			mu.Unlock()
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain events in time")
	}

	mu.Lock()
	assert.Equal(t, 3, count)
	mu.Unlock()
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d, err := NewDispatcher(WithPoolSize(1), WithQueueSize(1))
	require.NoError(t, err)
	defer d.Release()

	done := make(chan struct{})
	require.NoError(t, d.Submit(func(emit func(Event)) {
		defer close(done)
		emit(LogEvent{Message: "kept"})
		emit(LogEvent{Message: "dropped"})
	}))
	<-done

	event := <-d.Events()
	log, ok := event.(LogEvent)
	require.True(t, ok)
	assert.Equal(t, "kept", log.Message)

	select {
	case extra := <-d.Events():
		t.Fatalf("expected overflow event to be dropped, got %#v", extra)
	default:
	}
}

func TestDispatcherSubmitAfterRelease(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)

	d.Release()
	err = d.Submit(func(emit func(Event)) {})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestDispatcherReleaseClosesEvents(t *testing.T) {
	d, err := NewDispatcher()
	require.NoError(t, err)

	d.Release()
	_, ok := <-d.Events()
	assert.False(t, ok)

	// Release is idempotent.
	d.Release()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "searching", StateSearching.String())
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "error", StateError.String())
}
