package sync

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnichan/backend/pkg/logger"
)

func TestDispatcherProcessesEnqueuedEvents(t *testing.T) {
	f := newFixture(t)
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	d := NewDispatcher(f.engine, DispatcherConfig{QueueSize: 16, Workers: 2}, log)
	d.Start()

	ok := d.Enqueue(inboundEvent("m1", "Hello", time.UnixMilli(1700000000000)))
	assert.True(t, ok)

	d.Close()

	count, err := f.messages.CountByConversation(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	f := newFixture(t)
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	// workers never started, so the queue only drains on capacity
	d := NewDispatcher(f.engine, DispatcherConfig{QueueSize: 1, Workers: 1}, log)

	assert.True(t, d.Enqueue(inboundEvent("m1", "first", time.Now())))
	assert.False(t, d.Enqueue(inboundEvent("m2", "second", time.Now())))
	assert.Equal(t, 1, d.Pending())
}

func TestDispatcherSurvivesProcessingErrors(t *testing.T) {
	f := newFixture(t)
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})

	d := NewDispatcher(f.engine, DispatcherConfig{QueueSize: 16, Workers: 1}, log)
	d.Start()

	// unknown page: processed and dropped without error surfacing anywhere
	ev := inboundEvent("m1", "Hello", time.Now())
	ev.PageID = "unconnected"
	require.True(t, d.Enqueue(ev))
	require.True(t, d.Enqueue(inboundEvent("m2", "still works", time.UnixMilli(1700000000000))))

	d.Close()

	count, err := f.messages.CountByConversation(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
