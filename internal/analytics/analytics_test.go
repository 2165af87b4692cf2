package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maryam-tariqq/DSA-Project/pkg/kafka"
)

type fakeProducer struct {
	mu     sync.Mutex
	events []kafka.Event
	closed bool
}

func (f *fakeProducer) Publish(ctx context.Context, event kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProducer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestCollectorPublishesTrackedEvents(t *testing.T) {
	fp := &fakeProducer{}
	c := NewCollector(fp, 16)

	c.Track(SearchEvent{Query: "neural network", Mode: "any", NumResults: 3, Timestamp: time.Now().UTC()})
	c.Track(SearchEvent{Query: "graph", Mode: "all", CacheHit: true, Timestamp: time.Now().UTC()})
	require.NoError(t, c.Close())

	assert.True(t, fp.closed)
	require.Len(t, fp.events, 2)
	assert.Equal(t, "any", fp.events[0].Key)
	ev, ok := fp.events[0].Value.(SearchEvent)
	require.True(t, ok)
	assert.Equal(t, "neural network", ev.Query)
}

func TestCollectorDropsWhenBufferFull(t *testing.T) {
	fp := &fakeProducer{}
	c := NewCollector(fp, 1)
	for i := 0; i < 100; i++ {
		c.Track(SearchEvent{Query: "q", Mode: "any"})
	}
	require.NoError(t, c.Close())
	// Track never blocks; everything that made it into the buffer was
	// published.
	assert.NotEmpty(t, fp.events)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Track(SearchEvent{Query: "q"})
	assert.NoError(t, c.Close())
}

func TestNewCollectorNilProducer(t *testing.T) {
	assert.Nil(t, NewCollector(nil, 8))
}
