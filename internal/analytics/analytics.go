// Package analytics publishes query events to Kafka for offline
// analysis. Tracking is fire-and-forget: a slow or unavailable broker
// never delays a search response.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maryam-tariqq/DSA-Project/pkg/kafka"
	"github.com/maryam-tariqq/DSA-Project/pkg/logger"
)

// SearchEvent records one served query.
type SearchEvent struct {
	Query      string    `json:"query"`
	Mode       string    `json:"mode"`
	NumResults int       `json:"num_results"`
	TookMS     int64     `json:"took_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
}

// Producer is the transport the collector publishes through.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
	Close() error
}

// Collector buffers events and drains them on a background goroutine.
// A nil *Collector is valid and drops everything.
type Collector struct {
	producer Producer
	events   chan SearchEvent
	logger   *slog.Logger
	wg       sync.WaitGroup
	dropped  int64
	mu       sync.Mutex
}

// NewCollector starts the drain goroutine. bufferSize bounds how many
// events can be pending before Track starts dropping.
func NewCollector(producer Producer, bufferSize int) *Collector {
	if producer == nil {
		return nil
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	c := &Collector{
		producer: producer,
		events:   make(chan SearchEvent, bufferSize),
		logger:   logger.WithComponent("analytics"),
	}
	c.wg.Add(1)
	go c.drain()
	return c
}

// Track enqueues an event, dropping it if the buffer is full.
func (c *Collector) Track(ev SearchEvent) {
	if c == nil {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.mu.Lock()
		c.dropped++
		n := c.dropped
		c.mu.Unlock()
		if n%1000 == 1 {
			c.logger.Warn("analytics buffer full, dropping events", "dropped", n)
		}
	}
}

func (c *Collector) drain() {
	defer c.wg.Done()
	for ev := range c.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.producer.Publish(ctx, kafka.Event{
			Key:   ev.Mode,
			Value: ev,
		})
		cancel()
		if err != nil {
			c.logger.Warn("publishing search event", "error", err)
		}
	}
}

// Close stops accepting events, flushes the buffer, and closes the
// producer.
func (c *Collector) Close() error {
	if c == nil {
		return nil
	}
	close(c.events)
	c.wg.Wait()
	return c.producer.Close()
}
