// Package analytics tracks recommendation and review activity. Services
// push events through a non-blocking Collector to Kafka; the analytics
// service consumes them into an in-memory Aggregator.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/metrics"
)

const (
	maxBatch     = 100
	drainTimeout = 5 * time.Second
)

// Collector buffers events and publishes them in batches from a single
// goroutine. Track never blocks; events are dropped when the buffer is full.
type Collector struct {
	publisher kafka.Publisher
	eventCh   chan kafka.Event
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher kafka.Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan kafka.Event, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.batch(event))
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event keyed by key. Safe after Close (the event is
// dropped).
func (c *Collector) Track(key string, event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- kafka.Event{Key: key, Value: event}:
	default:
		if c.metrics != nil {
			c.metrics.AnalyticsEventsDropped.Inc()
		}
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for buffered ones to be published.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

// batch collects first plus whatever is already queued, up to maxBatch.
func (c *Collector) batch(first kafka.Event) []kafka.Event {
	events := []kafka.Event{first}
	for len(events) < maxBatch {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
	return events
}

func (c *Collector) publish(ctx context.Context, events []kafka.Event) {
	if err := c.publisher.PublishBatch(ctx, events); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(events), "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, c.batch(event))
		default:
			return
		}
	}
}
