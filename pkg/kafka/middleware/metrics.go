package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"courtbook/pkg/kafka"
)

// Metrics accumulates Kafka operation counters. All fields are updated
// atomically; a single instance may be shared by several middlewares.
type Metrics struct {
	MessagesPublished       int64
	MessagesPublishedFailed int64
	PublishDurationTotal    int64 // nanoseconds

	MessagesConsumed       int64
	MessagesConsumedFailed int64
	ConsumeDurationTotal   int64 // nanoseconds
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.MessagesPublished, 0)
	atomic.StoreInt64(&m.MessagesPublishedFailed, 0)
	atomic.StoreInt64(&m.PublishDurationTotal, 0)
	atomic.StoreInt64(&m.MessagesConsumed, 0)
	atomic.StoreInt64(&m.MessagesConsumedFailed, 0)
	atomic.StoreInt64(&m.ConsumeDurationTotal, 0)
}

// AvgPublishDuration returns the average publish latency so far.
func (m *Metrics) AvgPublishDuration() time.Duration {
	published := atomic.LoadInt64(&m.MessagesPublished)
	if published == 0 {
		return 0
	}
	total := atomic.LoadInt64(&m.PublishDurationTotal)
	return time.Duration(total / published)
}

// AvgConsumeDuration returns the average processing latency so far.
func (m *Metrics) AvgConsumeDuration() time.Duration {
	consumed := atomic.LoadInt64(&m.MessagesConsumed)
	if consumed == 0 {
		return 0
	}
	total := atomic.LoadInt64(&m.ConsumeDurationTotal)
	return time.Duration(total / consumed)
}

// Snapshot returns the current counters as log fields.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"messages_published":        atomic.LoadInt64(&m.MessagesPublished),
		"messages_published_failed": atomic.LoadInt64(&m.MessagesPublishedFailed),
		"messages_consumed":         atomic.LoadInt64(&m.MessagesConsumed),
		"messages_consumed_failed":  atomic.LoadInt64(&m.MessagesConsumedFailed),
	}
}

// MetricsProducerMiddleware tracks publish counts and latency.
func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		duration := time.Since(start)
		atomic.AddInt64(&m.PublishDurationTotal, int64(duration))

		if err != nil {
			atomic.AddInt64(&m.MessagesPublishedFailed, 1)
		} else {
			atomic.AddInt64(&m.MessagesPublished, 1)
		}

		return err
	}
}

// MetricsConsumerMiddleware tracks consume counts and latency.
func MetricsConsumerMiddleware(m *Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		duration := time.Since(start)
		atomic.AddInt64(&m.ConsumeDurationTotal, int64(duration))

		if err != nil {
			atomic.AddInt64(&m.MessagesConsumedFailed, 1)
		} else {
			atomic.AddInt64(&m.MessagesConsumed, 1)
		}

		return err
	}
}
