package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/review-service/internal/metrics"
	pkgkafka "github.com/utafrali/review-service/pkg/kafka"
)

// ErrPublisherOpen is returned while the publish breaker is open.
var ErrPublisherOpen = gobreaker.ErrOpenState

// BreakerConfig controls when publishing stops trying the brokers.
type BreakerConfig struct {
	Name string

	// MaxRequests is how many trial publishes the half-open state lets through.
	MaxRequests uint32

	// Interval clears the failure counts while closed. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig trips after half of at least five publishes failed and
// retries the brokers after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "kafka-publisher",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// breakerWriter fails publishes fast while the brokers are unreachable so
// the write path does not wait out a broker timeout per event.
type breakerWriter struct {
	next    eventWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func newBreakerWriter(next eventWriter, cfg BreakerConfig, logger *slog.Logger) *breakerWriter {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("publish breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.PublisherBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	metrics.PublisherBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &breakerWriter{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func (b *breakerWriter) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Publish(ctx, topic, event)
	})
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
