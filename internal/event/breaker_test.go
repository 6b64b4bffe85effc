package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/review-service/internal/domain"
	pkgkafka "github.com/utafrali/review-service/pkg/kafka"
)

type countingWriter struct {
	calls int
	err   error
}

func (w *countingWriter) Publish(context.Context, string, *pkgkafka.Event) error {
	w.calls++
	return w.err
}

func TestBreakerWriter_OpensAfterFailures(t *testing.T) {
	w := &countingWriter{err: errors.New("broker unreachable")}
	b := newBreakerWriter(w, BreakerConfig{
		Name:         "test-breaker-open",
		MaxRequests:  1,
		Timeout:      time.Hour,
		FailureRatio: 0.5,
		MinRequests:  2,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := b.Publish(ctx, TopicReviewCreated, &pkgkafka.Event{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPublisherOpen)
	}

	err := b.Publish(ctx, TopicReviewCreated, &pkgkafka.Event{})
	assert.ErrorIs(t, err, ErrPublisherOpen)
	assert.Equal(t, 2, w.calls, "open breaker must not reach the brokers")
}

func TestBreakerWriter_PassesThroughWhenHealthy(t *testing.T) {
	w := &countingWriter{}
	b := newBreakerWriter(w, DefaultBreakerConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(context.Background(), TopicReviewUpdated, &pkgkafka.Event{}))
	}
	assert.Equal(t, 10, w.calls)
}

func TestProducer_BreakerErrorIsWrapped(t *testing.T) {
	w := &countingWriter{err: errors.New("down")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := newProducer(newBreakerWriter(w, BreakerConfig{
		Name:         "test-breaker-wrap",
		Timeout:      time.Hour,
		FailureRatio: 1,
		MinRequests:  1,
	}, logger), logger)

	require.Error(t, p.RatingUpdated(context.Background(), "prod-1", domain.NewRatingAggregate(map[int]int{4: 1})))
	err := p.RatingUpdated(context.Background(), "prod-1", domain.NewRatingAggregate(map[int]int{4: 1}))
	assert.ErrorIs(t, err, ErrPublisherOpen)
	assert.Contains(t, err.Error(), TopicProductRatingUpdated)
}
