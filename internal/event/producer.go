package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/review-service/internal/domain"
	pkgkafka "github.com/utafrali/review-service/pkg/kafka"
	"github.com/utafrali/review-service/pkg/logger"
)

// eventWriter is satisfied by *pkgkafka.Producer.
type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review events to Kafka.
type Producer struct {
	kafka  eventWriter
	logger *slog.Logger
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a new event producer for the review service. Publishes
// go through a circuit breaker configured by DefaultBreakerConfig.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return newProducer(newBreakerWriter(kafka, DefaultBreakerConfig(), logger), logger)
}

func newProducer(w eventWriter, logger *slog.Logger) *Producer {
	return &Producer{kafka: w, logger: logger}
}

// ReviewCreated publishes a review.created event.
func (p *Producer) ReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, review.ID, AggregateTypeReview, newReviewData(review))
}

// ReviewUpdated publishes a review.updated event.
func (p *Producer) ReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewUpdated, review.ID, AggregateTypeReview, newReviewData(review))
}

// ReviewDeleted publishes a review.deleted event.
func (p *Producer) ReviewDeleted(ctx context.Context, review *domain.Review) error {
	data := ReviewDeletedData{ReviewID: review.ID, ProductID: review.ProductID}
	return p.publish(ctx, TopicReviewDeleted, review.ID, AggregateTypeReview, data)
}

// ReviewModerated publishes a review.moderated event for one log entry.
func (p *Producer) ReviewModerated(ctx context.Context, review *domain.Review, entry *domain.ModerationLogEntry) error {
	data := ReviewModeratedData{
		ReviewID:    review.ID,
		ProductID:   review.ProductID,
		ModeratorID: entry.ModeratorID,
		Action:      entry.Action,
		Reason:      entry.Reason,
	}
	return p.publish(ctx, TopicReviewModerated, review.ID, AggregateTypeReview, data)
}

// RatingUpdated publishes a product.rating_updated event keyed by product.
func (p *Producer) RatingUpdated(ctx context.Context, productID string, agg domain.RatingAggregate) error {
	data := RatingUpdatedData{
		ProductID:          productID,
		ReviewCount:        agg.ReviewCount,
		AverageRating:      agg.AverageRating,
		RatingDistribution: agg.Distribution,
	}
	return p.publish(ctx, TopicProductRatingUpdated, productID, AggregateTypeProduct, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceReviewService, data,
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithActor(logger.UserIDFromContext(ctx)),
	)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
