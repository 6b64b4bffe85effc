package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/event"
	"github.com/utafrali/review-service/internal/repository/memory"
	"github.com/utafrali/review-service/internal/sanitize"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// recordingPublisher remembers the topics it was asked to publish.
type recordingPublisher struct {
	mu      sync.Mutex
	topics  []string
	ratings []domain.RatingAggregate
	err     error
}

func (p *recordingPublisher) record(topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) ReviewCreated(context.Context, *domain.Review) error {
	return p.record(event.TopicReviewCreated)
}

func (p *recordingPublisher) ReviewUpdated(context.Context, *domain.Review) error {
	return p.record(event.TopicReviewUpdated)
}

func (p *recordingPublisher) ReviewDeleted(context.Context, *domain.Review) error {
	return p.record(event.TopicReviewDeleted)
}

func (p *recordingPublisher) ReviewModerated(context.Context, *domain.Review, *domain.ModerationLogEntry) error {
	return p.record(event.TopicReviewModerated)
}

func (p *recordingPublisher) RatingUpdated(_ context.Context, _ string, agg domain.RatingAggregate) error {
	p.mu.Lock()
	p.ratings = append(p.ratings, agg)
	p.mu.Unlock()
	return p.record(event.TopicProductRatingUpdated)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type fixture struct {
	svc    *ReviewService
	store  *memory.Store
	events *recordingPublisher
}

// newFixture seeds two products and three users. user-1 and user-2 have
// delivered orders for prod-1; user-3 has none.
func newFixture(t *testing.T, policy Policy) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.AddProduct("prod-1")
	store.AddProduct("prod-2")
	store.AddUser(domain.UserProfile{ID: "user-1", Email: "Alice@Example.com", FirstName: "Alice", LastName: "Smith"})
	store.AddUser(domain.UserProfile{ID: "user-2", Email: "bob@example.com", FirstName: "Bob"})
	store.AddUser(domain.UserProfile{ID: "user-3", Email: "carol@example.com"})
	store.AddOrder(memory.Order{ID: "order-1", UserID: "user-1", Status: domain.OrderStatusDelivered, ProductIDs: []string{"prod-1"}, CreatedAt: base})
	store.AddOrder(memory.Order{ID: "order-2", UserID: "user-2", Status: domain.OrderStatusDelivered, ProductIDs: []string{"prod-1", "prod-2"}, CreatedAt: base})

	events := &recordingPublisher{}
	svc := NewReviewService(store, store,
		sanitize.New(sanitize.Options{ProfanityFilter: true}),
		events, policy,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	clock := base
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &fixture{svc: svc, store: store, events: events}
}

func dist(one, two, three, four, five int) map[int]int {
	return map[int]int{1: one, 2: two, 3: three, 4: four, 5: five}
}

func (f *fixture) aggregate(t *testing.T, productID string) domain.RatingAggregate {
	t.Helper()
	agg, ok := f.store.Aggregate(productID)
	require.True(t, ok, "product %s not seeded", productID)
	return agg
}

// assertAggregateMatchesApproved checks the stored aggregate against the
// approved reviews currently listed for the product.
func (f *fixture) assertAggregateMatchesApproved(t *testing.T, productID string) {
	t.Helper()

	page, err := f.svc.GetProductReviews(context.Background(), productID, ReviewListQuery{PerPage: 100})
	require.NoError(t, err)

	counts := map[int]int{}
	sum := 0
	for _, r := range page.Data {
		require.True(t, r.IsApproved)
		counts[r.Rating]++
		sum += r.Rating
	}

	agg := f.aggregate(t, productID)
	assert.Equal(t, page.TotalCount, agg.ReviewCount)
	if page.TotalCount == 0 {
		assert.Zero(t, agg.AverageRating)
	} else {
		assert.InDelta(t, float64(sum)/float64(page.TotalCount), agg.AverageRating, 1e-9)
	}
	assert.Equal(t, domain.NewRatingAggregate(counts).Distribution, agg.Distribution)
}
