// Package memory is an in-process implementation of the repository
// interfaces. Transactions run against a copy of the data that replaces the
// live state only on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/review-service/internal/domain"
	"github.com/utafrali/review-service/internal/repository"
)

// Order is the minimal order shape purchase verification needs.
type Order struct {
	ID         string
	UserID     string
	Status     string
	ProductIDs []string
	CreatedAt  time.Time
}

type product struct {
	aggregate domain.RatingAggregate
	updatedAt time.Time
}

type state struct {
	reviews  map[string]*domain.Review
	votes    map[string]*domain.HelpfulVote
	reports  map[string]*domain.Report
	logs     []domain.ModerationLogEntry
	products map[string]*product
	users    map[string]domain.UserProfile
	orders   []Order
}

func newState() *state {
	return &state{
		reviews:  make(map[string]*domain.Review),
		votes:    make(map[string]*domain.HelpfulVote),
		reports:  make(map[string]*domain.Report),
		products: make(map[string]*product),
		users:    make(map[string]domain.UserProfile),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, rv := range s.reviews {
		c.reviews[id] = rv.Clone()
	}
	for id, v := range s.votes {
		cp := *v
		c.votes[id] = &cp
	}
	for id, rp := range s.reports {
		cp := *rp
		c.reports[id] = &cp
	}
	c.logs = append(c.logs, s.logs...)
	for id, p := range s.products {
		cp := *p
		cp.aggregate.Distribution = copyDistribution(p.aggregate.Distribution)
		c.products[id] = &cp
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	c.orders = append(c.orders, s.orders...)
	return c
}

// Store implements repository.Store and repository.Transactor.
type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
}

var (
	_ repository.Store      = (*Store)(nil)
	_ repository.Transactor = (*Store)(nil)
)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), faults: make(map[string]error)}
}

// WithinTx serializes transactions. fn sees a private copy of the data that
// becomes visible only if fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.data.clone()
	if err := fn(ctx, &txStore{v: &view{store: s, st: work}}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) live() *view { return &view{store: s} }

func (s *Store) Reviews() repository.ReviewRepository { return &reviewRepo{s.live()} }
func (s *Store) Votes() repository.VoteRepository { return &voteRepo{s.live()} }
func (s *Store) Reports() repository.ReportRepository { return &reportRepo{s.live()} }
func (s *Store) ModerationLogs() repository.ModerationLogRepository { return &logRepo{s.live()} }
func (s *Store) Products() repository.ProductRepository { return &productRepo{s.live()} }
func (s *Store) Users() repository.UserRepository { return &userRepo{s.live()} }
func (s *Store) Orders() repository.OrderRepository { return &orderRepo{s.live()} }

// AddProduct registers a product with an empty aggregate.
func (s *Store) AddProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.products[id] = &product{aggregate: domain.NewRatingAggregate(nil)}
}

// AddUser registers a user profile.
func (s *Store) AddUser(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[p.ID] = p
}

// AddOrder registers an order. UserID must match a profile for guest email
// verification to find it.
func (s *Store) AddOrder(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.orders = append(s.data.orders, o)
}

// Aggregate returns the stored rating aggregate of a product.
func (s *Store) Aggregate(productID string) (domain.RatingAggregate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.products[productID]
	if !ok {
		return domain.RatingAggregate{}, false
	}
	agg := p.aggregate
	agg.Distribution = copyDistribution(agg.Distribution)
	return agg, true
}

// InjectFault makes the next call of op fail with err. op is
// "<repository>.<Method>", for example "products.UpdateRatingAggregate".
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

type txStore struct {
	v *view
}

func (t *txStore) Reviews() repository.ReviewRepository { return &reviewRepo{t.v} }
func (t *txStore) Votes() repository.VoteRepository { return &voteRepo{t.v} }
func (t *txStore) Reports() repository.ReportRepository { return &reportRepo{t.v} }
func (t *txStore) ModerationLogs() repository.ModerationLogRepository { return &logRepo{t.v} }
func (t *txStore) Products() repository.ProductRepository { return &productRepo{t.v} }
func (t *txStore) Users() repository.UserRepository { return &userRepo{t.v} }
func (t *txStore) Orders() repository.OrderRepository { return &orderRepo{t.v} }

// view resolves the data a repository call works on. Inside a transaction
// st is the private copy and the store lock is already held.
type view struct {
	store *Store
	st    *state
}

func (v *view) acquire() (*state, func()) {
	if v.st != nil {
		return v.st, func() {}
	}
	v.store.mu.Lock()
	return v.store.data, v.store.mu.Unlock
}

// fault returns and clears the error injected for op. Callers hold the lock.
func (v *view) fault(op string) error {
	err, ok := v.store.faults[op]
	if !ok {
		return nil
	}
	delete(v.store.faults, op)
	return err
}

func copyDistribution(d map[int]int) map[int]int {
	if d == nil {
		return nil
	}
	c := make(map[int]int, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
