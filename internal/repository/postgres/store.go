package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/review-service/internal/repository"
	"github.com/utafrali/review-service/pkg/database"
)

// Store exposes every repository over one connection: the pool for plain
// reads, or a transaction inside TxManager.WithinTx.
type Store struct {
	reviews  *ReviewRepository
	votes    *VoteRepository
	reports  *ReportRepository
	logs     *ModerationLogRepository
	products *ProductRepository
	users    *UserRepository
	orders   *OrderRepository
}

// NewStore builds a Store whose repositories all run against db.
func NewStore(db database.DBTX) *Store {
	return &Store{
		reviews:  NewReviewRepository(db),
		votes:    NewVoteRepository(db),
		reports:  NewReportRepository(db),
		logs:     NewModerationLogRepository(db),
		products: NewProductRepository(db),
		users:    NewUserRepository(db),
		orders:   NewOrderRepository(db),
	}
}

func (s *Store) Reviews() repository.ReviewRepository { return s.reviews }
func (s *Store) Votes() repository.VoteRepository { return s.votes }
func (s *Store) Reports() repository.ReportRepository { return s.reports }
func (s *Store) ModerationLogs() repository.ModerationLogRepository { return s.logs }
func (s *Store) Products() repository.ProductRepository { return s.products }
func (s *Store) Users() repository.UserRepository { return s.users }
func (s *Store) Orders() repository.OrderRepository { return s.orders }

// TxManager opens read-committed transactions on a pool.
type TxManager struct {
	pool database.Pool
}

// NewTxManager creates a TxManager over pool.
func NewTxManager(pool database.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx runs fn inside one transaction and commits when it returns nil.
// Any error, including a failed commit, leaves nothing persisted.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, NewStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
