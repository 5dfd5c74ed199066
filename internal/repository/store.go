package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx so every repository
// method runs inside or outside a transaction alike.
type Querier interface {
	sqlx.ExtContext
}

// Store owns the connection pool and runs transactions.
type Store struct {
	DB          *sqlx.DB
	log         *zap.Logger
	maxAttempts int
	baseDelay   time.Duration
}

type StoreOption func(*Store)

// WithMaxAttempts bounds how often a deadlocked transaction is replayed.
func WithMaxAttempts(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d >= 0 {
			s.baseDelay = d
		}
	}
}

func NewStore(db *sqlx.DB, log *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{DB: db, log: log, maxAttempts: defaultMaxAttempts, baseDelay: defaultBaseDelay}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Q returns the non-transactional querier.
func (s *Store) Q() Querier { return s.DB }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// InTx runs fn in a single transaction. The transaction commits only when fn
// returns nil; any error rolls every statement back. Transactions aborted by
// a deadlock or lock wait timeout are replayed from the start, so fn must not
// have side effects outside the transaction.
func (s *Store) InTx(ctx context.Context, fn func(q Querier) error) error {
	attempt := 0
	return retryWithBackoff(ctx, s.maxAttempts, s.baseDelay, func(ctx context.Context) error {
		attempt++
		err := s.runTx(ctx, fn)
		if err != nil && IsRetryable(err) {
			s.log.Warn("transaction aborted by lock conflict", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}

func (s *Store) runTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
