package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RevocationSweeper periodically deletes ledger rows of tokens that have
// expired anyway.
type RevocationSweeper struct {
	tx       TxRunner
	ledger   TokenLedger
	interval time.Duration
	purged   func(int64)
	log      *zap.Logger
	now      Clock
}

func NewRevocationSweeper(tx TxRunner, ledger TokenLedger, interval time.Duration, purged func(int64), log *zap.Logger) *RevocationSweeper {
	if purged == nil {
		purged = func(int64) {}
	}
	return &RevocationSweeper{tx: tx, ledger: ledger, interval: interval, purged: purged, log: log, now: systemClock}
}

// Run sweeps once per interval until ctx is cancelled. A non-positive
// interval disables the sweeper.
func (s *RevocationSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("revocation sweeper disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("revocation sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("revocation sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("revocation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep deletes expired ledger rows once and returns how many went.
func (s *RevocationSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.ledger.PurgeExpired(ctx, s.tx.Q(), dbNow(s.now))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.purged(n)
		s.log.Debug("revocation ledger purged", zap.Int64("rows", n))
	}
	return n, nil
}
