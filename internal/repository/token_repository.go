package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/iliyamo/library-management/internal/model"
)

const revokedTokensTable = "revoked_tokens"

// TokenRepo is the revocation ledger: one row per invalidated jti.
type TokenRepo struct{}

func NewTokenRepo() *TokenRepo { return &TokenRepo{} }

// Revoke appends t to the ledger. Revoking a jti twice fails with
// ErrDuplicate, which refresh rotation relies on to detect reuse.
func (r *TokenRepo) Revoke(ctx context.Context, q Querier, t model.RevokedToken) error {
	_, err := exec(ctx, q, insertInto(revokedTokensTable).Rows(goqu.Record{
		"jti":        t.JTI,
		"token_type": t.TokenType,
		"user_id":    t.UserID,
		"reason":     t.Reason,
		"revoked_at": t.RevokedAt,
		"expires_at": t.ExpiresAt,
	}))
	return err
}

// IsRevoked reports whether jti is in the ledger.
func (r *TokenRepo) IsRevoked(ctx context.Context, q Querier, jti string) (bool, error) {
	n, err := count(ctx, q, from(revokedTokensTable).Where(goqu.C("jti").Eq(jti)))
	return n > 0, err
}

// PurgeExpired deletes ledger rows of tokens that expired before cutoff;
// such tokens are rejected by their exp claim anyway.
func (r *TokenRepo) PurgeExpired(ctx context.Context, q Querier, cutoff time.Time) (int64, error) {
	res, err := exec(ctx, q, deleteFrom(revokedTokensTable).Where(goqu.C("expires_at").Lt(cutoff)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
