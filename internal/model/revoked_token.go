package model

import "time"

// TokenType distinguishes access from refresh tokens in claims and ledger rows.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Reasons recorded on revoked tokens.
const (
	RevokeRotated        = "rotated"
	RevokeLogout         = "logout"
	RevokePasswordChange = "password_change"
)

// RevokedToken is one entry of the `revoked_tokens` ledger. Rows are only
// inserted; a sweep may delete rows whose ExpiresAt has passed.
type RevokedToken struct {
	ID        uint64    `db:"id"`
	JTI       string    `db:"jti"`
	TokenType TokenType `db:"token_type"`
	UserID    uint64    `db:"user_id"`
	Reason    string    `db:"reason"`
	RevokedAt time.Time `db:"revoked_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
