package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/utils"
)

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Principal is an authenticated caller.
type Principal struct {
	UserID    uint64
	Privilege model.Privilege
	TokenType model.TokenType
	JTI       string
	Fresh     bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (p Principal) IsAdmin() bool { return p.Privilege == model.PrivilegeAdmin }

// SessionConfig holds the signing secret and token lifetimes.
type SessionConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SessionService issues tokens, validates them against the revocation
// ledger and the credentials epoch, and rotates refresh tokens.
type SessionService struct {
	tx     TxRunner
	users  UserStore
	ledger TokenLedger
	cfg    SessionConfig
	rec    Recorder
	log    *zap.Logger
	now    Clock
}

type SessionOption func(*SessionService)

func WithSessionClock(c Clock) SessionOption       { return func(s *SessionService) { s.now = c } }
func WithSessionRecorder(r Recorder) SessionOption { return func(s *SessionService) { s.rec = r } }

func NewSessionService(tx TxRunner, users UserStore, ledger TokenLedger, cfg SessionConfig, log *zap.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{tx: tx, users: users, ledger: ledger, cfg: cfg, rec: nopRecorder{}, log: log, now: systemClock}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Issue mints a new access/refresh pair for userID. fresh marks the access
// token as coming straight from a password login.
func (s *SessionService) Issue(userID uint64, fresh bool) (TokenPair, error) {
	now := s.now()
	access, err := utils.NewToken(s.cfg.Secret, utils.TokenSpec{UserID: userID, Type: model.TokenAccess, Fresh: fresh, TTL: s.cfg.AccessTTL}, now)
	if err != nil {
		return TokenPair{}, persistence(err)
	}
	refresh, err := utils.NewToken(s.cfg.Secret, utils.TokenSpec{UserID: userID, Type: model.TokenRefresh, TTL: s.cfg.RefreshTTL}, now)
	if err != nil {
		return TokenPair{}, persistence(err)
	}
	return TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// Authenticate validates raw as a token of type want. Checks run in order:
// signature and expiry, token type, revocation ledger, then the user's
// credentials epoch. A failed ledger or user lookup rejects the token.
func (s *SessionService) Authenticate(ctx context.Context, raw string, want model.TokenType) (*Principal, error) {
	return s.authenticate(ctx, s.tx.Q(), raw, want)
}

func (s *SessionService) authenticate(ctx context.Context, q repository.Querier, raw string, want model.TokenType) (*Principal, error) {
	if raw == "" {
		return nil, unauthorized(CodeAuthRequired, "missing authorization token")
	}
	claims, err := utils.ParseToken(s.cfg.Secret, raw, s.now())
	if errors.Is(err, utils.ErrTokenExpired) {
		return nil, unauthorized(CodeTokenExpired, "token has expired")
	}
	if err != nil {
		return nil, unauthorized(CodeInvalidToken, "invalid token")
	}
	if claims.TokenType != want {
		return nil, unauthorized(CodeInvalidToken, "wrong token type")
	}
	userID, _ := claims.UserID()

	revoked, err := s.ledger.IsRevoked(ctx, q, claims.ID)
	if err != nil {
		s.log.Warn("revocation lookup failed, rejecting token", zap.String("jti", claims.ID), zap.Error(err))
		return nil, unauthorized(CodeTokenRevoked, "token could not be verified")
	}
	if revoked {
		return nil, unauthorized(CodeTokenRevoked, "token has been revoked")
	}

	user, err := s.users.GetByID(ctx, q, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorized(CodeInvalidToken, "token subject no longer exists")
	}
	if err != nil {
		s.log.Warn("user lookup failed, rejecting token", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, unauthorized(CodeTokenRevoked, "token could not be verified")
	}
	issued := claims.IssuedAt.Time
	if issued.Before(user.PasswordChangedAt) {
		return nil, unauthorized(CodeTokenRevoked, "token predates the last password change")
	}

	return &Principal{
		UserID:    userID,
		Privilege: user.Privilege,
		TokenType: claims.TokenType,
		JTI:       claims.ID,
		Fresh:     claims.Fresh,
		IssuedAt:  issued,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Refresh redeems a refresh token exactly once. The old jti is written to
// the ledger in the same transaction that produces the new pair; the pair is
// only returned after that transaction commits.
func (s *SessionService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	var pair TokenPair
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		p, err := s.authenticate(ctx, q, raw, model.TokenRefresh)
		if err != nil {
			return err
		}
		err = s.ledger.Revoke(ctx, q, model.RevokedToken{
			JTI:       p.JTI,
			TokenType: model.TokenRefresh,
			UserID:    p.UserID,
			Reason:    model.RevokeRotated,
			RevokedAt: dbNow(s.now),
			ExpiresAt: p.ExpiresAt,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return unauthorized(CodeTokenRevoked, "token has been revoked")
		}
		if err != nil {
			return err
		}
		pair, err = s.Issue(p.UserID, false)
		return err
	})
	s.rec.Operation("refresh", outcome(err))
	if err != nil {
		ae := asAppError(err)
		if ae.Kind == KindPersistence {
			s.log.Error("refresh failed", zap.Error(err))
		}
		return TokenPair{}, ae
	}
	return pair, nil
}

// Logout revokes the caller's access token and, when given, a refresh token
// belonging to the same user. Already revoked tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, caller Principal, refreshRaw string) error {
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		if err := s.revoke(ctx, q, caller, model.RevokeLogout); err != nil {
			return err
		}
		if refreshRaw == "" {
			return nil
		}
		claims, err := utils.ParseToken(s.cfg.Secret, refreshRaw, s.now())
		if err != nil || claims.TokenType != model.TokenRefresh {
			return nil
		}
		if owner, _ := claims.UserID(); owner != caller.UserID {
			return nil
		}
		return s.revoke(ctx, q, Principal{
			UserID:    caller.UserID,
			TokenType: model.TokenRefresh,
			JTI:       claims.ID,
			ExpiresAt: claims.ExpiresAt.Time,
		}, model.RevokeLogout)
	})
	s.rec.Operation("logout", outcome(err))
	if err != nil {
		s.log.Error("logout failed", zap.Uint64("user_id", caller.UserID), zap.Error(err))
		return asAppError(err)
	}
	return nil
}

// revoke adds p's jti to the ledger, treating an existing entry as success.
func (s *SessionService) revoke(ctx context.Context, q repository.Querier, p Principal, reason string) error {
	err := s.ledger.Revoke(ctx, q, model.RevokedToken{
		JTI:       p.JTI,
		TokenType: p.TokenType,
		UserID:    p.UserID,
		Reason:    reason,
		RevokedAt: dbNow(s.now),
		ExpiresAt: p.ExpiresAt,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}
