package utils // package utils provides token, password and input helpers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/library-management/internal/model"
)

func init() {
	// iat is compared with users.password_changed_at, stored in milliseconds.
	// Tokens are minted on whole milliseconds; the extra digits keep the
	// float64 decode from truncating them into the previous one.
	jwt.TimePrecision = time.Microsecond
}

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims are the JWT claims of both access and refresh tokens. ID is the jti
// and Subject the decimal user id. Fresh marks access tokens minted directly
// from a password login rather than from a refresh.
type Claims struct {
	TokenType model.TokenType `json:"token_type"`
	Fresh     bool            `json:"fresh,omitempty"`
	jwt.RegisteredClaims
}

// TokenSpec describes a token to mint.
type TokenSpec struct {
	UserID uint64
	Type   model.TokenType
	Fresh  bool
	TTL    time.Duration
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// SignedToken is a serialized JWT together with the claims it carries.
type SignedToken struct {
	Token  string
	Claims Claims
}

func (t SignedToken) JTI() string          { return t.Claims.ID }
func (t SignedToken) ExpiresAt() time.Time { return t.Claims.ExpiresAt.Time }

// NewToken builds and signs an HS256 JWT described by spec. Every token gets
// a random jti.
func NewToken(secret string, spec TokenSpec, now time.Time) (SignedToken, error) {
	now = now.UTC().Truncate(time.Millisecond)
	claims := Claims{
		TokenType: spec.Type,
		Fresh:     spec.Fresh && spec.Type == model.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(spec.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(spec.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Claims: claims}, nil
}

// ParseToken verifies signature and expiry against now and returns the
// claims. Expired tokens yield ErrTokenExpired; anything else that fails
// yields an error wrapping ErrTokenInvalid.
func ParseToken(secret, raw string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if claims.ID == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing jti or iat", ErrTokenInvalid)
	}
	// fractional seconds come back through float64; snap to the millisecond
	claims.IssuedAt = jwt.NewNumericDate(claims.IssuedAt.Round(time.Millisecond).UTC())
	claims.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt.Round(time.Millisecond).UTC())
	if claims.TokenType != model.TokenAccess && claims.TokenType != model.TokenRefresh {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrTokenInvalid, claims.TokenType)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return claims, nil
}
