// Package middleware contains the echo middleware that runs in front of the
// handlers: bearer authentication, the role gate, rate limiting and request
// logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/service"
)

// Authenticator validates a raw bearer token of the wanted type.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string, want model.TokenType) (*service.Principal, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get(echo.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Authenticate rejects requests without a valid token of type want. On
// success the principal and the numeric user id are stored in the context.
func Authenticate(auth Authenticator, want model.TokenType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := auth.Authenticate(c.Request().Context(), BearerToken(c.Request()), want)
			if err != nil {
				code := service.CodeOf(err)
				if service.KindOf(err) != service.KindUnauthorized {
					// persistence failures during authentication still deny
					code = service.CodeTokenRevoked
				}
				return reject(c, http.StatusUnauthorized, code, unauthorizedMessage(code))
			}
			c.Set(principalKey, p)
			c.Set(userIDKey, p.UserID)
			return next(c)
		}
	}
}

func unauthorizedMessage(code string) string {
	switch code {
	case service.CodeAuthRequired:
		return "authorization required"
	case service.CodeTokenExpired:
		return "token has expired"
	case service.CodeTokenRevoked:
		return "token has been revoked"
	case service.CodeFreshTokenRequired:
		return "fresh token required"
	default:
		return "invalid token"
	}
}
