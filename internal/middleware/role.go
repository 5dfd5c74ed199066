package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/service"
)

// RoleChecker loads a user and checks it meets a privilege level.
type RoleChecker interface {
	RequireRole(ctx context.Context, userID uint64, role model.Privilege) (*model.User, error)
}

// RequireRole must run after Authenticate. The privilege is re-read from the
// database on every request, so a demotion or ban takes effect immediately.
// The loaded user is stored for handlers as the acting admin.
func RequireRole(guard RoleChecker, role model.Privilege) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := Principal(c)
			if !ok {
				return reject(c, http.StatusUnauthorized, service.CodeAuthRequired, "authorization required")
			}
			u, err := guard.RequireRole(c.Request().Context(), p.UserID, role)
			if err != nil {
				if service.KindOf(err) == service.KindPersistence {
					return reject(c, http.StatusInternalServerError, service.CodeInternal, "internal error")
				}
				return reject(c, http.StatusForbidden, service.CodeForbidden, "insufficient privileges")
			}
			c.Set(actorKey, u)
			return next(c)
		}
	}
}
