package middleware

// identity.go holds the context keys shared by the middleware chain and the
// handlers, plus accessors for the authenticated caller.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/service"
)

const (
	principalKey = "principal"
	userIDKey    = "user_id"
	actorKey     = "actor"
	requestIDKey = "request_id"
)

// Principal returns the caller set by Authenticate.
func Principal(c echo.Context) (service.Principal, bool) {
	p, ok := c.Get(principalKey).(*service.Principal)
	if !ok || p == nil {
		return service.Principal{}, false
	}
	return *p, true
}

// Actor returns the user row loaded by RequireRole.
func Actor(c echo.Context) (model.User, bool) {
	u, ok := c.Get(actorKey).(*model.User)
	if !ok || u == nil {
		return model.User{}, false
	}
	return *u, true
}

// RequestID returns the id assigned by RequestLogger, or "".
func RequestID(c echo.Context) string {
	s, _ := c.Get(requestIDKey).(string)
	return s
}

// currentUserID is the caller id as a string, "anon" before authentication.
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// reject writes the standard error body.
func reject(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"message": msg, "error": code})
}
