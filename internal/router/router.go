// Package router wires handlers and middleware into the echo route table.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-management/internal/handler"
	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

// Deps is everything the route table needs.
type Deps struct {
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Books   *handler.BookHandler
	Borrows *handler.BorrowHandler
	Stats   *handler.StatsHandler

	Sessions middleware.Authenticator
	Guard    middleware.RoleChecker

	DB      handler.Pinger
	Metrics http.Handler

	// RateLimit applies to every /api/v1 route, MutationLimit additionally
	// to borrow and return. Nil means unlimited.
	RateLimit     echo.MiddlewareFunc
	MutationLimit echo.MiddlewareFunc
}

func (d Deps) authed() echo.MiddlewareFunc {
	return middleware.Authenticate(d.Sessions, model.TokenAccess)
}

func (d Deps) admin() echo.MiddlewareFunc {
	return middleware.RequireRole(d.Guard, model.PrivilegeAdmin)
}

// Register mounts all routes on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/health", handler.Health(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	api := e.Group("/api/v1")
	if d.RateLimit != nil {
		api.Use(d.RateLimit)
	}
	registerAuth(api, d)
	registerBooks(api, d)
	registerBorrows(api, d)
	registerStatistics(api, d)
}

func registerAuth(api *echo.Group, d Deps) {
	g := api.Group("/auth")
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	// refresh authenticates the refresh token itself inside its transaction
	g.POST("/refresh", d.Auth.Refresh)
	g.GET("/check/username/:value", d.Auth.Check(repository.ByUsername))
	g.GET("/check/email/:value", d.Auth.Check(repository.ByEmail))
	g.GET("/check/phone/:value", d.Auth.Check(repository.ByPhone))

	me := g.Group("", d.authed())
	me.POST("/logout", d.Auth.Logout)
	me.GET("/profile", d.Auth.Profile)
	me.PUT("/profile", d.Auth.UpdateProfile)
	me.POST("/change-password", d.Auth.ChangePassword)

	registerUserAdmin(g, d)
}
