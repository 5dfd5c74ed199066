package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/service"
)

// Accounts is the account side of the auth endpoints.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (uint64, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Profile(ctx context.Context, userID uint64) (*model.UserView, error)
	UpdateProfile(ctx context.Context, userID uint64, in service.ProfileInput) (*model.UserView, error)
	ChangePassword(ctx context.Context, caller service.Principal, in service.ChangePasswordInput) error
	Available(ctx context.Context, field repository.Identifier, value string) (bool, error)
}

// Sessions rotates and ends sessions.
type Sessions interface {
	Refresh(ctx context.Context, raw string) (service.TokenPair, error)
	Logout(ctx context.Context, caller service.Principal, refreshRaw string) error
}

// AuthHandler serves /api/v1/auth.
type AuthHandler struct {
	accounts Accounts
	sessions Sessions
	log      *zap.Logger
}

func NewAuthHandler(accounts Accounts, sessions Sessions, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, log: log}
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account. It does not log the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.accounts.Register(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "registered", "user_id": id})
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.accounts.Login(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Refresh redeems a refresh token, read from the bearer header or from the
// body, for a new pair. The presented token cannot be used again.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := middleware.BearerToken(c.Request())
	if raw == "" {
		var req refreshReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		raw = req.RefreshToken
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.sessions.Refresh(ctx, raw)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout revokes the access token in use and the optional refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.sessions.Logout(ctx, p, req.RefreshToken); err != nil {
		return writeError(c, h.log, err)
	}
	return message(c, http.StatusOK, "logged out")
}

func (h *AuthHandler) Profile(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.accounts.Profile(ctx, p.UserID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req service.ProfileInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.accounts.UpdateProfile(ctx, p.UserID, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated", "user": u})
}

// ChangePassword needs a fresh access token; every earlier token of the user
// stops working once it succeeds.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req service.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.accounts.ChangePassword(ctx, p, req); err != nil {
		return writeError(c, h.log, err)
	}
	return message(c, http.StatusOK, "password changed, please log in again")
}

// Check reports whether a username, email or phone is still free.
func (h *AuthHandler) Check(field repository.Identifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		value := c.Param("value")
		if value == "" {
			return badRequest(c, string(field)+" is required")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()

		free, err := h.accounts.Available(ctx, field, value)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"available": free})
	}
}
