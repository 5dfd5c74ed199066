package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/service"
)

// UserAdmin is account administration as seen by HTTP.
type UserAdmin interface {
	List(ctx context.Context, keyword string, p model.Page) (*service.UserPage, error)
	SetPrivilege(ctx context.Context, actor model.User, targetID uint64, p model.Privilege) error
	Ban(ctx context.Context, actor model.User, targetID uint64) error
	Unban(ctx context.Context, actor model.User, targetID uint64) error
	SoftDelete(ctx context.Context, actor model.User, targetID uint64) error
}

// UserHandler serves the admin side of /api/v1/auth/users. Every route sits
// behind RequireRole, which provides the acting admin.
type UserHandler struct {
	users UserAdmin
	log   *zap.Logger
}

func NewUserHandler(users UserAdmin, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.users.List(ctx, strings.TrimSpace(c.QueryParam("keyword")), pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	users := page.Users
	if users == nil {
		users = []model.UserView{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"users":        users,
		"total":        page.Total,
		"pages":        page.Pages,
		"current_page": page.CurrentPage,
	})
}

type privilegeReq struct {
	Privilege *model.Privilege `json:"privilege"`
}

func (h *UserHandler) SetPrivilege(c echo.Context) error {
	var req privilegeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Privilege == nil {
		return badRequest(c, "privilege is required")
	}
	return h.mutate(c, "privilege updated", func(ctx context.Context, actor model.User, id uint64) error {
		return h.users.SetPrivilege(ctx, actor, id, *req.Privilege)
	})
}

func (h *UserHandler) Ban(c echo.Context) error {
	return h.mutate(c, "user banned", h.users.Ban)
}

func (h *UserHandler) Unban(c echo.Context) error {
	return h.mutate(c, "user unbanned", h.users.Unban)
}

func (h *UserHandler) SoftDelete(c echo.Context) error {
	return h.mutate(c, "user deleted", h.users.SoftDelete)
}

func (h *UserHandler) mutate(c echo.Context, done string, apply func(context.Context, model.User, uint64) error) error {
	actor, ok := middleware.Actor(c)
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "insufficient privileges", "error": service.CodeForbidden})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := apply(ctx, actor, id); err != nil {
		return writeError(c, h.log, err)
	}
	return message(c, http.StatusOK, done)
}
