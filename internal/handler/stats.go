package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/service"
)

// Reports is the read-only statistics service.
type Reports interface {
	UserReport(ctx context.Context, userID uint64) (*service.UserReport, error)
	BookReport(ctx context.Context, bookID uint64) (*service.BookReport, error)
	Overview(ctx context.Context) (*service.Overview, error)
}

// StatsHandler serves /api/v1/statistics (admin only).
type StatsHandler struct {
	reports Reports
	log     *zap.Logger
}

func NewStatsHandler(reports Reports, log *zap.Logger) *StatsHandler {
	return &StatsHandler{reports: reports, log: log}
}

func (h *StatsHandler) User(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.reports.UserReport(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *StatsHandler) Book(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid book id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.reports.BookReport(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *StatsHandler) Overview(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.reports.Overview(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, r)
}
