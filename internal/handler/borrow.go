package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/service"
)

// Lending is the borrow engine as seen by HTTP.
type Lending interface {
	Borrow(ctx context.Context, userID, bookID uint64) (*service.BorrowReceipt, error)
	Return(ctx context.Context, userID, borrowID uint64) (*service.ReturnReceipt, error)
	ListMine(ctx context.Context, userID uint64, status *model.BorrowStatus, p model.Page) (*service.BorrowPage, error)
	ListMyOverdue(ctx context.Context, userID uint64, p model.Page) (*service.BorrowPage, error)
	ListAll(ctx context.Context, f repository.BorrowFilter, p model.Page) (*service.BorrowPage, error)
	Get(ctx context.Context, caller service.Principal, borrowID uint64) (*model.BorrowView, error)
}

// BorrowHandler serves /api/v1/borrows.
type BorrowHandler struct {
	lending Lending
	log     *zap.Logger
}

func NewBorrowHandler(lending Lending, log *zap.Logger) *BorrowHandler {
	return &BorrowHandler{lending: lending, log: log}
}

type borrowReq struct {
	BookID uint64 `json:"book_id"`
}

func (h *BorrowHandler) Borrow(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	var req borrowReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.BookID == 0 {
		return badRequest(c, "book_id is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rc, err := h.lending.Borrow(ctx, p.UserID, req.BookID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, rc)
}

func (h *BorrowHandler) Return(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid borrow id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rc, err := h.lending.Return(ctx, p.UserID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rc)
}

// ListMine lists the caller's borrows, optionally filtered by ?status=.
func (h *BorrowHandler) ListMine(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	status, ok := statusParam(c)
	if !ok {
		return badRequest(c, "status must be active or returned")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.lending.ListMine(ctx, p.UserID, status, pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, borrowPage("borrows", page))
}

func (h *BorrowHandler) ListMyOverdue(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.lending.ListMyOverdue(ctx, p.UserID, pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, borrowPage("overdue_borrows", page))
}

// ListAll is the admin listing with user_id, book_id, status and is_overdue
// filters.
func (h *BorrowHandler) ListAll(c echo.Context) error {
	var f repository.BorrowFilter
	var ok bool
	if f.UserID, ok = queryID(c, "user_id"); !ok {
		return badRequest(c, "invalid user_id")
	}
	if f.BookID, ok = queryID(c, "book_id"); !ok {
		return badRequest(c, "invalid book_id")
	}
	if f.Status, ok = statusParam(c); !ok {
		return badRequest(c, "status must be active or returned")
	}
	if v := c.QueryParam("is_overdue"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "is_overdue must be true or false")
		}
		f.Overdue = &b
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.lending.ListAll(ctx, f, pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, borrowPage("borrows", page))
}

// Get returns one borrow to its owner or to an admin.
func (h *BorrowHandler) Get(c echo.Context) error {
	p, ok := caller(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid borrow id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.lending.Get(ctx, p, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"borrow": v})
}

func statusParam(c echo.Context) (*model.BorrowStatus, bool) {
	v := c.QueryParam("status")
	if v == "" {
		return nil, true
	}
	s, ok := model.ParseBorrowStatus(v)
	if !ok {
		return nil, false
	}
	return &s, true
}

func borrowPage(key string, p *service.BorrowPage) echo.Map {
	items := p.Items
	if items == nil {
		items = []model.BorrowView{}
	}
	return echo.Map{
		key:            items,
		"total":        p.Total,
		"pages":        p.Pages,
		"current_page": p.CurrentPage,
	}
}
