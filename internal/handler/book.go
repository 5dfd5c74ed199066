package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/service"
)

// Catalog is the book catalog as seen by HTTP.
type Catalog interface {
	Create(ctx context.Context, in service.BookInput) (*model.Book, error)
	Update(ctx context.Context, id uint64, in service.BookPatch) (*model.Book, error)
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (*model.Book, error)
	List(ctx context.Context, p model.Page) (*service.BookPage, error)
	Search(ctx context.Context, f repository.BookFilter, p model.Page) (*service.BookPage, error)
	Categories(ctx context.Context) ([]model.CategoryCount, error)
	ByCategory(ctx context.Context, category string, p model.Page) (*service.BookPage, error)
	RenameCategory(ctx context.Context, oldName, newName string) (int64, error)
}

// BookHandler serves /api/v1/books.
type BookHandler struct {
	catalog Catalog
	log     *zap.Logger
}

func NewBookHandler(catalog Catalog, log *zap.Logger) *BookHandler {
	return &BookHandler{catalog: catalog, log: log}
}

func (h *BookHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.catalog.List(ctx, pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bookPage(page))
}

func (h *BookHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid book id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.catalog.Get(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book": b})
}

// Search matches keyword, author, isbn and category. No filter at all gives
// an empty page.
func (h *BookHandler) Search(c echo.Context) error {
	f := repository.BookFilter{
		Keyword:  strings.TrimSpace(c.QueryParam("keyword")),
		Author:   strings.TrimSpace(c.QueryParam("author")),
		ISBN:     strings.TrimSpace(c.QueryParam("isbn")),
		Category: strings.TrimSpace(c.QueryParam("category")),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.catalog.Search(ctx, f, pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bookPage(page))
}

func (h *BookHandler) Categories(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if cats == nil {
		cats = []model.CategoryCount{}
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats, "total": len(cats)})
}

func (h *BookHandler) ByCategory(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.catalog.ByCategory(ctx, c.Param("name"), pageOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, bookPage(page))
}

func (h *BookHandler) Create(c echo.Context) error {
	var req service.BookInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.catalog.Create(ctx, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "book created", "book": b})
}

func (h *BookHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid book id")
	}
	var req service.BookPatch
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.catalog.Update(ctx, id, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "book updated", "book": b})
}

// Delete soft-deletes a book that has no copy on loan.
func (h *BookHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid book id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.catalog.Delete(ctx, id); err != nil {
		return writeError(c, h.log, err)
	}
	return message(c, http.StatusOK, "book deleted")
}

type renameReq struct {
	NewName string `json:"new_name"`
}

func (h *BookHandler) RenameCategory(c echo.Context) error {
	var req renameReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.catalog.RenameCategory(ctx, c.Param("name"), req.NewName)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "category renamed", "updated_books": n})
}

func bookPage(p *service.BookPage) echo.Map {
	books := p.Books
	if books == nil {
		books = []model.Book{}
	}
	return echo.Map{
		"books":        books,
		"total":        p.Total,
		"pages":        p.Pages,
		"current_page": p.CurrentPage,
	}
}
