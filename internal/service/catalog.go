package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/utils"
)

type BookInput struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Author       string  `json:"author" validate:"required,max=100"`
	Publisher    string  `json:"publisher" validate:"required,max=100"`
	Category     string  `json:"category" validate:"required,max=50"`
	ISBN         string  `json:"isbn" validate:"required,len=13"`
	Stock        int     `json:"stock" validate:"min=0"`
	Introduction *string `json:"introduction" validate:"omitempty,max=1000"`
}

// BookPatch is a partial edit; nil fields stay unchanged.
type BookPatch struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Author       *string `json:"author" validate:"omitempty,min=1,max=100"`
	Publisher    *string `json:"publisher" validate:"omitempty,min=1,max=100"`
	Category     *string `json:"category" validate:"omitempty,min=1,max=50"`
	ISBN         *string `json:"isbn" validate:"omitempty,len=13"`
	Stock        *int    `json:"stock" validate:"omitempty,min=0"`
	Introduction *string `json:"introduction" validate:"omitempty,max=1000"`
}

// BookPage is one page of catalog entries.
type BookPage struct {
	Books       []model.Book `json:"books"`
	Total       int          `json:"total"`
	Pages       int          `json:"pages"`
	CurrentPage int          `json:"current_page"`
}

// CatalogService administers books and categories.
type CatalogService struct {
	tx      TxRunner
	books   BookStore
	borrows BorrowStore
	log     *zap.Logger
	now     Clock
}

func NewCatalogService(tx TxRunner, books BookStore, borrows BorrowStore, log *zap.Logger) *CatalogService {
	return &CatalogService{tx: tx, books: books, borrows: borrows, log: log, now: systemClock}
}

func (s *CatalogService) Create(ctx context.Context, in BookInput) (*model.Book, error) {
	in.Name = utils.StripTags(in.Name)
	in.Author = utils.StripTags(in.Author)
	in.Publisher = utils.StripTags(in.Publisher)
	in.Category = utils.StripTags(in.Category)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Introduction = utils.StripTagsPtr(in.Introduction)
	if err := utils.Validate(in); err != nil {
		return nil, validation(err.Error())
	}

	q := s.tx.Q()
	taken, err := s.books.ISBNTaken(ctx, q, in.ISBN, 0)
	if err != nil {
		return nil, s.fail("create book", err)
	}
	if taken {
		return nil, conflict(CodeISBNTaken, "isbn already exists")
	}
	id, err := s.books.Create(ctx, q, model.Book{
		Name:         in.Name,
		Author:       in.Author,
		Publisher:    in.Publisher,
		Category:     in.Category,
		ISBN:         in.ISBN,
		Stock:        in.Stock,
		Introduction: in.Introduction,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, conflict(CodeISBNTaken, "isbn already exists")
	}
	if err != nil {
		return nil, s.fail("create book", err)
	}
	return s.Get(ctx, id)
}

func (s *CatalogService) Update(ctx context.Context, id uint64, in BookPatch) (*model.Book, error) {
	in.Name = utils.StripTagsPtr(in.Name)
	in.Author = utils.StripTagsPtr(in.Author)
	in.Publisher = utils.StripTagsPtr(in.Publisher)
	in.Category = utils.StripTagsPtr(in.Category)
	in.Introduction = utils.StripTagsPtr(in.Introduction)
	if in.ISBN != nil {
		v := strings.TrimSpace(*in.ISBN)
		in.ISBN = &v
	}
	if err := utils.Validate(in); err != nil {
		return nil, validation(err.Error())
	}

	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		if _, err := s.books.LockByID(ctx, q, id); err != nil {
			return bookErr(err)
		}
		if in.ISBN != nil {
			taken, err := s.books.ISBNTaken(ctx, q, *in.ISBN, id)
			if err != nil {
				return err
			}
			if taken {
				return conflict(CodeISBNTaken, "isbn already exists")
			}
		}
		err := s.books.Update(ctx, q, id, repository.BookChanges{
			Name:         in.Name,
			Author:       in.Author,
			Publisher:    in.Publisher,
			Category:     in.Category,
			Introduction: in.Introduction,
			ISBN:         in.ISBN,
			Stock:        in.Stock,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return conflict(CodeISBNTaken, "isbn already exists")
		}
		return bookErr(err)
	})
	if err != nil {
		return nil, s.fail("update book", err)
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a book that has no copy out on loan.
func (s *CatalogService) Delete(ctx context.Context, id uint64) error {
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		if _, err := s.books.LockByID(ctx, q, id); err != nil {
			return bookErr(err)
		}
		n, err := s.borrows.CountActiveForBook(ctx, q, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict(CodeBookOnLoan, "book has copies on loan")
		}
		return bookErr(s.books.SoftDelete(ctx, q, id, dbNow(s.now)))
	})
	if err != nil {
		return s.fail("delete book", err)
	}
	return nil
}

func (s *CatalogService) Get(ctx context.Context, id uint64) (*model.Book, error) {
	b, err := s.books.GetByID(ctx, s.tx.Q(), id)
	if err != nil {
		return nil, s.fail("get book", bookErr(err))
	}
	return &b, nil
}

func (s *CatalogService) List(ctx context.Context, p model.Page) (*BookPage, error) {
	return s.list(ctx, repository.BookFilter{}, p)
}

// Search matches any combination of keyword, author, isbn and category. An
// empty filter matches nothing.
func (s *CatalogService) Search(ctx context.Context, f repository.BookFilter, p model.Page) (*BookPage, error) {
	f = repository.BookFilter{
		Keyword:  utils.StripTags(f.Keyword),
		Author:   utils.StripTags(f.Author),
		ISBN:     utils.StripTags(f.ISBN),
		Category: utils.StripTags(f.Category),
	}
	if f.Empty() {
		return &BookPage{Books: []model.Book{}, CurrentPage: p.Number}, nil
	}
	return s.list(ctx, f, p)
}

func (s *CatalogService) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	cats, err := s.books.Categories(ctx, s.tx.Q())
	if err != nil {
		return nil, s.fail("categories", err)
	}
	return cats, nil
}

func (s *CatalogService) ByCategory(ctx context.Context, category string, p model.Page) (*BookPage, error) {
	category = utils.StripTags(category)
	if category == "" {
		return nil, validation("category is required")
	}
	return s.list(ctx, repository.BookFilter{Category: category}, p)
}

// RenameCategory moves every live book of oldName to newName.
func (s *CatalogService) RenameCategory(ctx context.Context, oldName, newName string) (int64, error) {
	oldName, newName = utils.StripTags(oldName), utils.StripTags(newName)
	if oldName == "" || newName == "" {
		return 0, validation("category names are required")
	}
	if len(newName) > 50 {
		return 0, validation("new_name must be at most 50 characters")
	}
	var moved int64
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		n, err := s.books.RenameCategory(ctx, q, oldName, newName)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(CodeCategoryNotFound, "category not found")
		}
		moved = n
		return nil
	})
	if err != nil {
		return 0, s.fail("rename category", err)
	}
	return moved, nil
}

func (s *CatalogService) list(ctx context.Context, f repository.BookFilter, p model.Page) (*BookPage, error) {
	books, total, err := s.books.List(ctx, s.tx.Q(), f, p)
	if err != nil {
		return nil, s.fail("list books", err)
	}
	return &BookPage{Books: books, Total: total, Pages: p.Pages(total), CurrentPage: p.Number}, nil
}

func (s *CatalogService) fail(op string, err error) error {
	ae := asAppError(err)
	if ae.Kind == KindPersistence {
		s.log.Error(op+" failed", zap.Error(err))
	}
	return ae
}

func bookErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(CodeBookNotFound, "book not found")
	}
	return err
}
