package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iliyamo/library-management/internal/model"
)

const booksTable = "books"

var bookColumns = []interface{}{
	"id", "name", "author", "publisher", "category", "introduction",
	"isbn", "stock", "created_at", "updated_at", "deleted_at",
}

// BookFilter narrows catalog listings. Zero values do not filter.
type BookFilter struct {
	Keyword  string // matched against name, author and publisher
	Author   string
	ISBN     string
	Category string // exact match
}

func (f BookFilter) Empty() bool {
	return f.Keyword == "" && f.Author == "" && f.ISBN == "" && f.Category == ""
}

// BookChanges lists the catalog columns an admin edit may touch.
type BookChanges struct {
	Name         *string
	Author       *string
	Publisher    *string
	Category     *string
	Introduction *string
	ISBN         *string
	Stock        *int
}

func (c BookChanges) record() goqu.Record {
	rec := goqu.Record{}
	put := func(col string, v *string) {
		if v != nil {
			rec[col] = *v
		}
	}
	put("name", c.Name)
	put("author", c.Author)
	put("publisher", c.Publisher)
	put("category", c.Category)
	put("introduction", c.Introduction)
	put("isbn", c.ISBN)
	if c.Stock != nil {
		rec["stock"] = *c.Stock
	}
	return rec
}

// BookRepo is the inventory ledger. Stock moves through DecrementStock and
// IncrementStock inside borrow/return transactions, or through an admin edit.
type BookRepo struct{}

func NewBookRepo() *BookRepo { return &BookRepo{} }

func (r *BookRepo) byID(id uint64) *goqu.SelectDataset {
	return from(booksTable).Select(bookColumns...).Where(goqu.C("id").Eq(id), live(""))
}

func (r *BookRepo) GetByID(ctx context.Context, q Querier, id uint64) (model.Book, error) {
	var b model.Book
	err := get(ctx, q, &b, r.byID(id))
	return b, err
}

// LockByID reads a live book with SELECT ... FOR UPDATE. Concurrent borrows
// and returns of the same title queue on this row lock.
func (r *BookRepo) LockByID(ctx context.Context, q Querier, id uint64) (model.Book, error) {
	var b model.Book
	err := get(ctx, q, &b, r.byID(id).ForUpdate(exp.Wait))
	return b, err
}

// DecrementStock takes one copy off the shelf. The stock > 0 guard makes the
// update a compare-and-swap: ErrConflict means no copy was left.
func (r *BookRepo) DecrementStock(ctx context.Context, q Querier, id uint64) error {
	return execOne(ctx, q, update(booksTable).
		Set(goqu.Record{"stock": goqu.L("stock - 1")}).
		Where(goqu.C("id").Eq(id), goqu.C("stock").Gt(0), live("")), ErrConflict)
}

// IncrementStock puts one copy back.
func (r *BookRepo) IncrementStock(ctx context.Context, q Querier, id uint64) error {
	return execOne(ctx, q, update(booksTable).
		Set(goqu.Record{"stock": goqu.L("stock + 1")}).
		Where(goqu.C("id").Eq(id), live("")), ErrNotFound)
}

// Create inserts a book; a live ISBN clash returns *DuplicateError.
func (r *BookRepo) Create(ctx context.Context, q Querier, b model.Book) (uint64, error) {
	rec := goqu.Record{
		"name":      b.Name,
		"author":    b.Author,
		"publisher": b.Publisher,
		"category":  b.Category,
		"isbn":      b.ISBN,
		"stock":     b.Stock,
	}
	if b.Introduction != nil {
		rec["introduction"] = *b.Introduction
	}
	return insertID(ctx, q, insertInto(booksTable).Rows(rec))
}

func (r *BookRepo) Update(ctx context.Context, q Querier, id uint64, c BookChanges) error {
	rec := c.record()
	if len(rec) == 0 {
		return nil
	}
	return execOne(ctx, q, update(booksTable).Set(rec).Where(goqu.C("id").Eq(id), live("")), ErrNotFound)
}

func (r *BookRepo) SoftDelete(ctx context.Context, q Querier, id uint64, at time.Time) error {
	return execOne(ctx, q, update(booksTable).
		Set(goqu.Record{"deleted_at": at}).
		Where(goqu.C("id").Eq(id), live("")), ErrNotFound)
}

// ISBNTaken reports whether a live book other than exceptID uses isbn.
func (r *BookRepo) ISBNTaken(ctx context.Context, q Querier, isbn string, exceptID uint64) (bool, error) {
	n, err := count(ctx, q, from(booksTable).
		Where(goqu.C("isbn").Eq(isbn), goqu.C("id").Neq(exceptID), live("")))
	return n > 0, err
}

// List pages through live books matching f, newest first.
func (r *BookRepo) List(ctx context.Context, q Querier, f BookFilter, p model.Page) ([]model.Book, int, error) {
	ds := from(booksTable).Select(bookColumns...).Where(live(""))
	if f.Keyword != "" {
		k := like(f.Keyword)
		ds = ds.Where(goqu.Or(goqu.C("name").Like(k), goqu.C("author").Like(k), goqu.C("publisher").Like(k)))
	}
	if f.Author != "" {
		ds = ds.Where(goqu.C("author").Like(like(f.Author)))
	}
	if f.ISBN != "" {
		ds = ds.Where(goqu.C("isbn").Like(like(f.ISBN)))
	}
	if f.Category != "" {
		ds = ds.Where(goqu.C("category").Eq(f.Category))
	}

	total, err := count(ctx, q, ds)
	if err != nil {
		return nil, 0, err
	}
	books := []model.Book{}
	err = selectAll(ctx, q, &books, paged(ds.Order(goqu.C("id").Desc()), p))
	return books, total, err
}

// Categories lists distinct categories of live books with their book counts.
func (r *BookRepo) Categories(ctx context.Context, q Querier) ([]model.CategoryCount, error) {
	out := []model.CategoryCount{}
	err := selectAll(ctx, q, &out, from(booksTable).
		Select(goqu.C("category"), goqu.COUNT("*").As("books")).
		Where(live("")).
		GroupBy(goqu.C("category")).
		Order(goqu.C("category").Asc()))
	return out, err
}

// RenameCategory moves every live book of category oldName to newName and
// returns how many books moved.
func (r *BookRepo) RenameCategory(ctx context.Context, q Querier, oldName, newName string) (int64, error) {
	res, err := exec(ctx, q, update(booksTable).
		Set(goqu.Record{"category": newName}).
		Where(goqu.C("category").Eq(oldName), live("")))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
