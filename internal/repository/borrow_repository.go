package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iliyamo/library-management/internal/model"
)

const borrowsTable = "borrows"

var borrowColumns = []interface{}{
	"id", "user_id", "book_id", "borrow_time", "return_time", "status",
	"created_at", "updated_at", "deleted_at",
}

// BorrowFilter narrows borrow listings. Nil fields do not filter.
type BorrowFilter struct {
	UserID  *uint64
	BookID  *uint64
	Status  *model.BorrowStatus
	Overdue *bool
}

// BorrowRepo persists lending records. Status and return_time only change
// through MarkReturned.
type BorrowRepo struct{}

func NewBorrowRepo() *BorrowRepo { return &BorrowRepo{} }

// Create inserts an active borrow. A second live active borrow for the same
// (user, book) is rejected by uq_borrows_active with *DuplicateError.
func (r *BorrowRepo) Create(ctx context.Context, q Querier, userID, bookID uint64, at time.Time) (uint64, error) {
	return insertID(ctx, q, insertInto(borrowsTable).Rows(goqu.Record{
		"user_id":     userID,
		"book_id":     bookID,
		"borrow_time": at,
		"status":      model.BorrowActive,
	}))
}

// HasActive reports whether userID currently holds a copy of bookID.
func (r *BorrowRepo) HasActive(ctx context.Context, q Querier, userID, bookID uint64) (bool, error) {
	n, err := count(ctx, q, from(borrowsTable).Where(
		goqu.C("user_id").Eq(userID),
		goqu.C("book_id").Eq(bookID),
		goqu.C("status").Eq(model.BorrowActive),
		live(""),
	))
	return n > 0, err
}

// CountActiveForBook returns how many copies of bookID are out on loan.
func (r *BorrowRepo) CountActiveForBook(ctx context.Context, q Querier, bookID uint64) (int, error) {
	return count(ctx, q, from(borrowsTable).Where(
		goqu.C("book_id").Eq(bookID),
		goqu.C("status").Eq(model.BorrowActive),
		live(""),
	))
}

func (r *BorrowRepo) byID(id uint64) *goqu.SelectDataset {
	return from(borrowsTable).Select(borrowColumns...).Where(goqu.C("id").Eq(id), live(""))
}

func (r *BorrowRepo) GetByID(ctx context.Context, q Querier, id uint64) (model.Borrow, error) {
	var b model.Borrow
	err := get(ctx, q, &b, r.byID(id))
	return b, err
}

// LockByID reads a live borrow with SELECT ... FOR UPDATE.
func (r *BorrowRepo) LockByID(ctx context.Context, q Querier, id uint64) (model.Borrow, error) {
	var b model.Borrow
	err := get(ctx, q, &b, r.byID(id).ForUpdate(exp.Wait))
	return b, err
}

// MarkReturned closes an active borrow. ErrConflict means it was no longer
// active.
func (r *BorrowRepo) MarkReturned(ctx context.Context, q Querier, id uint64, at time.Time) error {
	return execOne(ctx, q, update(borrowsTable).
		Set(goqu.Record{"status": model.BorrowReturned, "return_time": at}).
		Where(goqu.C("id").Eq(id), goqu.C("status").Eq(model.BorrowActive), live("")), ErrConflict)
}

// details selects borrows joined with their live book and user.
func details() *goqu.SelectDataset {
	return from(goqu.T(borrowsTable).As("br")).
		Join(goqu.T(booksTable).As("bk"), goqu.On(goqu.I("bk.id").Eq(goqu.I("br.book_id")), live("bk"))).
		Join(goqu.T(usersTable).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("br.user_id")), live("u"))).
		Select(
			goqu.I("br.id"), goqu.I("br.user_id"), goqu.I("br.book_id"),
			goqu.I("br.borrow_time"), goqu.I("br.return_time"), goqu.I("br.status"),
			goqu.I("br.created_at"), goqu.I("br.updated_at"), goqu.I("br.deleted_at"),
			goqu.I("bk.name").As("book_name"), goqu.I("bk.author"), goqu.I("bk.isbn"),
			goqu.I("u.username"),
		).
		Where(live("br"))
}

// GetDetail returns one borrow with its book and user fields.
func (r *BorrowRepo) GetDetail(ctx context.Context, q Querier, id uint64) (model.BorrowDetail, error) {
	var d model.BorrowDetail
	err := get(ctx, q, &d, details().Where(goqu.I("br.id").Eq(id)))
	return d, err
}

// List pages through borrows matching f, most recent first. The overdue
// filter is evaluated at now with the same predicate as model.Borrow.
func (r *BorrowRepo) List(ctx context.Context, q Querier, f BorrowFilter, p model.Page, now time.Time) ([]model.BorrowDetail, int, error) {
	ds := details()
	if f.UserID != nil {
		ds = ds.Where(goqu.I("br.user_id").Eq(*f.UserID))
	}
	if f.BookID != nil {
		ds = ds.Where(goqu.I("br.book_id").Eq(*f.BookID))
	}
	if f.Status != nil {
		ds = ds.Where(goqu.I("br.status").Eq(*f.Status))
	}
	if f.Overdue != nil {
		if *f.Overdue {
			ds = ds.Where(overdue("br", now))
		} else {
			ds = ds.Where(notOverdue("br", now))
		}
	}

	total, err := count(ctx, q, ds)
	if err != nil {
		return nil, 0, err
	}
	out := []model.BorrowDetail{}
	err = selectAll(ctx, q, &out, paged(ds.Order(goqu.I("br.borrow_time").Desc(), goqu.I("br.id").Desc()), p))
	return out, total, err
}
