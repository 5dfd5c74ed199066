package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iliyamo/library-management/internal/model"
)

// StatsRepo runs the read-only report aggregations. Every query joins
// through live() so soft-deleted users, books and borrows never count.
type StatsRepo struct{}

func NewStatsRepo() *StatsRepo { return &StatsRepo{} }

func liveBorrows() *goqu.SelectDataset {
	return from(goqu.T(borrowsTable).As("br")).
		Join(goqu.T(booksTable).As("bk"), goqu.On(goqu.I("bk.id").Eq(goqu.I("br.book_id")), live("bk"))).
		Join(goqu.T(usersTable).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("br.user_id")), live("u"))).
		Where(live("br"))
}

func sumWhen(cond exp.Expression, alias string) exp.AliasedExpression {
	return goqu.L("COALESCE(SUM(CASE WHEN ? THEN 1 ELSE 0 END), 0)", cond).As(alias)
}

// BorrowCounts aggregates borrows matching f (only UserID and BookID apply)
// evaluated at now.
func (r *StatsRepo) BorrowCounts(ctx context.Context, q Querier, f BorrowFilter, now time.Time) (model.BorrowCounts, error) {
	status := goqu.I("br.status")
	ds := liveBorrows().Select(
		goqu.COUNT("*").As("total"),
		sumWhen(status.Eq(model.BorrowReturned), "returned"),
		sumWhen(status.Eq(model.BorrowActive), "active"),
		sumWhen(goqu.And(status.Eq(model.BorrowReturned), lateReturn("br")), "returned_late"),
		sumWhen(goqu.And(status.Eq(model.BorrowActive), goqu.I("br.borrow_time").Lt(model.OverdueCutoff(now))), "current_overdue"),
		goqu.L("AVG(CASE WHEN ? THEN DATEDIFF(?, ?) END)", status.Eq(model.BorrowReturned),
			goqu.I("br.return_time"), goqu.I("br.borrow_time")).As("avg_borrow_days"),
	)
	if f.UserID != nil {
		ds = ds.Where(goqu.I("br.user_id").Eq(*f.UserID))
	}
	if f.BookID != nil {
		ds = ds.Where(goqu.I("br.book_id").Eq(*f.BookID))
	}
	var c model.BorrowCounts
	err := get(ctx, q, &c, ds)
	return c, err
}

// TopBorrowers ranks users by borrows; bookID limits to one title when set.
func (r *StatsRepo) TopBorrowers(ctx context.Context, q Querier, bookID *uint64, activeOnly bool, limit uint) ([]model.UserBorrowCount, error) {
	ds := liveBorrows().
		Select(goqu.I("u.id").As("user_id"), goqu.I("u.username"), goqu.I("u.name"), goqu.COUNT("*").As("borrow_count")).
		GroupBy(goqu.I("u.id"), goqu.I("u.username"), goqu.I("u.name")).
		Order(goqu.I("borrow_count").Desc(), goqu.I("u.id").Asc()).
		Limit(limit)
	if bookID != nil {
		ds = ds.Where(goqu.I("br.book_id").Eq(*bookID))
	}
	if activeOnly {
		ds = ds.Where(goqu.I("u.status").Eq(model.UserActive))
	}
	out := []model.UserBorrowCount{}
	err := selectAll(ctx, q, &out, ds)
	return out, err
}

// PopularBooks ranks books by number of borrows.
func (r *StatsRepo) PopularBooks(ctx context.Context, q Querier, limit uint) ([]model.BookBorrowCount, error) {
	out := []model.BookBorrowCount{}
	err := selectAll(ctx, q, &out, liveBorrows().
		Select(goqu.I("bk.id").As("book_id"), goqu.I("bk.name"), goqu.I("bk.author"), goqu.COUNT("*").As("borrow_count")).
		GroupBy(goqu.I("bk.id"), goqu.I("bk.name"), goqu.I("bk.author")).
		Order(goqu.I("borrow_count").Desc(), goqu.I("bk.id").Asc()).
		Limit(limit))
	return out, err
}

// CategoryStats counts live books and their live borrows per category.
func (r *StatsRepo) CategoryStats(ctx context.Context, q Querier) ([]model.CategoryStat, error) {
	out := []model.CategoryStat{}
	err := selectAll(ctx, q, &out, from(goqu.T(booksTable).As("bk")).
		LeftJoin(goqu.T(borrowsTable).As("br"), goqu.On(goqu.I("br.book_id").Eq(goqu.I("bk.id")), live("br"))).
		Select(
			goqu.I("bk.category"),
			goqu.L("COUNT(DISTINCT ?)", goqu.I("bk.id")).As("book_count"),
			goqu.COUNT(goqu.I("br.id")).As("borrow_count"),
		).
		Where(live("bk")).
		GroupBy(goqu.I("bk.category")).
		Order(goqu.I("book_count").Desc(), goqu.I("bk.category").Asc()))
	return out, err
}

// CatalogTotals counts active users, live books and copies on the shelf.
func (r *StatsRepo) CatalogTotals(ctx context.Context, q Querier) (model.CatalogTotals, error) {
	users, err := count(ctx, q, from(usersTable).Where(live(""), goqu.C("status").Eq(model.UserActive)))
	if err != nil {
		return model.CatalogTotals{}, err
	}
	var shelf struct {
		Books int `db:"books"`
		Stock int `db:"stock"`
	}
	err = get(ctx, q, &shelf, from(booksTable).
		Select(goqu.COUNT("*").As("books"), goqu.L("COALESCE(SUM(?), 0)", goqu.C("stock")).As("stock")).
		Where(live("")))
	if err != nil {
		return model.CatalogTotals{}, err
	}
	return model.CatalogTotals{ActiveUsers: users, Books: shelf.Books, Stock: shelf.Stock}, nil
}
