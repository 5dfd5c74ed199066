package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/library-management/internal/model"
)

var dialect = goqu.Dialect("mysql")

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

func from(table interface{}) *goqu.SelectDataset { return dialect.From(table).Prepared(true) }
func insertInto(table string) *goqu.InsertDataset {
	return dialect.Insert(table).Prepared(true)
}
func update(table string) *goqu.UpdateDataset { return dialect.Update(table).Prepared(true) }
func deleteFrom(table string) *goqu.DeleteDataset {
	return dialect.Delete(table).Prepared(true)
}

// live is the soft-delete filter. Every read, join and guarded write on a
// soft-deletable table goes through it; alias may be empty for single-table
// statements.
func live(alias string) exp.Expression {
	if alias == "" {
		return goqu.C("deleted_at").IsNull()
	}
	return goqu.I(alias + ".deleted_at").IsNull()
}

// overdue renders the overdue predicate for the borrows aliased as alias at
// instant now: active and borrowed before now minus the loan period, or
// returned after the due time. model.Borrow.IsOverdue is the Go twin.
func overdue(alias string, now time.Time) exp.Expression {
	col := func(c string) exp.IdentifierExpression { return goqu.I(alias + "." + c) }
	return goqu.Or(
		goqu.And(col("status").Eq(model.BorrowActive), col("borrow_time").Lt(model.OverdueCutoff(now))),
		goqu.And(col("status").Eq(model.BorrowReturned), lateReturn(alias)),
	)
}

// notOverdue is the exact complement of overdue for live borrows.
func notOverdue(alias string, now time.Time) exp.Expression {
	col := func(c string) exp.IdentifierExpression { return goqu.I(alias + "." + c) }
	return goqu.Or(
		goqu.And(col("status").Eq(model.BorrowActive), col("borrow_time").Gte(model.OverdueCutoff(now))),
		goqu.And(col("status").Eq(model.BorrowReturned), onTimeReturn(alias)),
	)
}

var loanPeriodDays = int64(model.LoanPeriod / (24 * time.Hour))

func lateReturn(alias string) exp.LiteralExpression {
	return goqu.L("? > DATE_ADD(?, INTERVAL ? DAY)",
		goqu.I(alias+".return_time"), goqu.I(alias+".borrow_time"), loanPeriodDays)
}

func onTimeReturn(alias string) exp.LiteralExpression {
	return goqu.L("? <= DATE_ADD(?, INTERVAL ? DAY)",
		goqu.I(alias+".return_time"), goqu.I(alias+".borrow_time"), loanPeriodDays)
}

func get(ctx context.Context, q Querier, dest interface{}, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return err
	}
	return classify(sqlx.GetContext(ctx, q, dest, query, args...))
}

func selectAll(ctx context.Context, q Querier, dest interface{}, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return err
	}
	return classify(sqlx.SelectContext(ctx, q, dest, query, args...))
}

func exec(ctx context.Context, q Querier, b sqlBuilder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	return res, classify(err)
}

// execOne runs a guarded write and returns miss when it touched no row.
func execOne(ctx context.Context, q Querier, b sqlBuilder, miss error) error {
	res, err := exec(ctx, q, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return miss
	}
	return nil
}

func insertID(ctx context.Context, q Querier, b sqlBuilder) (uint64, error) {
	res, err := exec(ctx, q, b)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// count runs ds as SELECT COUNT(*) with ordering and paging stripped.
func count(ctx context.Context, q Querier, ds *goqu.SelectDataset) (int, error) {
	var n int
	err := get(ctx, q, &n, ds.ClearSelect().ClearOrder().ClearLimit().ClearOffset().Select(goqu.COUNT("*")))
	return n, err
}

func paged(ds *goqu.SelectDataset, p model.Page) *goqu.SelectDataset {
	return ds.Limit(p.Limit()).Offset(p.Offset())
}

func like(s string) string { return "%" + s + "%" }
