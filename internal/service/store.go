package service

import (
	"context"
	"time"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/queue"
	"github.com/iliyamo/library-management/internal/repository"
)

// TxRunner runs functions inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q repository.Querier) error) error
	Q() repository.Querier
}

// UserStore is the credential store.
type UserStore interface {
	GetByID(ctx context.Context, q repository.Querier, id uint64) (model.User, error)
	GetByIDForUpdate(ctx context.Context, q repository.Querier, id uint64) (model.User, error)
	GetByIdentifier(ctx context.Context, q repository.Querier, field repository.Identifier, value string) (model.User, error)
	IdentifierTaken(ctx context.Context, q repository.Querier, field repository.Identifier, value string, exceptID uint64) (bool, error)
	Create(ctx context.Context, q repository.Querier, u model.User) (uint64, error)
	UpdateProfile(ctx context.Context, q repository.Querier, id uint64, c repository.ProfileChanges) error
	UpdatePassword(ctx context.Context, q repository.Querier, id uint64, hash string, changedAt time.Time) error
	SetPrivilege(ctx context.Context, q repository.Querier, id uint64, p model.Privilege) error
	SetStatus(ctx context.Context, q repository.Querier, id uint64, s model.UserStatus) error
	SoftDelete(ctx context.Context, q repository.Querier, id uint64, at time.Time) error
	List(ctx context.Context, q repository.Querier, keyword string, p model.Page) ([]model.User, int, error)
}

// BookStore is the inventory ledger.
type BookStore interface {
	GetByID(ctx context.Context, q repository.Querier, id uint64) (model.Book, error)
	LockByID(ctx context.Context, q repository.Querier, id uint64) (model.Book, error)
	DecrementStock(ctx context.Context, q repository.Querier, id uint64) error
	IncrementStock(ctx context.Context, q repository.Querier, id uint64) error
	Create(ctx context.Context, q repository.Querier, b model.Book) (uint64, error)
	Update(ctx context.Context, q repository.Querier, id uint64, c repository.BookChanges) error
	SoftDelete(ctx context.Context, q repository.Querier, id uint64, at time.Time) error
	ISBNTaken(ctx context.Context, q repository.Querier, isbn string, exceptID uint64) (bool, error)
	List(ctx context.Context, q repository.Querier, f repository.BookFilter, p model.Page) ([]model.Book, int, error)
	Categories(ctx context.Context, q repository.Querier) ([]model.CategoryCount, error)
	RenameCategory(ctx context.Context, q repository.Querier, oldName, newName string) (int64, error)
}

// BorrowStore persists lending records.
type BorrowStore interface {
	Create(ctx context.Context, q repository.Querier, userID, bookID uint64, at time.Time) (uint64, error)
	HasActive(ctx context.Context, q repository.Querier, userID, bookID uint64) (bool, error)
	CountActiveForBook(ctx context.Context, q repository.Querier, bookID uint64) (int, error)
	GetByID(ctx context.Context, q repository.Querier, id uint64) (model.Borrow, error)
	LockByID(ctx context.Context, q repository.Querier, id uint64) (model.Borrow, error)
	MarkReturned(ctx context.Context, q repository.Querier, id uint64, at time.Time) error
	GetDetail(ctx context.Context, q repository.Querier, id uint64) (model.BorrowDetail, error)
	List(ctx context.Context, q repository.Querier, f repository.BorrowFilter, p model.Page, now time.Time) ([]model.BorrowDetail, int, error)
}

// TokenLedger is the revocation ledger.
type TokenLedger interface {
	Revoke(ctx context.Context, q repository.Querier, t model.RevokedToken) error
	IsRevoked(ctx context.Context, q repository.Querier, jti string) (bool, error)
	PurgeExpired(ctx context.Context, q repository.Querier, cutoff time.Time) (int64, error)
}

// StatsStore runs report aggregations.
type StatsStore interface {
	BorrowCounts(ctx context.Context, q repository.Querier, f repository.BorrowFilter, now time.Time) (model.BorrowCounts, error)
	TopBorrowers(ctx context.Context, q repository.Querier, bookID *uint64, activeOnly bool, limit uint) ([]model.UserBorrowCount, error)
	PopularBooks(ctx context.Context, q repository.Querier, limit uint) ([]model.BookBorrowCount, error)
	CategoryStats(ctx context.Context, q repository.Querier) ([]model.CategoryStat, error)
	CatalogTotals(ctx context.Context, q repository.Querier) (model.CatalogTotals, error)
}

// EventPublisher receives borrow lifecycle events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BorrowEvent) error
}

// Clock returns the current instant. Tests substitute a fixed clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// dbNow is the clock reading stored in DATETIME(3) columns.
func dbNow(c Clock) time.Time {
	return c().UTC().Truncate(time.Millisecond)
}

// Recorder counts use case outcomes.
type Recorder interface {
	Operation(name, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Operation(string, string) {}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return CodeOf(err)
}
