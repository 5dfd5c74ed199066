package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/queue"
	"github.com/iliyamo/library-management/internal/repository"
)

// BorrowReceipt is returned by a successful borrow.
type BorrowReceipt struct {
	BorrowID   uint64    `json:"borrow_id"`
	BookID     uint64    `json:"book_id"`
	BookName   string    `json:"book_name"`
	BorrowTime time.Time `json:"borrow_time"`
	DueTime    time.Time `json:"due_time"`
}

// ReturnReceipt is returned by a successful return.
type ReturnReceipt struct {
	BorrowID    uint64    `json:"borrow_id"`
	BookID      uint64    `json:"book_id"`
	BookName    string    `json:"book_name"`
	ReturnTime  time.Time `json:"return_time"`
	IsOverdue   bool      `json:"is_overdue"`
	OverdueDays int       `json:"overdue_days"`
}

// BorrowPage is one page of borrow views.
type BorrowPage struct {
	Items       []model.BorrowView `json:"items"`
	Total       int                `json:"total"`
	Pages       int                `json:"pages"`
	CurrentPage int                `json:"current_page"`
}

// BorrowService is the borrow engine. Every borrow and return runs in one
// transaction that moves the borrow record and the book stock together.
type BorrowService struct {
	tx      TxRunner
	users   UserStore
	books   BookStore
	borrows BorrowStore
	events  EventPublisher
	rec     Recorder
	log     *zap.Logger
	now     Clock
}

// BorrowOption customises a BorrowService.
type BorrowOption func(*BorrowService)

func WithBorrowClock(c Clock) BorrowOption       { return func(s *BorrowService) { s.now = c } }
func WithBorrowRecorder(r Recorder) BorrowOption { return func(s *BorrowService) { s.rec = r } }

func NewBorrowService(tx TxRunner, users UserStore, books BookStore, borrows BorrowStore, events EventPublisher, log *zap.Logger, opts ...BorrowOption) *BorrowService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	s := &BorrowService{
		tx:      tx,
		users:   users,
		books:   books,
		borrows: borrows,
		events:  events,
		rec:     nopRecorder{},
		log:     log,
		now:     systemClock,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// decideBorrow applies the borrow preconditions in order. user and book are
// nil when the row does not exist.
func decideBorrow(user *model.User, book *model.Book, held bool) error {
	switch {
	case user == nil || user.IsDeleted():
		return notFound(CodeUserNotFound, "user not found")
	case user.IsBanned():
		return newError(KindForbidden, CodeAccountBanned, "account is banned")
	case book == nil || book.IsDeleted():
		return notFound(CodeBookNotFound, "book not found")
	case book.Stock <= 0:
		return conflict(CodeInsufficientStock, "no copies left")
	case held:
		return conflict(CodeAlreadyBorrowed, "book already borrowed and not returned")
	}
	return nil
}

// decideReturn checks that userID may return b.
func decideReturn(b *model.Borrow, userID uint64) error {
	if b == nil || b.DeletedAt != nil || b.UserID != userID || !b.IsActive() {
		return notFound(CodeBorrowNotFound, "no active borrow found")
	}
	return nil
}

// Borrow lends one copy of bookID to userID.
func (s *BorrowService) Borrow(ctx context.Context, userID, bookID uint64) (*BorrowReceipt, error) {
	var receipt BorrowReceipt
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		u, err := s.users.GetByID(ctx, q, userID)
		user, err := optional(u, err)
		if err != nil {
			return err
		}
		bk, err := s.books.LockByID(ctx, q, bookID)
		book, err := optional(bk, err)
		if err != nil {
			return err
		}
		var held bool
		if user != nil && book != nil {
			if held, err = s.borrows.HasActive(ctx, q, userID, bookID); err != nil {
				return err
			}
		}
		if err := decideBorrow(user, book, held); err != nil {
			return err
		}

		at := dbNow(s.now)
		id, err := s.borrows.Create(ctx, q, userID, bookID, at)
		if errors.Is(err, repository.ErrDuplicate) {
			return conflict(CodeAlreadyBorrowed, "book already borrowed and not returned")
		}
		if err != nil {
			return err
		}
		if err := s.books.DecrementStock(ctx, q, bookID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return conflict(CodeInsufficientStock, "no copies left")
			}
			return err
		}
		due := model.Borrow{BorrowTime: at}.DueTime()
		receipt = BorrowReceipt{BorrowID: id, BookID: bookID, BookName: book.Name, BorrowTime: at, DueTime: due}
		return nil
	})
	s.rec.Operation("borrow", outcome(err))
	if err != nil {
		return nil, s.fail("borrow", err, zap.Uint64("user_id", userID), zap.Uint64("book_id", bookID))
	}

	s.publish(ctx, queue.BorrowEvent{
		Type:       queue.BorrowCreated,
		BorrowID:   receipt.BorrowID,
		UserID:     userID,
		BookID:     bookID,
		BookName:   receipt.BookName,
		BorrowTime: receipt.BorrowTime,
		DueTime:    receipt.DueTime,
		OccurredAt: receipt.BorrowTime,
	})
	return &receipt, nil
}

// Return closes borrowID on behalf of userID and puts the copy back.
func (s *BorrowService) Return(ctx context.Context, userID, borrowID uint64) (*ReturnReceipt, error) {
	var (
		receipt ReturnReceipt
		closed  model.Borrow
	)
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		row, err := s.borrows.GetByID(ctx, q, borrowID)
		peek, err := optional(row, err)
		if err != nil {
			return err
		}
		if err := decideReturn(peek, userID); err != nil {
			return err
		}
		// book before borrow, matching the borrow path's lock order. A live
		// borrow always has a live book since CatalogService.Delete refuses
		// books on loan, so a miss here is a storage fault.
		book, err := s.books.LockByID(ctx, q, peek.BookID)
		if err != nil {
			return fmt.Errorf("lock book %d of borrow %d: %w", peek.BookID, borrowID, err)
		}
		locked, err := s.borrows.LockByID(ctx, q, borrowID)
		b, err := optional(locked, err)
		if err != nil {
			return err
		}
		if err := decideReturn(b, userID); err != nil {
			return err
		}

		at := dbNow(s.now)
		if err := s.borrows.MarkReturned(ctx, q, borrowID, at); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return notFound(CodeBorrowNotFound, "no active borrow found")
			}
			return err
		}
		if err := s.books.IncrementStock(ctx, q, b.BookID); err != nil {
			return fmt.Errorf("restock book %d: %w", b.BookID, err)
		}

		b.Status = model.BorrowReturned
		b.ReturnTime = &at
		closed = *b
		receipt = ReturnReceipt{
			BorrowID:    borrowID,
			BookID:      b.BookID,
			BookName:    book.Name,
			ReturnTime:  at,
			IsOverdue:   b.IsOverdue(at),
			OverdueDays: b.OverdueDays(at),
		}
		return nil
	})
	s.rec.Operation("return", outcome(err))
	if err != nil {
		return nil, s.fail("return", err, zap.Uint64("user_id", userID), zap.Uint64("borrow_id", borrowID))
	}

	s.publish(ctx, queue.BorrowEvent{
		Type:        queue.BorrowReturned,
		BorrowID:    borrowID,
		UserID:      userID,
		BookID:      closed.BookID,
		BookName:    receipt.BookName,
		BorrowTime:  closed.BorrowTime,
		DueTime:     closed.DueTime(),
		ReturnTime:  closed.ReturnTime,
		IsOverdue:   receipt.IsOverdue,
		OverdueDays: receipt.OverdueDays,
		OccurredAt:  receipt.ReturnTime,
	})
	return &receipt, nil
}

// ListMine lists the caller's borrows, optionally by status.
func (s *BorrowService) ListMine(ctx context.Context, userID uint64, status *model.BorrowStatus, p model.Page) (*BorrowPage, error) {
	return s.list(ctx, repository.BorrowFilter{UserID: &userID, Status: status}, p)
}

// ListMyOverdue lists the caller's active borrows past their due time.
func (s *BorrowService) ListMyOverdue(ctx context.Context, userID uint64, p model.Page) (*BorrowPage, error) {
	active, overdue := model.BorrowActive, true
	return s.list(ctx, repository.BorrowFilter{UserID: &userID, Status: &active, Overdue: &overdue}, p)
}

// ListAll is the admin listing across every user.
func (s *BorrowService) ListAll(ctx context.Context, f repository.BorrowFilter, p model.Page) (*BorrowPage, error) {
	return s.list(ctx, f, p)
}

// Get returns one borrow. Only its owner or an admin may see it; anyone else
// gets borrow_not_found.
func (s *BorrowService) Get(ctx context.Context, caller Principal, borrowID uint64) (*model.BorrowView, error) {
	d, err := s.borrows.GetDetail(ctx, s.tx.Q(), borrowID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(CodeBorrowNotFound, "borrow not found")
	}
	if err != nil {
		return nil, persistence(err)
	}
	if d.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, notFound(CodeBorrowNotFound, "borrow not found")
	}
	v := d.View(s.now())
	return &v, nil
}

func (s *BorrowService) list(ctx context.Context, f repository.BorrowFilter, p model.Page) (*BorrowPage, error) {
	now := s.now()
	rows, total, err := s.borrows.List(ctx, s.tx.Q(), f, p, now)
	if err != nil {
		return nil, persistence(err)
	}
	items := make([]model.BorrowView, 0, len(rows))
	for _, d := range rows {
		items = append(items, d.View(now))
	}
	return &BorrowPage{Items: items, Total: total, Pages: p.Pages(total), CurrentPage: p.Number}, nil
}

// publish hands a committed event to the broker. Failures are logged only;
// the borrow itself already happened.
func (s *BorrowService) publish(ctx context.Context, ev queue.BorrowEvent) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("borrow event not published", zap.String("type", ev.Type), zap.Uint64("borrow_id", ev.BorrowID), zap.Error(err))
	}
}

func (s *BorrowService) fail(op string, err error, fields ...zap.Field) error {
	ae := asAppError(err)
	if ae.Kind == KindPersistence {
		s.log.Error(op+" failed", append(fields, zap.Error(err))...)
	}
	return ae
}

// optional turns ErrNotFound into a nil result.
func optional[T any](v T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
