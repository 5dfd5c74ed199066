package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

const (
	recentBorrows  = 5
	topBorrowers   = 5
	overviewTopTen = 10
)

type UserReport struct {
	UserID                uint64             `json:"user_id"`
	Username              string             `json:"username"`
	Name                  string             `json:"name"`
	TotalBorrows          int                `json:"total_borrows"`
	ReturnedBorrows       int                `json:"returned_borrows"`
	CurrentBorrows        int                `json:"current_borrows"`
	OverdueBorrows        int                `json:"overdue_borrows"`
	CurrentOverdueBorrows int                `json:"current_overdue_borrows"`
	OverdueRate           float64            `json:"overdue_rate"`
	RecentBorrows         []model.BorrowView `json:"recent_borrows"`
}

type BookReport struct {
	BookID          uint64                  `json:"book_id"`
	BookName        string                  `json:"book_name"`
	Author          string                  `json:"author"`
	Publisher       string                  `json:"publisher"`
	Stock           int                     `json:"stock"`
	TotalBorrows    int                     `json:"total_borrows"`
	ReturnedBorrows int                     `json:"returned_borrows"`
	CurrentBorrows  int                     `json:"current_borrows"`
	AvgBorrowDays   float64                 `json:"avg_borrow_days"`
	RecentBorrows   []model.BorrowView      `json:"recent_borrows"`
	TopBorrowers    []model.UserBorrowCount `json:"top_borrowers"`
}

type Overview struct {
	model.CatalogTotals
	TotalBorrows          int                     `json:"total_borrows"`
	CurrentBorrows        int                     `json:"current_borrows"`
	CurrentOverdueBorrows int                     `json:"current_overdue_borrows"`
	PopularBooks          []model.BookBorrowCount `json:"popular_books"`
	ActiveUsers           []model.UserBorrowCount `json:"active_users"`
	CategoryStats         []model.CategoryStat    `json:"category_stats"`
}

// StatsService builds read-only reports. Every figure excludes soft-deleted
// rows and uses the same overdue rule as the borrow listings.
type StatsService struct {
	tx      TxRunner
	users   UserStore
	books   BookStore
	borrows BorrowStore
	stats   StatsStore
	log     *zap.Logger
	now     Clock
}

type StatsOption func(*StatsService)

func WithStatsClock(c Clock) StatsOption { return func(s *StatsService) { s.now = c } }

func NewStatsService(tx TxRunner, users UserStore, books BookStore, borrows BorrowStore, stats StatsStore, log *zap.Logger, opts ...StatsOption) *StatsService {
	s := &StatsService{tx: tx, users: users, books: books, borrows: borrows, stats: stats, log: log, now: systemClock}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *StatsService) UserReport(ctx context.Context, userID uint64) (*UserReport, error) {
	q := s.tx.Q()
	u, err := s.users.GetByID(ctx, q, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, s.fail("user report", err)
	}

	now := s.now()
	f := repository.BorrowFilter{UserID: &userID}
	c, err := s.stats.BorrowCounts(ctx, q, f, now)
	if err != nil {
		return nil, s.fail("user report", err)
	}
	recent, err := s.recent(ctx, q, f, now)
	if err != nil {
		return nil, s.fail("user report", err)
	}
	return &UserReport{
		UserID:                u.ID,
		Username:              u.Username,
		Name:                  u.Name,
		TotalBorrows:          c.Total,
		ReturnedBorrows:       c.Returned,
		CurrentBorrows:        c.Active,
		OverdueBorrows:        c.Overdue(),
		CurrentOverdueBorrows: c.CurrentOverdue,
		OverdueRate:           model.Rate(c.ReturnedLate, c.Returned),
		RecentBorrows:         recent,
	}, nil
}

func (s *StatsService) BookReport(ctx context.Context, bookID uint64) (*BookReport, error) {
	q := s.tx.Q()
	b, err := s.books.GetByID(ctx, q, bookID)
	if err != nil {
		return nil, s.fail("book report", bookErr(err))
	}

	now := s.now()
	f := repository.BorrowFilter{BookID: &bookID}
	c, err := s.stats.BorrowCounts(ctx, q, f, now)
	if err != nil {
		return nil, s.fail("book report", err)
	}
	recent, err := s.recent(ctx, q, f, now)
	if err != nil {
		return nil, s.fail("book report", err)
	}
	top, err := s.stats.TopBorrowers(ctx, q, &bookID, false, topBorrowers)
	if err != nil {
		return nil, s.fail("book report", err)
	}
	var avg float64
	if c.AvgBorrowDays != nil {
		avg = math.Round(*c.AvgBorrowDays*100) / 100
	}
	return &BookReport{
		BookID:          b.ID,
		BookName:        b.Name,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Stock:           b.Stock,
		TotalBorrows:    c.Total,
		ReturnedBorrows: c.Returned,
		CurrentBorrows:  c.Active,
		AvgBorrowDays:   avg,
		RecentBorrows:   recent,
		TopBorrowers:    top,
	}, nil
}

func (s *StatsService) Overview(ctx context.Context) (*Overview, error) {
	q := s.tx.Q()
	totals, err := s.stats.CatalogTotals(ctx, q)
	if err != nil {
		return nil, s.fail("overview", err)
	}
	c, err := s.stats.BorrowCounts(ctx, q, repository.BorrowFilter{}, s.now())
	if err != nil {
		return nil, s.fail("overview", err)
	}
	popular, err := s.stats.PopularBooks(ctx, q, overviewTopTen)
	if err != nil {
		return nil, s.fail("overview", err)
	}
	active, err := s.stats.TopBorrowers(ctx, q, nil, true, overviewTopTen)
	if err != nil {
		return nil, s.fail("overview", err)
	}
	cats, err := s.stats.CategoryStats(ctx, q)
	if err != nil {
		return nil, s.fail("overview", err)
	}
	return &Overview{
		CatalogTotals:         totals,
		TotalBorrows:          c.Total,
		CurrentBorrows:        c.Active,
		CurrentOverdueBorrows: c.CurrentOverdue,
		PopularBooks:          popular,
		ActiveUsers:           active,
		CategoryStats:         cats,
	}, nil
}

func (s *StatsService) recent(ctx context.Context, q repository.Querier, f repository.BorrowFilter, now time.Time) ([]model.BorrowView, error) {
	rows, _, err := s.borrows.List(ctx, q, f, model.NewPage(1, recentBorrows), now)
	if err != nil {
		return nil, err
	}
	out := make([]model.BorrowView, 0, len(rows))
	for _, d := range rows {
		out = append(out, d.View(now))
	}
	return out, nil
}

func (s *StatsService) fail(op string, err error) error {
	ae := asAppError(err)
	if ae.Kind == KindPersistence {
		s.log.Error(op+" failed", zap.Error(err))
	}
	return ae
}
