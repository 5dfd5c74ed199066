package model

import (
	"math"
	"time"
)

// LoanPeriod is the fixed lending period; due time is borrow time plus this.
const LoanPeriod = 14 * 24 * time.Hour

const day = 24 * time.Hour

// BorrowStatus is stored in borrows.status.
type BorrowStatus int8

const (
	BorrowActive   BorrowStatus = 0
	BorrowReturned BorrowStatus = 1
)

func (s BorrowStatus) String() string {
	if s == BorrowReturned {
		return "returned"
	}
	return "active"
}

// ParseBorrowStatus accepts the names used in query strings.
func ParseBorrowStatus(s string) (BorrowStatus, bool) {
	switch s {
	case "active", "0":
		return BorrowActive, true
	case "returned", "1":
		return BorrowReturned, true
	}
	return 0, false
}

// Borrow represents a row of the `borrows` table.
type Borrow struct {
	ID         uint64       `db:"id"`
	UserID     uint64       `db:"user_id"`
	BookID     uint64       `db:"book_id"`
	BorrowTime time.Time    `db:"borrow_time"`
	ReturnTime *time.Time   `db:"return_time"` // set iff Status == BorrowReturned
	Status     BorrowStatus `db:"status"`
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
	DeletedAt  *time.Time   `db:"deleted_at"`
}

func (b Borrow) IsActive() bool { return b.Status == BorrowActive }

func (b Borrow) DueTime() time.Time { return b.BorrowTime.Add(LoanPeriod) }

// reference is the instant the due time is compared against: the return time
// of a returned borrow, otherwise now.
func (b Borrow) reference(now time.Time) time.Time {
	if b.Status == BorrowReturned && b.ReturnTime != nil {
		return *b.ReturnTime
	}
	return now
}

// IsOverdue reports whether the borrow is (or was returned) past its due time.
// Every listing, detail and report path uses this single predicate.
func (b Borrow) IsOverdue(now time.Time) bool {
	return b.reference(now).After(b.DueTime())
}

// OverdueDays is the number of whole days past due, 0 when not overdue.
func (b Borrow) OverdueDays(now time.Time) int {
	late := b.reference(now).Sub(b.DueTime())
	if late <= 0 {
		return 0
	}
	return int(late / day)
}

// DaysLeft is the number of whole days until due for an active borrow,
// negative once overdue, nil for returned borrows.
func (b Borrow) DaysLeft(now time.Time) *int {
	if b.Status != BorrowActive {
		return nil
	}
	var n int
	if now.After(b.DueTime()) {
		n = -int(now.Sub(b.DueTime()) / day)
	} else {
		n = int(b.DueTime().Sub(now) / day)
	}
	return &n
}

// OverdueCutoff is the latest borrow time an active borrow may have at now
// without being overdue. Used to express the predicate in SQL.
func OverdueCutoff(now time.Time) time.Time { return now.Add(-LoanPeriod) }

// BorrowDetail joins a borrow with the book fields shown to clients.
type BorrowDetail struct {
	Borrow
	BookName string `db:"book_name"`
	Author   string `db:"author"`
	ISBN     string `db:"isbn"`
	Username string `db:"username"`
}

// BorrowView is the JSON shape used by list and detail responses.
type BorrowView struct {
	BorrowID    uint64     `json:"borrow_id"`
	UserID      uint64     `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	BookID      uint64     `json:"book_id"`
	BookName    string     `json:"book_name"`
	Author      string     `json:"author"`
	ISBN        string     `json:"isbn"`
	BorrowTime  time.Time  `json:"borrow_time"`
	DueTime     time.Time  `json:"due_time"`
	ReturnTime  *time.Time `json:"return_time"`
	Status      string     `json:"status"`
	IsOverdue   bool       `json:"is_overdue"`
	OverdueDays int        `json:"overdue_days"`
	DaysLeft    *int       `json:"days_left"`
}

func (d BorrowDetail) View(now time.Time) BorrowView {
	return BorrowView{
		BorrowID:    d.ID,
		UserID:      d.UserID,
		Username:    d.Username,
		BookID:      d.BookID,
		BookName:    d.BookName,
		Author:      d.Author,
		ISBN:        d.ISBN,
		BorrowTime:  d.BorrowTime,
		DueTime:     d.DueTime(),
		ReturnTime:  d.ReturnTime,
		Status:      d.Status.String(),
		IsOverdue:   d.IsOverdue(now),
		OverdueDays: d.OverdueDays(now),
		DaysLeft:    d.DaysLeft(now),
	}
}

// Rate returns part/total as a percentage rounded to two decimals.
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(total)) / 100
}
