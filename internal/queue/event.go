// Package queue carries borrow lifecycle events over RabbitMQ: a publisher
// used after commit and an audit consumer that writes them to a log file.
package queue

import "time"

// Event types.
const (
	BorrowCreated  = "borrow.created"
	BorrowReturned = "borrow.returned"
)

// BorrowEvent describes one committed borrow or return. It carries enough
// for downstream consumers to log or notify without querying the database.
type BorrowEvent struct {
	Type        string     `json:"type"`
	BorrowID    uint64     `json:"borrow_id"`
	UserID      uint64     `json:"user_id"`
	BookID      uint64     `json:"book_id"`
	BookName    string     `json:"book_name"`
	BorrowTime  time.Time  `json:"borrow_time"`
	DueTime     time.Time  `json:"due_time"`
	ReturnTime  *time.Time `json:"return_time,omitempty"`
	IsOverdue   bool       `json:"is_overdue"`
	OverdueDays int        `json:"overdue_days"`
	OccurredAt  time.Time  `json:"occurred_at"`
}
