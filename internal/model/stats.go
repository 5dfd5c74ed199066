package model

// BorrowCounts aggregates the borrows of one user, one book or the system.
type BorrowCounts struct {
	Total          int      `db:"total" json:"total_borrows"`
	Returned       int      `db:"returned" json:"returned_borrows"`
	Active         int      `db:"active" json:"current_borrows"`
	ReturnedLate   int      `db:"returned_late" json:"-"`
	CurrentOverdue int      `db:"current_overdue" json:"current_overdue_borrows"`
	AvgBorrowDays  *float64 `db:"avg_borrow_days" json:"-"`
}

// Overdue counts borrows that are, or were returned, past due.
func (c BorrowCounts) Overdue() int { return c.ReturnedLate + c.CurrentOverdue }

// BookBorrowCount ranks books by number of borrows.
type BookBorrowCount struct {
	BookID      uint64 `db:"book_id" json:"book_id"`
	Name        string `db:"name" json:"name"`
	Author      string `db:"author" json:"author"`
	BorrowCount int    `db:"borrow_count" json:"borrow_count"`
}

// UserBorrowCount ranks users by number of borrows.
type UserBorrowCount struct {
	UserID      uint64 `db:"user_id" json:"user_id"`
	Username    string `db:"username" json:"username"`
	Name        string `db:"name" json:"name"`
	BorrowCount int    `db:"borrow_count" json:"borrow_count"`
}

// CategoryStat summarises one catalog category.
type CategoryStat struct {
	Category    string `db:"category" json:"category"`
	BookCount   int    `db:"book_count" json:"book_count"`
	BorrowCount int    `db:"borrow_count" json:"borrow_count"`
}

// CatalogTotals are the system-wide entity counts.
type CatalogTotals struct {
	ActiveUsers int `db:"active_users" json:"total_users"`
	Books       int `db:"books" json:"total_books"`
	Stock       int `db:"stock" json:"total_stock"`
}
