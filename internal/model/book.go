package model

import "time"

// ISBNLength is the exact length every stored ISBN must have.
const ISBNLength = 13

// Book represents a row of the `books` table. Stock is the authoritative
// count of copies on the shelf and never drops below zero.
type Book struct {
	ID           uint64     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Author       string     `db:"author" json:"author"`
	Publisher    string     `db:"publisher" json:"publisher"`
	Category     string     `db:"category" json:"category"`
	Introduction *string    `db:"introduction" json:"introduction"`
	ISBN         string     `db:"isbn" json:"isbn"`
	Stock        int        `db:"stock" json:"stock"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"-"`
}

func (b Book) IsDeleted() bool { return b.DeletedAt != nil }

// CategoryCount is one entry of the category listing.
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Books    int    `db:"books" json:"books"`
}
