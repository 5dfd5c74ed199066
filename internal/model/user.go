package model

import "time"

// Privilege is the role level stored in users.privilege.
type Privilege int8

const (
	PrivilegeRegular Privilege = 0
	PrivilegeAdmin   Privilege = 1
)

func (p Privilege) Valid() bool { return p == PrivilegeRegular || p == PrivilegeAdmin }

// UserStatus is stored in users.status.
type UserStatus int8

const (
	UserActive UserStatus = 0
	UserBanned UserStatus = 1
)

// Sex is stored in users.sex (0 male, 1 female, 2 unknown).
type Sex int8

const (
	SexMale    Sex = 0
	SexFemale  Sex = 1
	SexUnknown Sex = 2
)

func (s Sex) Valid() bool { return s >= SexMale && s <= SexUnknown }

// User represents a row of the `users` table. PasswordChangedAt is the
// credentials epoch: tokens issued before it are no longer accepted.
type User struct {
	ID                uint64     `db:"id"`
	Username          string     `db:"username"`
	Email             string     `db:"email"`
	Phone             string     `db:"phone"`
	PasswordHash      string     `db:"password_hash"`
	PasswordChangedAt time.Time  `db:"password_changed_at"`
	Privilege         Privilege  `db:"privilege"`
	Status            UserStatus `db:"status"`
	Name              string     `db:"name"`
	Sex               Sex        `db:"sex"`
	Age               *int       `db:"age"`
	Introduction      *string    `db:"introduction"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at"` // soft-delete marker
}

func (u User) IsDeleted() bool { return u.DeletedAt != nil }
func (u User) IsBanned() bool  { return u.Status == UserBanned }
func (u User) IsAdmin() bool   { return u.Privilege == PrivilegeAdmin }

// UserView is the public JSON shape of a user; it never carries the hash.
type UserView struct {
	ID           uint64     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Name         string     `json:"name"`
	Sex          Sex        `json:"sex"`
	Age          *int       `json:"age"`
	Introduction *string    `json:"introduction"`
	Privilege    Privilege  `json:"privilege"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (u User) View() UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		Name:         u.Name,
		Sex:          u.Sex,
		Age:          u.Age,
		Introduction: u.Introduction,
		Privilege:    u.Privilege,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
	}
}
