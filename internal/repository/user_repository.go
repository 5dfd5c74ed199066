package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/iliyamo/library-management/internal/model"
)

const usersTable = "users"

var userColumns = []interface{}{
	"id", "username", "email", "phone", "password_hash", "password_changed_at",
	"privilege", "status", "name", "sex", "age", "introduction",
	"created_at", "updated_at", "deleted_at",
}

// Identifier names a login identifier column of users.
type Identifier string

const (
	ByUsername Identifier = "username"
	ByEmail    Identifier = "email"
	ByPhone    Identifier = "phone"
)

func (f Identifier) valid() bool { return f == ByUsername || f == ByEmail || f == ByPhone }

// ProfileChanges lists the user columns a profile update may touch; nil
// fields are left alone.
type ProfileChanges struct {
	Name         *string
	Sex          *model.Sex
	Age          *int
	Introduction *string
	Email        *string
	Phone        *string
}

func (c ProfileChanges) record() goqu.Record {
	rec := goqu.Record{}
	if c.Name != nil {
		rec["name"] = *c.Name
	}
	if c.Sex != nil {
		rec["sex"] = *c.Sex
	}
	if c.Age != nil {
		rec["age"] = *c.Age
	}
	if c.Introduction != nil {
		rec["introduction"] = *c.Introduction
	}
	if c.Email != nil {
		rec["email"] = *c.Email
	}
	if c.Phone != nil {
		rec["phone"] = *c.Phone
	}
	return rec
}

// UserRepo is the credential store.
type UserRepo struct{}

func NewUserRepo() *UserRepo { return &UserRepo{} }

func (r *UserRepo) byID(id uint64) *goqu.SelectDataset {
	return from(usersTable).Select(userColumns...).Where(goqu.C("id").Eq(id), live(""))
}

// GetByID returns a live user.
func (r *UserRepo) GetByID(ctx context.Context, q Querier, id uint64) (model.User, error) {
	var u model.User
	err := get(ctx, q, &u, r.byID(id))
	return u, err
}

// GetByIDForUpdate returns a live user and locks its row until the
// transaction ends.
func (r *UserRepo) GetByIDForUpdate(ctx context.Context, q Querier, id uint64) (model.User, error) {
	var u model.User
	err := get(ctx, q, &u, r.byID(id).ForUpdate(exp.Wait))
	return u, err
}

// GetByIdentifier finds a live user by username, email or phone.
func (r *UserRepo) GetByIdentifier(ctx context.Context, q Querier, field Identifier, value string) (model.User, error) {
	if !field.valid() {
		return model.User{}, fmt.Errorf("unknown identifier %q", field)
	}
	var u model.User
	err := get(ctx, q, &u, from(usersTable).Select(userColumns...).
		Where(goqu.C(string(field)).Eq(value), live("")))
	return u, err
}

// IdentifierTaken reports whether another live user (not exceptID) already
// uses value. Soft-deleted users do not hold identifiers.
func (r *UserRepo) IdentifierTaken(ctx context.Context, q Querier, field Identifier, value string, exceptID uint64) (bool, error) {
	if !field.valid() {
		return false, fmt.Errorf("unknown identifier %q", field)
	}
	n, err := count(ctx, q, from(usersTable).
		Where(goqu.C(string(field)).Eq(value), goqu.C("id").Neq(exceptID), live("")))
	return n > 0, err
}

// Create inserts u and returns the new id. Violated identifier keys come back
// as *DuplicateError.
func (r *UserRepo) Create(ctx context.Context, q Querier, u model.User) (uint64, error) {
	rec := goqu.Record{
		"username":            u.Username,
		"email":               u.Email,
		"phone":               u.Phone,
		"password_hash":       u.PasswordHash,
		"password_changed_at": u.PasswordChangedAt,
		"privilege":           u.Privilege,
		"status":              u.Status,
		"name":                u.Name,
		"sex":                 u.Sex,
	}
	if u.Age != nil {
		rec["age"] = *u.Age
	}
	if u.Introduction != nil {
		rec["introduction"] = *u.Introduction
	}
	return insertID(ctx, q, insertInto(usersTable).Rows(rec))
}

func (r *UserRepo) set(ctx context.Context, q Querier, id uint64, rec goqu.Record) error {
	return execOne(ctx, q, update(usersTable).Set(rec).Where(goqu.C("id").Eq(id), live("")), ErrNotFound)
}

// UpdateProfile applies the non-nil fields of c.
func (r *UserRepo) UpdateProfile(ctx context.Context, q Querier, id uint64, c ProfileChanges) error {
	rec := c.record()
	if len(rec) == 0 {
		return nil
	}
	return r.set(ctx, q, id, rec)
}

// UpdatePassword stores a new hash and moves the credentials epoch to
// changedAt, invalidating every token issued before it.
func (r *UserRepo) UpdatePassword(ctx context.Context, q Querier, id uint64, hash string, changedAt time.Time) error {
	return r.set(ctx, q, id, goqu.Record{"password_hash": hash, "password_changed_at": changedAt})
}

func (r *UserRepo) SetPrivilege(ctx context.Context, q Querier, id uint64, p model.Privilege) error {
	return r.set(ctx, q, id, goqu.Record{"privilege": p})
}

func (r *UserRepo) SetStatus(ctx context.Context, q Querier, id uint64, s model.UserStatus) error {
	return r.set(ctx, q, id, goqu.Record{"status": s})
}

func (r *UserRepo) SoftDelete(ctx context.Context, q Querier, id uint64, at time.Time) error {
	return r.set(ctx, q, id, goqu.Record{"deleted_at": at})
}

// List pages through live users, optionally matching keyword against the
// username, name, email and phone.
func (r *UserRepo) List(ctx context.Context, q Querier, keyword string, p model.Page) ([]model.User, int, error) {
	ds := from(usersTable).Select(userColumns...).Where(live(""))
	if keyword != "" {
		k := like(keyword)
		ds = ds.Where(goqu.Or(
			goqu.C("username").Like(k),
			goqu.C("name").Like(k),
			goqu.C("email").Like(k),
			goqu.C("phone").Like(k),
		))
	}
	total, err := count(ctx, q, ds)
	if err != nil {
		return nil, 0, err
	}
	users := []model.User{}
	err = selectAll(ctx, q, &users, paged(ds.Order(goqu.C("id").Asc()), p))
	return users, total, err
}
