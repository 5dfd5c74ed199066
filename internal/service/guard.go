package service

import (
	"context"
	"errors"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
)

// AdminAction is an administrative mutation of another account.
type AdminAction string

const (
	ActionSetPrivilege AdminAction = "set_privilege"
	ActionBan          AdminAction = "ban"
	ActionUnban        AdminAction = "unban"
	ActionDelete       AdminAction = "delete"
)

// AccessGuard gates privileged operations on the caller's stored privilege,
// not on anything carried in the token.
type AccessGuard struct {
	tx    TxRunner
	users UserStore
}

func NewAccessGuard(tx TxRunner, users UserStore) *AccessGuard {
	return &AccessGuard{tx: tx, users: users}
}

// RequireRole loads userID and fails with Forbidden unless it is a live,
// unbanned account holding at least role.
func (g *AccessGuard) RequireRole(ctx context.Context, userID uint64, role model.Privilege) (*model.User, error) {
	u, err := g.users.GetByID(ctx, g.tx.Q(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, forbidden("insufficient privilege")
	}
	if err != nil {
		return nil, persistence(err)
	}
	if err := meetsRole(u, role); err != nil {
		return nil, err
	}
	return &u, nil
}

func meetsRole(u model.User, role model.Privilege) error {
	if u.IsDeleted() || u.IsBanned() || u.Privilege < role {
		return forbidden("insufficient privilege")
	}
	return nil
}

// CanAdminister applies the self-protection rules: an admin never acts on
// its own account, and never bans, unbans or deletes another admin.
func CanAdminister(actor, target model.User, action AdminAction) error {
	if actor.ID == target.ID {
		return forbidden("administrators cannot change their own account")
	}
	if target.IsAdmin() && action != ActionSetPrivilege {
		return forbidden("administrators cannot " + string(action) + " another administrator")
	}
	return nil
}
