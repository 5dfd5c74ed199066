package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/utils"
)

// UserPage is one page of accounts.
type UserPage struct {
	Users       []model.UserView `json:"users"`
	Total       int              `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

// UserAdminService is the admin side of account management. Every mutation
// locks the target row and re-checks the rules inside the transaction.
type UserAdminService struct {
	tx    TxRunner
	users UserStore
	log   *zap.Logger
	now   Clock
}

func NewUserAdminService(tx TxRunner, users UserStore, log *zap.Logger) *UserAdminService {
	return &UserAdminService{tx: tx, users: users, log: log, now: systemClock}
}

// List pages through live accounts, optionally filtered by keyword.
func (s *UserAdminService) List(ctx context.Context, keyword string, p model.Page) (*UserPage, error) {
	rows, total, err := s.users.List(ctx, s.tx.Q(), utils.StripTags(strings.TrimSpace(keyword)), p)
	if err != nil {
		s.log.Error("list users failed", zap.Error(err))
		return nil, persistence(err)
	}
	views := make([]model.UserView, 0, len(rows))
	for _, u := range rows {
		views = append(views, u.View())
	}
	return &UserPage{Users: views, Total: total, Pages: p.Pages(total), CurrentPage: p.Number}, nil
}

func (s *UserAdminService) SetPrivilege(ctx context.Context, actor model.User, targetID uint64, p model.Privilege) error {
	if !p.Valid() {
		return validation("privilege must be 0 or 1")
	}
	return s.mutate(ctx, actor, targetID, ActionSetPrivilege, func(q repository.Querier, _ model.User) error {
		return s.users.SetPrivilege(ctx, q, targetID, p)
	})
}

func (s *UserAdminService) Ban(ctx context.Context, actor model.User, targetID uint64) error {
	return s.mutate(ctx, actor, targetID, ActionBan, func(q repository.Querier, t model.User) error {
		if t.IsBanned() {
			return conflict(CodeAlreadyBanned, "user is already banned")
		}
		return s.users.SetStatus(ctx, q, targetID, model.UserBanned)
	})
}

func (s *UserAdminService) Unban(ctx context.Context, actor model.User, targetID uint64) error {
	return s.mutate(ctx, actor, targetID, ActionUnban, func(q repository.Querier, t model.User) error {
		if !t.IsBanned() {
			return conflict(CodeNotBanned, "user is not banned")
		}
		return s.users.SetStatus(ctx, q, targetID, model.UserActive)
	})
}

// SoftDelete tombstones the account; its identifiers become free again.
func (s *UserAdminService) SoftDelete(ctx context.Context, actor model.User, targetID uint64) error {
	return s.mutate(ctx, actor, targetID, ActionDelete, func(q repository.Querier, _ model.User) error {
		return s.users.SoftDelete(ctx, q, targetID, dbNow(s.now))
	})
}

func (s *UserAdminService) mutate(ctx context.Context, actor model.User, targetID uint64, action AdminAction, apply func(repository.Querier, model.User) error) error {
	if actor.ID == targetID {
		return forbidden("administrators cannot change their own account")
	}
	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		target, err := s.users.GetByIDForUpdate(ctx, q, targetID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(CodeUserNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		if err := CanAdminister(actor, target, action); err != nil {
			return err
		}
		if err := apply(q, target); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(CodeUserNotFound, "user not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		ae := asAppError(err)
		if ae.Kind == KindPersistence {
			s.log.Error("user admin failed", zap.String("action", string(action)), zap.Uint64("target_id", targetID), zap.Error(err))
		}
		return ae
	}
	s.log.Info("user administered", zap.String("action", string(action)), zap.Uint64("actor_id", actor.ID), zap.Uint64("target_id", targetID))
	return nil
}
