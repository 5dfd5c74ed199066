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

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Username     string    `json:"username" validate:"required,min=6,max=20"`
	Email        string    `json:"email" validate:"required,email,max=120"`
	Phone        string    `json:"phone" validate:"required,phone"`
	Password     string    `json:"password" validate:"required,min=6,max=72"`
	Name         string    `json:"name" validate:"required,max=50"`
	Sex          model.Sex `json:"sex" validate:"min=0,max=2"`
	Age          *int      `json:"age" validate:"omitempty,min=1,max=119"`
	Introduction *string   `json:"introduction" validate:"omitempty,max=500"`
}

// LoginInput identifies the account by exactly one of username, email or
// phone; username wins when several are given.
type LoginInput struct {
	Username string `json:"username" validate:"omitempty,min=6,max=20"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial profile update; nil fields stay unchanged.
type ProfileInput struct {
	Name         *string    `json:"name" validate:"omitempty,min=1,max=50"`
	Sex          *model.Sex `json:"sex" validate:"omitempty,min=0,max=2"`
	Age          *int       `json:"age" validate:"omitempty,min=1,max=119"`
	Introduction *string    `json:"introduction" validate:"omitempty,max=500"`
	Email        *string    `json:"email" validate:"omitempty,email,max=120"`
	Phone        *string    `json:"phone" validate:"omitempty,phone"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// LoginResult carries the session tokens and the account they belong to.
type LoginResult struct {
	TokenPair
	User model.UserView `json:"user"`
}

// AuthService handles accounts: registration, login, profile and password.
type AuthService struct {
	tx         TxRunner
	users      UserStore
	sessions   *SessionService
	bcryptCost int
	log        *zap.Logger
	now        Clock
}

type AuthOption func(*AuthService)

func WithAuthClock(c Clock) AuthOption { return func(s *AuthService) { s.now = c } }

func NewAuthService(tx TxRunner, users UserStore, sessions *SessionService, bcryptCost int, log *zap.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{tx: tx, users: users, sessions: sessions, bcryptCost: bcryptCost, log: log, now: systemClock}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a regular, active account and returns its id.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (uint64, error) {
	in.Username = utils.StripTags(in.Username)
	in.Email = utils.StripTags(in.Email)
	in.Phone = utils.StripTags(in.Phone)
	in.Name = utils.StripTags(in.Name)
	in.Introduction = utils.StripTagsPtr(in.Introduction)
	if err := utils.Validate(in); err != nil {
		return 0, validation(err.Error())
	}

	q := s.tx.Q()
	for _, c := range []struct {
		field repository.Identifier
		value string
	}{{repository.ByUsername, in.Username}, {repository.ByEmail, in.Email}, {repository.ByPhone, in.Phone}} {
		taken, err := s.users.IdentifierTaken(ctx, q, c.field, c.value, 0)
		if err != nil {
			return 0, s.fail("register", err)
		}
		if taken {
			return 0, identifierTaken(c.field)
		}
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return 0, s.fail("register", err)
	}
	id, err := s.users.Create(ctx, q, model.User{
		Username:          in.Username,
		Email:             in.Email,
		Phone:             in.Phone,
		PasswordHash:      hash,
		PasswordChangedAt: dbNow(s.now),
		Privilege:         model.PrivilegeRegular,
		Status:            model.UserActive,
		Name:              in.Name,
		Sex:               in.Sex,
		Age:               in.Age,
		Introduction:      in.Introduction,
	})
	if err != nil {
		if ae := duplicateIdentifier(err); ae != nil {
			return 0, ae
		}
		return 0, s.fail("register", err)
	}
	s.log.Info("user registered", zap.Uint64("user_id", id))
	return id, nil
}

// Login checks the password and issues a fresh session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Username = utils.StripTags(in.Username)
	in.Email = utils.StripTags(in.Email)
	in.Phone = utils.StripTags(in.Phone)
	if err := utils.Validate(in); err != nil {
		return nil, validation(err.Error())
	}
	field, value := repository.ByUsername, in.Username
	switch {
	case in.Username != "":
	case in.Email != "":
		field, value = repository.ByEmail, in.Email
	case in.Phone != "":
		field, value = repository.ByPhone, in.Phone
	default:
		return nil, validation("username, email or phone is required")
	}

	user, err := s.users.GetByIdentifier(ctx, s.tx.Q(), field, value)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, s.fail("login", err)
	}
	if err != nil || !utils.VerifyPassword(user.PasswordHash, in.Password) {
		return nil, unauthorized(CodeInvalidCredentials, "wrong username or password")
	}
	if user.IsBanned() {
		return nil, newError(KindForbidden, CodeAccountBanned, "account is banned")
	}

	pair, err := s.sessions.Issue(user.ID, true)
	if err != nil {
		return nil, s.fail("login", err)
	}
	return &LoginResult{TokenPair: pair, User: user.View()}, nil
}

// Profile returns the caller's account.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (*model.UserView, error) {
	u, err := s.users.GetByID(ctx, s.tx.Q(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, s.fail("profile", err)
	}
	v := u.View()
	return &v, nil
}

// UpdateProfile applies in to the caller's account and returns the result.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (*model.UserView, error) {
	in.Name = utils.StripTagsPtr(in.Name)
	in.Introduction = utils.StripTagsPtr(in.Introduction)
	in.Email = utils.StripTagsPtr(in.Email)
	in.Phone = utils.StripTagsPtr(in.Phone)
	if err := utils.Validate(in); err != nil {
		return nil, validation(err.Error())
	}

	err := s.tx.InTx(ctx, func(q repository.Querier) error {
		if _, err := s.users.GetByIDForUpdate(ctx, q, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(CodeUserNotFound, "user not found")
			}
			return err
		}
		if in.Email != nil {
			if err := s.ensureFree(ctx, q, repository.ByEmail, *in.Email, userID); err != nil {
				return err
			}
		}
		if in.Phone != nil {
			if err := s.ensureFree(ctx, q, repository.ByPhone, *in.Phone, userID); err != nil {
				return err
			}
		}
		err := s.users.UpdateProfile(ctx, q, userID, repository.ProfileChanges{
			Name:         in.Name,
			Sex:          in.Sex,
			Age:          in.Age,
			Introduction: in.Introduction,
			Email:        in.Email,
			Phone:        in.Phone,
		})
		if ae := duplicateIdentifier(err); ae != nil {
			return ae
		}
		return err
	})
	if err != nil {
		return nil, s.fail("update profile", err)
	}
	return s.Profile(ctx, userID)
}

// ChangePassword replaces the caller's password. It needs a fresh access
// token, moves the credentials epoch to now and revokes the token used for
// the call; every other token issued before the change stops validating
// through the epoch check.
func (s *AuthService) ChangePassword(ctx context.Context, caller Principal, in ChangePasswordInput) error {
	if !caller.Fresh {
		return unauthorized(CodeFreshTokenRequired, "fresh token required")
	}
	if err := utils.Validate(in); err != nil {
		return validation(err.Error())
	}
	user, err := s.users.GetByID(ctx, s.tx.Q(), caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(CodeUserNotFound, "user not found")
	}
	if err != nil {
		return s.fail("change password", err)
	}
	if !utils.VerifyPassword(user.PasswordHash, in.CurrentPassword) {
		return unauthorized(CodeInvalidCredentials, "current password is wrong")
	}
	hash, err := utils.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return s.fail("change password", err)
	}

	err = s.tx.InTx(ctx, func(q repository.Querier) error {
		if err := s.users.UpdatePassword(ctx, q, caller.UserID, hash, dbNow(s.now)); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound(CodeUserNotFound, "user not found")
			}
			return err
		}
		return s.sessions.revoke(ctx, q, caller, model.RevokePasswordChange)
	})
	if err != nil {
		return s.fail("change password", err)
	}
	s.log.Info("password changed", zap.Uint64("user_id", caller.UserID))
	return nil
}

// Available reports whether value is free for field among live accounts.
func (s *AuthService) Available(ctx context.Context, field repository.Identifier, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, validation(string(field) + " is required")
	}
	taken, err := s.users.IdentifierTaken(ctx, s.tx.Q(), field, value, 0)
	if err != nil {
		return false, s.fail("availability", err)
	}
	return !taken, nil
}

func (s *AuthService) ensureFree(ctx context.Context, q repository.Querier, field repository.Identifier, value string, exceptID uint64) error {
	taken, err := s.users.IdentifierTaken(ctx, q, field, value, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return identifierTaken(field)
	}
	return nil
}

func (s *AuthService) fail(op string, err error) error {
	ae := asAppError(err)
	if ae.Kind == KindPersistence {
		s.log.Error(op+" failed", zap.Error(err))
	}
	return ae
}

func identifierTaken(field repository.Identifier) *AppError {
	switch field {
	case repository.ByEmail:
		return conflict(CodeEmailTaken, "email already in use")
	case repository.ByPhone:
		return conflict(CodePhoneTaken, "phone already in use")
	default:
		return conflict(CodeUsernameTaken, "username already in use")
	}
}

// duplicateIdentifier maps a unique index violation on users to the
// matching conflict, or returns nil for any other error.
func duplicateIdentifier(err error) *AppError {
	key, ok := repository.DuplicateKey(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(key, "email"):
		return identifierTaken(repository.ByEmail)
	case strings.Contains(key, "phone"):
		return identifierTaken(repository.ByPhone)
	default:
		return identifierTaken(repository.ByUsername)
	}
}
