package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sarpraslab/peminjaman-backend/pkg/auth"
	"github.com/sarpraslab/peminjaman-backend/pkg/db"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
	pkgerrors "github.com/sarpraslab/peminjaman-backend/pkg/errors"
	"github.com/sarpraslab/peminjaman-backend/pkg/security"
)

type passwordHasher interface {
	Hash(password string) (string, error)
}

// Service is the admin user directory.
type Service interface {
	List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]UserDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error)
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Result, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*Result, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error)
}

type service struct {
	repo   *Repository
	hasher passwordHasher
}

func NewService(repo *Repository, hasher passwordHasher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("password hasher required")
	}
	return &service{repo: repo, hasher: hasher}, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]UserDTO, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", filter.Role)
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*UserDTO, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(input.Username)
	name := strings.TrimSpace(input.Name)
	if err := security.ValidateCredentials(username, input.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", input.Role)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.repo.Create(ctx, CreateUserDTO{Username: username, PasswordHash: hash, Name: name, Role: input.Role})
	if err != nil {
		if db.IsUniqueViolation(err, "users_username_key", "users.username") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	out := &Result{User: FromModel(user)}
	out.Events.Audit(actor.ID, enums.AuditCreate, "users", user.ID,
		fmt.Sprintf("created user %s with role %s", user.Username, user.Role))
	return out, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if len([]rune(username)) < security.MinUsernameLength {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "username must be at least %d characters", security.MinUsernameLength)
		}
		cols["username"] = username
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		cols["name"] = name
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", *input.Role)
		}
		if id == actor.ID && *input.Role != enums.RoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "admins cannot demote themselves")
		}
		cols["role"] = *input.Role
	}
	if input.Password != nil && *input.Password != "" {
		if len([]rune(*input.Password)) < security.MinPasswordLength {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters", security.MinPasswordLength)
		}
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		cols["password_hash"] = hash
	}

	if len(cols) > 0 {
		found, err := s.repo.Update(ctx, id, cols)
		if err != nil {
			if db.IsUniqueViolation(err, "users_username_key", "users.username") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "reload user")
	}

	out := &Result{User: FromModel(user)}
	out.Events.Audit(actor.ID, enums.AuditUpdate, "users", user.ID, "updated user "+user.Username)
	return out, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Result, error) {
	if err := actor.Require(enums.RoleAdmin); err != nil {
		return nil, err
	}
	if id == actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "admins cannot delete their own account")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	hasLoans, err := s.repo.HasLoans(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user loans")
	}
	if hasLoans {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user has loan history and cannot be deleted")
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}

	out := &Result{User: FromModel(user)}
	out.Events.Audit(actor.ID, enums.AuditDelete, "users", id, "deleted user "+user.Username)
	return out, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
