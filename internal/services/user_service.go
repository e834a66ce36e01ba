package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "spendwise/internal/errors"
	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/pagination"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
)

// Login lockout policy.
const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// userService handles user-related business logic.
type userService struct {
	users repository.Repository[models.User]
	audit AuditServicer
	now   func() time.Time
}

// NewUserService creates a new UserServicer. A nil clock uses time.Now.
func NewUserService(users repository.Repository[models.User], audit AuditServicer, now func() time.Time) UserServicer {
	if now == nil {
		now = time.Now
	}
	return &userService{users: users, audit: audit, now: now}
}

// Register creates a new account with the user role.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	user, err := s.create(ctx, input.Email, input.Password, input.Name, models.RoleUser)
	if err != nil {
		return nil, err
	}
	s.audit.LogCreate(ctx, permissions.Actor{UserID: user.ID, Role: user.Role}, models.EntityUser, user.ID, user)
	return user, nil
}

// CreateUser lets an admin create an account with any role.
func (s *userService) CreateUser(ctx context.Context, actor permissions.Actor, input CreateUserInput) (*models.User, error) {
	if !permissions.CanManageUsers(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	if !input.Role.Valid() {
		return nil, invalidInput("unknown role %q", input.Role)
	}
	user, err := s.create(ctx, input.Email, input.Password, input.Name, input.Role)
	if err != nil {
		return nil, err
	}
	s.audit.LogCreate(ctx, actor, models.EntityUser, user.ID, user)
	return user, nil
}

func (s *userService) create(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateLength("name", name, 1, maxNameLength); err != nil {
		return nil, err
	}

	count, err := s.users.Count(ctx, repository.Where("email = ?", email))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		Name:     name,
		Role:     role,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// AttemptLogin verifies credentials. Repeated failures lock the account for
// lockoutDuration; a successful login clears the failure count.
func (s *userService) AttemptLogin(ctx context.Context, email, password string) (*models.User, error) {
	found, err := s.users.Query(ctx, repository.Where("email = ?", strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(found) == 0 {
		return nil, apperrors.ErrInvalidCredentials
	}
	user := found[0]
	now := s.now().UTC()

	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, apperrors.ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		attempts := user.FailedLoginAttempts + 1
		updates := map[string]any{"failed_login_attempts": attempts}
		if attempts >= maxFailedLogins {
			updates["failed_login_attempts"] = 0
			updates["locked_until"] = now.Add(lockoutDuration)
			logger.Get().Warnw("account locked after repeated failed logins", "user_id", user.ID)
		}
		if _, err := s.users.Update(ctx, user.ID, updates); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	updated, err := s.users.Update(ctx, user.ID, map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return updated, nil
}

// GetUserByID returns a user to an admin or to the user themselves.
func (s *userService) GetUserByID(ctx context.Context, actor permissions.Actor, id string) (*models.User, error) {
	if !permissions.CanManageUsers(actor.Role) && actor.UserID != id {
		return nil, apperrors.ErrForbidden
	}
	return s.get(ctx, id)
}

func (s *userService) get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns a page of users, newest first.
func (s *userService) ListUsers(ctx context.Context, actor permissions.Actor, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if !permissions.CanManageUsers(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	page.Defaults()

	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	users, err := s.users.Query(ctx, repository.OrderBy("created_at DESC, id DESC"), pagination.Paginate(page))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, total)
	return &result, nil
}

// UpdateUser applies the non-nil fields of input.
func (s *userService) UpdateUser(ctx context.Context, actor permissions.Actor, id string, input UpdateUserInput) (*models.User, error) {
	if !permissions.CanManageUsers(actor.Role) {
		return nil, apperrors.ErrForbidden
	}
	before, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := validateLength("name", name, 1, maxNameLength); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, invalidInput("unknown role %q", *input.Role)
		}
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		if !*input.IsActive && id == actor.UserID {
			return nil, apperrors.ErrCannotDeleteSelf
		}
		updates["is_active"] = *input.IsActive
	}
	if input.Password != nil {
		if err := validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["password"] = string(hashed)
		updates["refresh_token_hash"] = ""
	}

	after, err := s.users.Update(ctx, id, updates)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogUpdate(ctx, actor, models.EntityUser, id, before, after)
	return after, nil
}

// DeactivateUser disables an account and revokes its refresh token.
func (s *userService) DeactivateUser(ctx context.Context, actor permissions.Actor, id string) error {
	if !permissions.CanManageUsers(actor.Role) {
		return apperrors.ErrForbidden
	}
	if id == actor.UserID {
		return apperrors.ErrCannotDeleteSelf
	}
	before, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	after, err := s.users.Update(ctx, id, map[string]any{"is_active": false, "refresh_token_hash": ""})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.audit.LogUpdate(ctx, actor, models.EntityUser, id, before, after)
	return nil
}

// EnsureAdmin creates the bootstrap admin when no user owns email yet.
// An empty email disables bootstrapping.
func (s *userService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	if email == "" {
		return nil, nil
	}
	existing, err := s.users.Query(ctx, repository.Where("email = ?", strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	if name == "" {
		name = "Administrator"
	}
	user, err := s.create(ctx, email, password, name, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.audit.LogCreate(ctx, permissions.System, models.EntityUser, user.ID, user)
	logger.Get().Infow("bootstrap admin created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// StoreRefreshTokenHash saves the SHA-256 hex digest of the user's current
// refresh token. An empty hash revokes it.
func (s *userService) StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error {
	if _, err := s.users.Update(ctx, userID, map[string]any{"refresh_token_hash": tokenHash}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token digest.
func (s *userService) GetRefreshTokenHash(ctx context.Context, userID string) (string, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.RefreshTokenHash, nil
}
