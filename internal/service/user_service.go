package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"distribuidora/internal/model"
	"distribuidora/internal/repository"
	"distribuidora/pkg/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin seller"`
}

type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty,max=100"`
	Email string `json:"email" binding:"omitempty,email"`
	Role  string `json:"role" binding:"omitempty,oneof=admin seller"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

type TokenResponse struct {
	Token        string       `json:"token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// UserResponse is a user without credentials
type UserResponse struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

const minPasswordLength = 6

// UserService covers authentication and user administration
type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, actor Actor) (*UserResponse, error)
	ChangeOwnPassword(ctx context.Context, actor Actor, req ChangePasswordRequest) error

	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, id uint) (*UserResponse, error)
	ListUsers(ctx context.Context, page repository.Page) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor Actor, id uint, req UpdateUserRequest) (*UserResponse, error)
	ResetPassword(ctx context.Context, actor Actor, id uint, req ResetPasswordRequest) error
	ToggleActive(ctx context.Context, actor Actor, id uint) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, id uint) error
}

type userService struct {
	repo       repository.UserRepository
	orders     repository.OrderRepository
	returns    repository.ReturnRepository
	txManager  repository.TransactionManager
	tokens     *token.Issuer
	refreshTTL time.Duration
	clock      Clock
	audit      auditor
}

// NewUserService returns a new instance of UserService
func NewUserService(d Dependencies) UserService {
	return &userService{
		repo:       d.Users,
		orders:     d.Orders,
		returns:    d.Returns,
		txManager:  d.TxManager,
		tokens:     d.Tokens,
		refreshTTL: d.RefreshTokenTTL,
		clock:      d.Clock,
		audit:      d.auditor(),
	}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Active:      user.Active,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	invalid := newError(ErrUnauthorized, "invalid email or password")

	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, invalid
	}
	if !user.Active {
		return nil, newError(ErrForbidden, "user %s is inactive", user.Email)
	}

	var res *TokenResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		user.LastLoginAt = &now
		if err := s.repo.Update(txCtx, user); err != nil {
			return saveErr(err, "stamp last login")
		}
		res, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RefreshToken rotates a refresh token: the presented one is consumed and a new pair is issued.
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	var res *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.repo.GetRefreshToken(txCtx, req.RefreshToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrUnauthorized, "invalid refresh token")
			}
			return fmt.Errorf("failed to load refresh token: %w", err)
		}
		if err := s.repo.DeleteRefreshToken(txCtx, stored.Token); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if s.clock.Now().After(stored.ExpiresAt) {
			return newError(ErrUnauthorized, "refresh token expired")
		}

		user, err := s.repo.GetByID(txCtx, stored.UserID)
		if err != nil {
			return loadErr(err, "user", stored.UserID)
		}
		if !user.Active {
			return newError(ErrForbidden, "user %s is inactive", user.Email)
		}

		res, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *userService) Me(ctx context.Context, actor Actor) (*UserResponse, error) {
	return s.GetUserByID(ctx, actor.UserID)
}

func (s *userService) ChangeOwnPassword(ctx context.Context, actor Actor, req ChangePasswordRequest) error {
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return loadErr(err, "user", actor.UserID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return newError(ErrValidation, "current password is incorrect")
	}
	return s.setPassword(ctx, actor, user, req.NewPassword)
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	if !model.IsValidRole(req.Role) {
		return nil, newError(ErrValidation, "invalid role %q: must be admin or seller", req.Role)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, newError(ErrValidation, "name is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, newError(ErrValidation, "password must have at least %d characters", minPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashedPassword),
		Role:     req.Role,
		Active:   true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureEmailFree(txCtx, user.Email); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return saveErr(err, "create user")
		}
		return s.audit.record(txCtx, actor, model.ActionCreateUser, user.ID, user.Email, map[string]interface{}{
			"role": user.Role,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, loadErr(err, "user", id)
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page repository.Page) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor Actor, id uint, req UpdateUserRequest) (*UserResponse, error) {
	if req.Role != "" && !model.IsValidRole(req.Role) {
		return nil, newError(ErrValidation, "invalid role %q: must be admin or seller", req.Role)
	}

	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.repo.GetByID(txCtx, id)
		if err != nil {
			return loadErr(err, "user", id)
		}

		if name := strings.TrimSpace(req.Name); name != "" {
			user.Name = name
		}
		if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
			if err := s.ensureEmailFree(txCtx, email); err != nil {
				return err
			}
			user.Email = email
		}
		if req.Role != "" {
			if user.ID == actor.UserID && req.Role != user.Role {
				return newError(ErrValidation, "you cannot change your own role")
			}
			user.Role = req.Role
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return saveErr(err, "update user")
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateUser, user.ID, user.Email, req)
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) ResetPassword(ctx context.Context, actor Actor, id uint, req ResetPasswordRequest) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return loadErr(err, "user", id)
	}
	return s.setPassword(ctx, actor, user, req.Password)
}

func (s *userService) ToggleActive(ctx context.Context, actor Actor, id uint) (*UserResponse, error) {
	if id == actor.UserID {
		return nil, newError(ErrValidation, "you cannot deactivate your own account")
	}

	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.repo.GetByID(txCtx, id)
		if err != nil {
			return loadErr(err, "user", id)
		}
		user.Active = !user.Active
		if err := s.repo.Update(txCtx, user); err != nil {
			return saveErr(err, "update user")
		}
		if !user.Active {
			if err := s.repo.DeleteRefreshTokensByUser(txCtx, user.ID); err != nil {
				return fmt.Errorf("failed to revoke sessions of user %d: %w", user.ID, err)
			}
		}
		return s.audit.record(txCtx, actor, model.ActionToggleUser, user.ID, user.Email, map[string]interface{}{
			"active": user.Active,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapToResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	if id == actor.UserID {
		return newError(ErrValidation, "you cannot delete your own account")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return loadErr(err, "user", id)
		}

		orders, err := s.orders.CountByCreator(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count orders of user %d: %w", id, err)
		}
		returns, err := s.returns.CountByCreator(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count returns of user %d: %w", id, err)
		}
		if orders > 0 || returns > 0 {
			return newError(ErrIntegrityConflict, "user %s registered %d orders and %d returns; deactivate it instead",
				user.Email, orders, returns)
		}

		if err := s.repo.DeleteRefreshTokensByUser(txCtx, id); err != nil {
			return fmt.Errorf("failed to revoke sessions of user %d: %w", id, err)
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return saveErr(err, "delete user")
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteUser, user.ID, user.Email, nil)
	})
}

func (s *userService) setPassword(ctx context.Context, actor Actor, user *model.User, password string) error {
	if len(password) < minPasswordLength {
		return newError(ErrValidation, "password must have at least %d characters", minPasswordLength)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user.Password = string(hashed)
		if err := s.repo.Update(txCtx, user); err != nil {
			return saveErr(err, "update password")
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateUser, user.ID, user.Email, map[string]interface{}{
			"password_changed": true,
		})
	})
}

func (s *userService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return newError(ErrIntegrityConflict, "email %s already exists", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check email: %w", err)
	}
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	access, expiresAt, err := s.tokens.Issue(user.ID, user.Role, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	refresh := &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(s.refreshTTL),
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        access,
		ExpiresAt:    expiresAt,
		RefreshToken: refresh.Token,
		User:         *mapToResponse(user),
	}, nil
}
