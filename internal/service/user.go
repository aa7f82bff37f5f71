package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/models"
	"resource-site-backend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	NewToken(userID uuid.UUID, role *uint) (string, error)
}

// RegisterRequest is the account part of a registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Nickname string `json:"nickname" validate:"max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	Nickname string `json:"nickname" validate:"max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
}

// ChangePasswordRequest is the payload of the password change endpoint.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserService handles accounts, credentials and profiles.
type UserService struct {
	store  repository.UserStore
	tokens TokenIssuer
	log    *slog.Logger
	now    func() time.Time
}

// NewUserService creates a user service.
func NewUserService(store repository.UserStore, tokens TokenIssuer, log *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", ErrValidation)
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username %q: %w", username, ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "lookup username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = username
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Email:        req.Email,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, "create user")
	}
	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and returns a signed token. Unknown users and
// wrong passwords fail the same way.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError(err, "lookup user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.NewToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// GetProfile returns the account of userID.
func (s *UserService) GetProfile(ctx context.Context, requester auth.Principal, userID uuid.UUID) (*models.User, error) {
	if !requester.CanActFor(userID) {
		return nil, fmt.Errorf("view profile %s: %w", userID, ErrForbidden)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user")
	}
	return user, nil
}

// UpdateProfile replaces the nickname and email of userID.
func (s *UserService) UpdateProfile(ctx context.Context, requester auth.Principal, userID uuid.UUID, req ProfileUpdate) (*models.User, error) {
	if !requester.CanActFor(userID) {
		return nil, fmt.Errorf("update profile %s: %w", userID, ErrForbidden)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user")
	}

	if req.Nickname != "" {
		user.Nickname = req.Nickname
	}
	user.Email = req.Email
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, storeError(err, "update user")
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, requester auth.Principal, userID uuid.UUID, req ChangePasswordRequest) error {
	if !requester.CanActFor(userID) {
		return fmt.Errorf("change password of %s: %w", userID, ErrForbidden)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeError(err, "get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return fmt.Errorf("current password does not match: %w", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return storeError(err, "update user")
	}
	s.log.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}

// UpdateAvatar points the avatar of userID at a stored image.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, path string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user")
	}
	user.Avatar = path
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, storeError(err, "update user")
	}
	return user, nil
}
