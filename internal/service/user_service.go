package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"ticketing/internal/auth"
	"ticketing/internal/models"
	"ticketing/internal/store"
	"ticketing/internal/util"

	"go.uber.org/zap"
)

// UserService handles accounts in the auth service
type UserService struct {
	users  store.UserRepository
	hasher *auth.Bcrypt
	issuer *auth.Issuer
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users store.UserRepository, hasher *auth.Bcrypt, issuer *auth.Issuer) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		issuer: issuer,
		logger: util.GetLogger(),
	}
}

// Credentials is the body of signup and signin requests
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Credentials) validate() error {
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("%w: email must be valid", ErrValidation)
	}
	c.Password = strings.TrimSpace(c.Password)
	if len(c.Password) < 4 || len(c.Password) > 20 {
		return fmt.Errorf("%w: password must be between 4 and 20 characters", ErrValidation)
	}
	return nil
}

// Signup creates an account and returns it with a session token
func (s *UserService) Signup(ctx context.Context, creds Credentials) (*models.User, string, error) {
	if err := creds.validate(); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{Email: creds.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, "", ErrEmailInUse
		}
		return nil, "", err
	}

	token, err := s.issuer.Sign(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID))
	return user, token, nil
}

// Signin checks credentials and returns the account with a session token
func (s *UserService) Signin(ctx context.Context, creds Credentials) (*models.User, string, error) {
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	if creds.Email == "" || creds.Password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.users.GetUserByEmail(ctx, creds.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := s.hasher.Compare(user.PasswordHash, strings.TrimSpace(creds.Password)); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	token, err := s.issuer.Sign(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
