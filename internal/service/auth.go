package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/budget-service/internal/apperr"
	"github.com/Dan9191/budget-service/internal/models"
	"github.com/google/uuid"
)

// Client-facing messages. Authentication failures never say which check failed.
const (
	msgEmailTaken         = "Email already registered"
	msgBadCredentials     = "Incorrect email or password"
	msgInvalidCredentials = "Could not validate credentials"
	msgInactiveUser       = "Inactive user account"
)

// RegisterInput is the registration payload
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,password"`
}

// LoginInput is the login form
type LoginInput struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	// Fast path only; the store's uniqueness constraint is authoritative
	if _, err := s.users.FindActiveUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.Conflict(msgEmailTaken, nil)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(in.Email, in.FullName, hashed, s.now())
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict(msgEmailTaken, err)
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.PublicID)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.sendWelcome(user.Email, user.FullName)
	}()
	return user, nil
}

func (s *Service) sendWelcome(to, fullName string) {
	if err := s.notifier.SendWelcome(to, fullName); err != nil {
		s.log.WithError(err).Warn("Failed to send welcome email")
	}
}

// Login authenticates a user and returns a bearer token
func (s *Service) Login(ctx context.Context, in LoginInput) (*models.Token, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindActiveUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		s.hasher.Verify(in.Password, s.dummyHash)
		return nil, apperr.Unauthenticated(msgBadCredentials, nil)
	}
	if !s.hasher.Verify(in.Password, user.HashedPassword) {
		return nil, apperr.Unauthenticated(msgBadCredentials, nil)
	}

	token, err := s.tokens.Issue(user.PublicID, user.Email, s.tokens.TTL())
	if err != nil {
		return nil, err
	}

	s.log.Infof("User logged in: %s", user.PublicID)
	return &models.Token{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to an active user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.Unauthenticated(msgInvalidCredentials, err)
	}

	user, err := s.users.FindActiveUserByPublicID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthenticated(msgInvalidCredentials, nil)
		}
		return nil, fmt.Errorf("failed to resolve token subject: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden(msgInactiveUser)
	}
	return user, nil
}

// DeleteAccount soft deletes the caller's own account
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SoftDeleteUser(ctx, userID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Unauthenticated(msgInvalidCredentials, nil)
		}
		return err
	}
	s.log.Infof("User deleted: %s", userID)
	return nil
}
