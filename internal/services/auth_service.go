// Package services – AuthService
//
// This file implements AuthService, which owns the credential lifecycle:
// registration with a bcrypt-hashed password, sign-in that exchanges
// credentials for a signed session token, and the per-request identity
// lookup used by the session guard middleware.
//
// Credentials are never stored or compared in plaintext; verification goes
// through bcrypt's own comparison primitive. Sign-in failures collapse to a
// single ErrInvalidCredentials so callers cannot probe which emails exist.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/realcheck/studio-backend/internal/auth"
	"github.com/realcheck/studio-backend/internal/domain"
	"github.com/realcheck/studio-backend/internal/repo"
)

// AuthService provides registration, sign-in, token verification, and
// profile updates.
type AuthService struct {
	DB *gorm.DB

	// JWTSecret signs session tokens.
	JWTSecret []byte
	// TokenTTL bounds session lifetime.
	TokenTTL time.Duration
	// BcryptCost is the hashing work factor; zero means the product default.
	BcryptCost int
}

// defaultBcryptCost matches the cost the product has always used.
const defaultBcryptCost = 10

// NewAuthService constructs an AuthService with sane defaults.
func NewAuthService(db *gorm.DB, secret []byte, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		DB:         db,
		JWTSecret:  secret,
		TokenTTL:   tokenTTL,
		BcryptCost: defaultBcryptCost,
	}
}

// Register creates a new account. A taken email returns ErrEmailTaken and
// leaves the existing account untouched.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	cost := s.BcryptCost
	if cost <= 0 {
		cost = defaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	u, err := repo.CreateUser(ctx, s.DB, email, string(hash))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies the credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := repo.GetUserByEmail(ctx, s.DB, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return auth.GenerateToken(u.ID, s.JWTSecret, s.TokenTTL)
}

// Identify resolves a bearer token to a fresh user record. Any token or
// lookup failure yields ErrInvalidCredentials: the guard must reject
// uniformly without revealing whether the account still exists.
func (s *AuthService) Identify(ctx context.Context, token string) (*domain.User, error) {
	uid, err := auth.UserIDFromToken(token, s.JWTSecret)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := repo.GetUser(ctx, s.DB, uid)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateProfile overwrites the display-name parts of the account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, firstName, lastName string) error {
	err := repo.UpdateProfile(ctx, s.DB, userID, strings.TrimSpace(name), strings.TrimSpace(firstName), strings.TrimSpace(lastName))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
