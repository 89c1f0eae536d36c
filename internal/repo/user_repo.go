// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A duplicate email on insert is mapped to ErrDuplicate so the service
//     layer can surface a user-visible "already in use" error.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/realcheck/studio-backend/internal/domain"
)

// CreateUser inserts a new User row with the given email and bcrypt hash.
// The user ID is a randomly generated UUID and CreatedAt is set to UTC.
// A unique-constraint violation on the email column returns ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, email, passwordHash string) (*domain.User, error) {
	u := &domain.User{
		ID:                 uuid.NewString(),
		Email:              email,
		PasswordHash:       passwordHash,
		SubscriptionStatus: domain.SubscriptionNone,
		CreatedAt:          time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by primary key, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a user by its exact (case-sensitive) email.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile overwrites the display-name parts of a user. Empty strings
// clear the corresponding column (matching the product's profile form).
func UpdateProfile(ctx context.Context, db *gorm.DB, id, name, firstName, lastName string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":       name,
			"first_name": firstName,
			"last_name":  lastName,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetStripeCustomer records the external billing-customer reference for a
// user. Called once, lazily, on the user's first checkout.
func SetStripeCustomer(ctx context.Context, db *gorm.DB, id, customerID string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSubscriptionByCustomer sets the subscription status for every user
// holding the given billing-customer reference. Used by the webhook handler,
// which only knows the customer id. Affecting zero rows is not an error:
// the webhook may arrive before the customer reference is persisted.
func UpdateSubscriptionByCustomer(ctx context.Context, db *gorm.DB, customerID, status string) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("stripe_customer_id = ?", customerID).
		Update("subscription_status", status).Error
}
