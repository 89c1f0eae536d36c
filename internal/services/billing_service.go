// Package services – BillingService
//
// This file implements BillingService, the thin coordination layer between
// user records and the payment provider: it lazily attaches a billing
// customer to the user on first checkout, hands out hosted checkout URLs,
// and applies verified webhook callbacks to the stored subscription status.
// Subscription status is never mutated anywhere else.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/realcheck/studio-backend/internal/billing"
	"github.com/realcheck/studio-backend/internal/repo"
)

// BillingService coordinates checkout and subscription webhooks.
type BillingService struct {
	DB *gorm.DB
	// Provider is nil when billing is not configured; checkout then fails
	// with ErrBillingDisabled and webhooks are acknowledged as no-ops.
	Provider billing.Provider
}

// Checkout returns a hosted checkout URL for the user, creating and
// persisting the billing-customer reference on first use.
func (s *BillingService) Checkout(ctx context.Context, userID string) (string, error) {
	if s.Provider == nil {
		return "", ErrBillingDisabled
	}

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if u.StripeCustomerID == "" {
		customerID, err := s.Provider.EnsureCustomer(ctx, u.Email)
		if err != nil {
			return "", err
		}
		if err := repo.SetStripeCustomer(ctx, s.DB, u.ID, customerID); err != nil {
			return "", err
		}
		u.StripeCustomerID = customerID
	}

	return s.Provider.CreateCheckoutSession(ctx, u.StripeCustomerID)
}

// HandleWebhook verifies and applies a billing callback. Unrecognized event
// types are acknowledged without effect; a bad signature returns
// ErrBadWebhookSignature so the transport can reject with 400.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.Provider == nil {
		return nil
	}

	ev, err := s.Provider.ParseWebhook(payload, signature)
	if err != nil {
		log.Warn().Err(err).Msg("billing webhook rejected")
		return ErrBadWebhookSignature
	}
	if ev == nil {
		return nil
	}

	return repo.UpdateSubscriptionByCustomer(ctx, s.DB, ev.CustomerID, ev.Status)
}
