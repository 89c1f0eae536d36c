package billing

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/realcheck/studio-backend/internal/domain"
)

// StripeProvider implements Provider against Stripe's hosted checkout and
// webhook surface. Subscription status transitions handled:
//
//	checkout.session.completed      -> active
//	customer.subscription.deleted   -> canceled
type StripeProvider struct {
	webhookSecret string
	priceID       string
	appURL        string
}

// NewStripeProvider configures the global Stripe key and returns a provider.
// appURL is the public base URL used for checkout redirect targets.
func NewStripeProvider(secretKey, webhookSecret, priceID, appURL string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{
		webhookSecret: webhookSecret,
		priceID:       priceID,
		appURL:        appURL,
	}
}

// EnsureCustomer creates a Stripe customer for the email. Idempotency is the
// caller's concern: the returned id is persisted on the user and reused.
func (p *StripeProvider) EnsureCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession opens a subscription-mode checkout session for the
// configured price and returns its hosted URL.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.appURL + "/settings?status=success"),
		CancelURL:  stripe.String(p.appURL + "/settings?status=cancel"),
	}
	params.Context = ctx
	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return s.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header against the raw payload
// and maps subscription lifecycle events to status changes.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*SubscriptionEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verifying webhook: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decoding checkout session: %w", err)
		}
		if s.Customer == nil || s.Customer.ID == "" {
			return nil, nil
		}
		return &SubscriptionEvent{CustomerID: s.Customer.ID, Status: domain.SubscriptionActive}, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decoding subscription: %w", err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return nil, nil
		}
		return &SubscriptionEvent{CustomerID: sub.Customer.ID, Status: domain.SubscriptionCanceled}, nil
	}

	// Not subscription related; acknowledged but ignored.
	return nil, nil
}
