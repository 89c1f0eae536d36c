// Package billing abstracts the payment processor behind a capability
// interface. The processor's internals are out of scope here: the core only
// needs a customer reference, a hosted checkout URL, and a verified callback
// that maps to a subscription status change.
package billing

import "context"

// SubscriptionEvent is the distilled outcome of a verified webhook callback.
// Status carries the new subscription status for every user holding
// CustomerID; a nil event from ParseWebhook means the callback was valid but
// irrelevant to subscriptions.
type SubscriptionEvent struct {
	CustomerID string
	Status     string
}

// Provider is implemented once per payment vendor. The core depends only on
// this interface, so tests run against a fake.
type Provider interface {
	// EnsureCustomer returns the vendor's customer reference for the given
	// email, creating one if needed.
	EnsureCustomer(ctx context.Context, email string) (customerID string, err error)

	// CreateCheckoutSession returns a hosted checkout URL that upgrades the
	// customer to the subscription plan.
	CreateCheckoutSession(ctx context.Context, customerID string) (url string, err error)

	// ParseWebhook verifies the callback signature and maps the payload to
	// a SubscriptionEvent (nil when the event type is not subscription
	// related). A failed signature check must return an error.
	ParseWebhook(payload []byte, signature string) (*SubscriptionEvent, error)
}
