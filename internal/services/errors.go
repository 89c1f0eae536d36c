// Package services defines the business logic for accounts, chats, and
// turns. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrEmailTaken is returned when a registration uses an email that
	// already belongs to an account. The first account is left untouched.
	ErrEmailTaken = errors.New("email already in use")

	// ErrInvalidCredentials is returned on sign-in when the email is
	// unknown or the password does not match. Callers must not be able to
	// tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates that the referenced account no longer exists.
	ErrUserNotFound = errors.New("user not found")
)

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist or is
	// not accessible to the current user. The two cases are deliberately
	// indistinguishable to prevent existence probing.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyPrompt is returned when a turn request carries an empty prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a prompt exceeds the configured length cap.
	ErrTooLong = errors.New("prompt too long")
)

// Turn-related errors.
var (
	// ErrUpgradeRequired is returned when a premium model is requested by a
	// user without an active subscription (and no development override).
	ErrUpgradeRequired = errors.New("upgrade required")

	// ErrProviderNotConfigured is returned when no completion provider
	// credential is present. A deployment problem, not a caller error.
	ErrProviderNotConfigured = errors.New("completion provider not configured")
)

// Billing-related errors.
var (
	// ErrBillingDisabled is returned when checkout is attempted while no
	// billing provider is configured.
	ErrBillingDisabled = errors.New("billing disabled")

	// ErrBadWebhookSignature is returned when a billing callback fails
	// signature verification.
	ErrBadWebhookSignature = errors.New("bad webhook signature")
)
