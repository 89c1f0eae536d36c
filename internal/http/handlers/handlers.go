// Handler wiring and service contracts.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. All service dependencies are
// abstract interfaces so the HTTP layer can be tested with fakes.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/realcheck/studio-backend/internal/domain"
	"github.com/realcheck/studio-backend/internal/http/middleware"
)

// AuthService defines the account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Register creates an account; a taken email is a user-visible error.
	Register(ctx context.Context, email, password string) (*domain.User, error)
	// Login exchanges credentials for a signed session token.
	Login(ctx context.Context, email, password string) (string, error)
	// UpdateProfile overwrites the account's display-name parts.
	UpdateProfile(ctx context.Context, userID, name, firstName, lastName string) error
}

// ChatService defines chat lifecycle operations consumed by HTTP handlers.
type ChatService interface {
	// Create starts a new empty chat for userID.
	Create(ctx context.Context, userID string) (*domain.Chat, error)
	// List returns all chats for a user, most recently active first.
	List(ctx context.Context, userID string) ([]domain.Chat, error)
	// ListPage returns a page of chats for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64, error)
	// Get returns a chat and its ordered transcript, enforcing ownership.
	Get(ctx context.Context, userID, chatID string) (*domain.Chat, []domain.Message, error)
	// Delete removes a chat and all of its messages, enforcing ownership.
	Delete(ctx context.Context, userID, chatID string) error
}

// TurnService defines the chat-turn operations (one user message in, one
// assistant message out) consumed by HTTP handlers.
type TurnService interface {
	// Send runs a non-streaming turn and returns the assistant text.
	Send(ctx context.Context, user *domain.User, chatID, prompt, uiModel string) (string, error)
	// Stream runs a streaming turn, handing fragments to emit as they arrive.
	Stream(ctx context.Context, user *domain.User, chatID, prompt, uiModel string, emit func(fragment string) error) error
}

// BillingService defines checkout and webhook operations consumed by HTTP
// handlers.
type BillingService interface {
	// Checkout returns a hosted checkout URL for the user.
	Checkout(ctx context.Context, userID string) (string, error)
	// HandleWebhook verifies and applies a billing provider callback.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Handlers groups the HTTP endpoints for accounts, chats, turns, and billing.
type Handlers struct {
	authSvc    AuthService
	chatSvc    ChatService
	turnSvc    TurnService
	billingSvc BillingService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, chatSvc ChatService, turnSvc TurnService, billingSvc BillingService) *Handlers {
	return &Handlers{authSvc: authSvc, chatSvc: chatSvc, turnSvc: turnSvc, billingSvc: billingSvc}
}

// currentUser returns the identity stored by the session guard. Handlers
// behind RequireAuth can rely on a non-nil result; the nil check is for
// misconfigured routes and tests.
func currentUser(c *gin.Context) *domain.User {
	return middleware.UserFrom(c)
}
