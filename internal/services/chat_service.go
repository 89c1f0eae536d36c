// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chats.
// It enforces ownership rules and coordinates repository operations for
// creating, listing (with pagination), fetching with transcript, and deleting
// chats. Title handling is intentionally minimal here because titles are
// derived from the first user message by the TurnService after each turn.
//
// Service-level errors (e.g., ErrChatNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/realcheck/studio-backend/internal/domain"
)

// placeholderTitle is assigned to freshly created chats.
const placeholderTitle = "New chat"

// ChatRepo defines the repository contract required by ChatService.
// Implementations are responsible for persistence of chat aggregates.
type ChatRepo interface {
	// CreateChat inserts a new chat row for the given user.
	CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error)

	// ListChats returns all chats belonging to the user, most recently
	// active first (non-paginated).
	ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error)

	// GetChat fetches a chat by ID ensuring it belongs to the user.
	GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error)

	// DeleteChat removes a chat and all of its messages atomically.
	DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error

	// ListMessages returns the chat's messages ordered by index ascending.
	ListMessages(db *gorm.DB, chatID string) ([]domain.Message, error)

	// CountChats returns the total number of chats for pagination.
	CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListChatsPage returns a page of chats belonging to the user.
	ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error)
}

// ChatService provides chat-level operations such as creating, listing,
// fetching, and deleting conversations, always scoped to the owner.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chat repository used by this service.
	Repo ChatRepo
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, r ChatRepo) *ChatService {
	return &ChatService{DB: db, Repo: r}
}

// Create inserts a new empty chat owned by userID with the placeholder title.
func (s *ChatService) Create(ctx context.Context, userID string) (*domain.Chat, error) {
	return s.Repo.CreateChat(ctx, s.DB, userID, placeholderTitle)
}

// List returns all chats for a user, most recently active first.
// Prefer ListPage for scalability on large datasets.
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.Chat, error) {
	return s.Repo.ListChats(ctx, s.DB, userID)
}

// ListPage returns a page of chats for a user (paginated).
// It applies defaults for invalid page/pageSize and returns total count.
func (s *ChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Chat, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountChats(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Chat{}, 0, nil
	}

	items, err := s.Repo.ListChatsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Get fetches a chat and its full ordered transcript, enforcing ownership.
// A chat owned by another user fails exactly like a missing chat.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.Chat, []domain.Message, error) {
	chat, err := s.Repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrChatNotFound
		}
		return nil, nil, err
	}
	msgs, err := s.Repo.ListMessages(s.DB.WithContext(ctx), chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, msgs, nil
}

// Delete removes a chat and all of its messages, enforcing ownership.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	err := s.Repo.DeleteChat(ctx, s.DB, chatID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChatNotFound
	}
	return err
}
