// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/realcheck/studio-backend/internal/domain"
)

// CreateMessage inserts a message row at an explicit index. Callers that
// need the next free index should use AppendMessage instead.
func CreateMessage(db *gorm.DB, chatID, role, content string, idx int) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Idx:       idx,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// AppendMessage inserts a message at the next free index of the chat.
//
// The index is computed as the current message count, which races under
// concurrent appends to the same chat. The count and the insert therefore run
// in one transaction, and the unique (chat_id, idx) index converts a lost
// race into ErrDuplicate, which callers retry.
func AppendMessage(ctx context.Context, db *gorm.DB, chatID, role, content string) (*domain.Message, error) {
	var out *domain.Message
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := CountMessages(tx, chatID)
		if err != nil {
			return err
		}
		m, err := CreateMessage(tx, chatID, role, content, int(next))
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages returns all messages of a chat ordered by index ascending.
func ListMessages(db *gorm.DB, chatID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.Where("chat_id = ?", chatID).Order("idx ASC").Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ?", chatID).Scan(&total).Error
	return total, err
}
