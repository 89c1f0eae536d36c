// Package domain defines the persistence models for users, chats, and
// messages. These types are mapped with GORM and form the core data layer
// of the studio backend.
package domain

import (
	"time"
)

// Subscription status values for User.SubscriptionStatus.
const (
	SubscriptionNone     = "none"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents a registered account. The password is stored only as a
// bcrypt hash; the subscription status is mutated exclusively by the billing
// webhook handler (or bypassed by the development override, which never
// touches the row).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identifier, stored case-sensitively.
//   - PasswordHash: bcrypt digest, never exposed over the API.
//   - Name / FirstName / LastName: optional display-name parts.
//   - IsAdmin: administrative flag (no admin-only surface in this service yet).
//   - SubscriptionStatus: "none" | "active" | "canceled".
//   - StripeCustomerID: external billing-customer reference, set lazily on
//     first checkout.
type User struct {
	ID                 string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Email              string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash       string    `json:"-"     gorm:"type:varchar(255);not null"`
	Name               string    `json:"name,omitempty"       gorm:"type:varchar(255)"`
	FirstName          string    `json:"first_name,omitempty" gorm:"type:varchar(255)"`
	LastName           string    `json:"last_name,omitempty"  gorm:"type:varchar(255)"`
	IsAdmin            bool      `json:"is_admin"             gorm:"not null;default:false"`
	SubscriptionStatus string    `json:"subscription_status"  gorm:"type:varchar(16);not null;default:'none';check:subscription_status IN ('none','active','canceled')"`
	StripeCustomerID   string    `json:"-"                    gorm:"type:varchar(64);index"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Chat represents a conversation owned by a user. The title is re-derived
// from the first user message after every completed turn, and UpdatedAt
// drives the "recent chats" ordering in the UI.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the chat owner; indexed for efficient retrieval.
//   - Title: human-readable chat title ("New chat" until the first turn).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Chat struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_chats"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:'New chat'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message represents a single utterance within a chat, authored either by
// the "user" or the "assistant". Messages are immutable once created and
// are removed only as a cascade of chat deletion.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatID: foreign key to the owning chat (indexed).
//   - Role: "user" or "assistant" (enforced by DB constraint).
//   - Content: full text content of the message.
//   - Idx: zero-based position within the chat. The unique (chat_id, idx)
//     index turns a lost append race into a detectable conflict.
//   - CreatedAt: timestamp managed by GORM.
type Message struct {
	ID        string    `json:"id"      gorm:"type:char(36);primaryKey"`
	ChatID    string    `json:"chat_id" gorm:"type:char(36);not null;index:idx_chat_msgs;uniqueIndex:ux_chat_msg_idx,priority:1"`
	Role      string    `json:"role"    gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Idx       int       `json:"index"   gorm:"column:idx;not null;uniqueIndex:ux_chat_msg_idx,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	// Chat is the parent conversation. Messages are cascade-deleted
	// if their chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
