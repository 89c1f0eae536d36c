package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/realcheck/studio-backend/internal/domain"
)

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newChatRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "a@example.com", "hash1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.SubscriptionStatus != domain.SubscriptionNone {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := CreateUser(ctx, db, "a@example.com", "hash2"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// The original row must be untouched.
	got, err := GetUserByEmail(ctx, db, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.PasswordHash != "hash1" {
		t.Fatalf("original hash overwritten: %q", got.PasswordHash)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newChatRepoDB(t, &domain.User{})
	if _, err := GetUser(context.Background(), db, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile_SuccessAndNotFound(t *testing.T) {
	db := newChatRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "b@example.com", "h")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := UpdateProfile(ctx, db, u.ID, "Ada L", "Ada", "Lovelace"); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Ada L" || got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Fatalf("profile not updated: %+v", got)
	}

	if err := UpdateProfile(ctx, db, "ghost", "x", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSubscriptionByCustomer(t *testing.T) {
	db := newChatRepoDB(t, &domain.User{})
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "c@example.com", "h")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := SetStripeCustomer(ctx, db, u.ID, "cus_123"); err != nil {
		t.Fatalf("SetStripeCustomer: %v", err)
	}

	if err := UpdateSubscriptionByCustomer(ctx, db, "cus_123", domain.SubscriptionActive); err != nil {
		t.Fatalf("UpdateSubscriptionByCustomer: %v", err)
	}
	got, err := GetUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.SubscriptionStatus != domain.SubscriptionActive {
		t.Fatalf("expected active subscription, got %q", got.SubscriptionStatus)
	}

	// An unknown customer id is a no-op, not an error.
	if err := UpdateSubscriptionByCustomer(ctx, db, "cus_unknown", domain.SubscriptionCanceled); err != nil {
		t.Fatalf("unknown customer should not error: %v", err)
	}
}
