package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-backend/internal/apperr"
	"chat-backend/internal/models"
)

func TestUserStoreAccounts(t *testing.T) {
	_, users, _, _ := newTestStores(t)
	ctx := context.Background()

	alice := &models.User{Name: "Alice", Email: " Alice@Example.com ", Password: "hash"}
	if err := users.Create(ctx, alice); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if alice.ID == "" || alice.Email != "alice@example.com" {
		t.Fatalf("expected uuid and normalized email, got %+v", alice)
	}
	if err := users.Create(ctx, &models.User{Name: "Dup", Email: "ALICE@example.com", Password: "x"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	found, err := users.FindByEmail(ctx, "alice@EXAMPLE.com")
	if err != nil || found.ID != alice.ID {
		t.Fatalf("FindByEmail mismatch: %+v err=%v", found, err)
	}
	if _, err := users.FindByID(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bob := mustCreateUser(t, users, "bob")
	mustCreateUser(t, users, "carol")
	others, err := users.ListExcept(ctx, bob)
	if err != nil {
		t.Fatalf("ListExcept failed: %v", err)
	}
	if len(others) != 2 || others[0].Name != "Alice" || others[1].Name != "carol" {
		t.Fatalf("unexpected directory: %+v", others)
	}

	ok, err := users.Exists(ctx, bob)
	if err != nil || !ok {
		t.Fatalf("expected bob to exist, ok=%v err=%v", ok, err)
	}
}

func TestUserStoreRefreshTokens(t *testing.T) {
	_, users, _, _ := newTestStores(t)
	ctx := context.Background()
	uid := mustCreateUser(t, users, "alice")
	now := time.Now().UTC()

	if err := users.SaveRefreshToken(ctx, uid, "tok-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshToken failed: %v", err)
	}
	rt, err := users.FindRefreshToken(ctx, uid, "tok-1", now)
	if err != nil || !rt.Usable(now) {
		t.Fatalf("expected usable token, got %+v err=%v", rt, err)
	}
	if _, err := users.FindRefreshToken(ctx, uid, "tok-1", now.Add(2*time.Hour)); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	if err := users.RevokeRefreshToken(ctx, "tok-1"); err != nil {
		t.Fatalf("RevokeRefreshToken failed: %v", err)
	}
	if err := users.RevokeRefreshToken(ctx, "tok-1"); err != nil {
		t.Fatalf("revoking twice must not fail: %v", err)
	}
	if _, err := users.FindRefreshToken(ctx, uid, "tok-1", now); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
}
