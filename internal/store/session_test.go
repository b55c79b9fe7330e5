package store

import (
	"context"
	"testing"
	"time"
)

func TestSessionCreate(t *testing.T) {
	db := setupTestDB(t)
	ss, us := NewSessionStore(db), NewUserStore(db)
	ctx := context.Background()

	u, err := us.Create(ctx, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	sess, err := ss.Create(ctx, u.ID, 0)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", sess.UserID, u.ID)
	}
	if !sess.ExpiresAt.After(time.Now().Add(DefaultSessionTTL - time.Hour)) {
		t.Errorf("expires_at = %v, want about %v from now", sess.ExpiresAt, DefaultSessionTTL)
	}
}

func TestSessionGetByToken(t *testing.T) {
	db := setupTestDB(t)
	ss, us := NewSessionStore(db), NewUserStore(db)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice@example.com", "Alice")
	created, _ := ss.Create(ctx, u.ID, time.Hour)

	sess, err := ss.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != created.ID {
		t.Errorf("id = %d, want %d", sess.ID, created.ID)
	}

	missing, err := ss.GetByToken(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent token")
	}
}

func TestSessionExpired(t *testing.T) {
	db := setupTestDB(t)
	ss, us := NewSessionStore(db), NewUserStore(db)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice@example.com", "Alice")
	created, _ := ss.Create(ctx, u.ID, time.Hour)
	if _, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), created.ID); err != nil {
		t.Fatalf("expire session: %v", err)
	}

	sess, err := ss.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for expired session")
	}

	n, err := ss.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSessionDelete(t *testing.T) {
	db := setupTestDB(t)
	ss, us := NewSessionStore(db), NewUserStore(db)
	ctx := context.Background()

	u, _ := us.Create(ctx, "alice@example.com", "Alice")
	created, _ := ss.Create(ctx, u.ID, time.Hour)

	if err := ss.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	sess, err := ss.GetByToken(ctx, created.Token)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil after delete")
	}
}
