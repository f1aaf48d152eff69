package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"chat-backend/internal/config"
	"chat-backend/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "chat.db"),
		LogLevel: "silent",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStores(t *testing.T) (*MessageStore, *UserStore, *fakeClock, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	clock := newFakeClock()
	messages, err := NewMessageStore(context.Background(), db, clock.Now)
	if err != nil {
		t.Fatalf("new message store: %v", err)
	}
	return messages, NewUserStore(db), clock, db
}

func mustCreateUser(t *testing.T, users *UserStore, name string) string {
	t.Helper()

	user := &models.User{Name: name, Email: name + "@example.com", Password: "hash"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %q: %v", name, err)
	}
	return user.ID
}

func mustSend(t *testing.T, store *MessageStore, from, to, text string) *models.Message {
	t.Helper()

	msg, err := store.Create(context.Background(), from, to, text, nil)
	if err != nil {
		t.Fatalf("create message %q: %v", text, err)
	}
	return msg
}
