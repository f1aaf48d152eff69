package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-backend/internal/apperr"
)

func TestCreateValidation(t *testing.T) {
	store, users, _, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	blank := "  "
	cases := []struct {
		name  string
		text  string
		image *string
	}{
		{name: "empty", text: ""},
		{name: "whitespace", text: "   \n"},
		{name: "blank image", text: "", image: &blank},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Create(ctx, alice, bob, tc.text, tc.image)
			ve, ok := apperr.IsValidation(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Errors) != 1 || ve.Errors[0] != "Message text or image is required" {
				t.Fatalf("unexpected validation messages: %#v", ve.Errors)
			}
		})
	}

	if _, err := store.Create(ctx, alice, "", "hi", nil); err == nil {
		t.Fatalf("expected missing receiver to fail")
	}

	image := "msg_a_1.png"
	msg, err := store.Create(ctx, alice, bob, "", &image)
	if err != nil {
		t.Fatalf("image-only message failed: %v", err)
	}
	if !msg.HasImage() || msg.Text != "" {
		t.Fatalf("unexpected stored image message: %+v", msg)
	}
}

func TestCreateAssignsIncreasingIDsAndTimestamps(t *testing.T) {
	store, users, _, _ := newTestStores(t)
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	first := mustSend(t, store, alice, bob, "  hi  ")
	second := mustSend(t, store, bob, alice, "hello")

	if first.Text != "hi" {
		t.Fatalf("expected trimmed text, got %q", first.Text)
	}
	if first.IsRead || first.DeletedAt != nil {
		t.Fatalf("new message must be unread and not deleted: %+v", first)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
	}
	if !second.CreatedAt.After(first.CreatedAt) {
		t.Fatalf("created_at not increasing: %v then %v", first.CreatedAt, second.CreatedAt)
	}
	if first.PairLow != second.PairLow || first.PairHigh != second.PairHigh {
		t.Fatalf("both directions must share the pair key")
	}
}

func TestSinceOrderingAndWatermark(t *testing.T) {
	store, users, clock, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")
	carol := mustCreateUser(t, users, "carol")

	start := clock.Now().Add(-time.Second)
	m1 := mustSend(t, store, alice, bob, "one")
	mustSend(t, store, alice, carol, "other pair")
	clock.Advance(time.Second)
	m2 := mustSend(t, store, bob, alice, "two")
	m3 := mustSend(t, store, alice, bob, "three")

	got, err := store.Since(ctx, bob, alice, start)
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(got) != 3 || got[0].ID != m1.ID || got[1].ID != m2.ID || got[2].ID != m3.ID {
		t.Fatalf("unexpected pair messages: %+v", got)
	}

	got, err = store.Since(ctx, alice, bob, m1.CreatedAt)
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != m2.ID {
		t.Fatalf("expected messages strictly after m1, got %+v", got)
	}

	got, err = store.Since(ctx, alice, bob, m3.CreatedAt)
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result at latest watermark, got %d", len(got))
	}

	m4 := mustSend(t, store, bob, alice, "four")
	got, err = store.Since(ctx, alice, bob, m3.CreatedAt)
	if err != nil {
		t.Fatalf("Since failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != m4.ID {
		t.Fatalf("expected only the new message, got %+v", got)
	}
}

func TestSoftDeleteAuthorizationAndIdempotence(t *testing.T) {
	store, users, clock, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")
	msg := mustSend(t, store, alice, bob, "secret")

	if _, err := store.SoftDelete(ctx, msg.ID, bob); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization for non-sender, got %v", err)
	}
	if _, err := store.SoftDelete(ctx, msg.ID+100, alice); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization for unknown id, got %v", err)
	}
	untouched, err := store.Get(ctx, msg.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if untouched.DeletedAt != nil {
		t.Fatalf("failed delete must not set deleted_at")
	}

	clock.Advance(time.Minute)
	deleted, err := store.SoftDelete(ctx, msg.ID, alice)
	if err != nil || !deleted {
		t.Fatalf("expected sender delete to succeed, deleted=%v err=%v", deleted, err)
	}
	first, _ := store.Get(ctx, msg.ID)
	if first.DeletedAt == nil || first.DeletedBy == nil || *first.DeletedBy != alice {
		t.Fatalf("expected tombstone fields set, got %+v", first)
	}

	clock.Advance(time.Minute)
	deleted, err = store.SoftDelete(ctx, msg.ID, alice)
	if err != nil || deleted {
		t.Fatalf("expected retry to be a no-op, deleted=%v err=%v", deleted, err)
	}
	second, _ := store.Get(ctx, msg.ID)
	if !second.DeletedAt.Equal(*first.DeletedAt) {
		t.Fatalf("deleted_at changed on retry: %v -> %v", first.DeletedAt, second.DeletedAt)
	}
	if second.Text != "secret" {
		t.Fatalf("soft delete must keep the stored row")
	}
}

func TestMarkReadIsDirectionalAndIdempotent(t *testing.T) {
	store, users, _, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	mustSend(t, store, alice, bob, "one")
	mustSend(t, store, alice, bob, "two")
	mustSend(t, store, bob, alice, "reply")

	n, err := store.MarkRead(ctx, alice, bob)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 rows marked, got %d err=%v", n, err)
	}
	n, err = store.MarkRead(ctx, alice, bob)
	if err != nil || n != 0 {
		t.Fatalf("expected repeat to mark 0, got %d err=%v", n, err)
	}

	aliceUnread, _ := store.UnreadCount(ctx, alice)
	bobUnread, _ := store.UnreadCount(ctx, bob)
	if aliceUnread != 1 || bobUnread != 0 {
		t.Fatalf("unexpected unread counts alice=%d bob=%d", aliceUnread, bobUnread)
	}
}

func TestUnreadCountExcludesDeleted(t *testing.T) {
	store, users, _, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")
	carol := mustCreateUser(t, users, "carol")

	mustSend(t, store, alice, bob, "a1")
	retracted := mustSend(t, store, alice, bob, "a2")
	mustSend(t, store, carol, bob, "c1")

	if _, err := store.SoftDelete(ctx, retracted.ID, alice); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	count, err := store.UnreadCount(ctx, bob)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}
}

func TestTombstonesSince(t *testing.T) {
	store, users, clock, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	m1 := mustSend(t, store, alice, bob, "one")
	m2 := mustSend(t, store, bob, alice, "two")
	mustSend(t, store, alice, bob, "kept")

	watermark := clock.Now()
	clock.Advance(time.Second)
	if _, err := store.SoftDelete(ctx, m2.ID, bob); err != nil {
		t.Fatalf("SoftDelete m2: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := store.SoftDelete(ctx, m1.ID, alice); err != nil {
		t.Fatalf("SoftDelete m1: %v", err)
	}

	tombs, err := store.TombstonesSince(ctx, alice, bob, watermark)
	if err != nil {
		t.Fatalf("TombstonesSince failed: %v", err)
	}
	if len(tombs) != 2 || tombs[0].ID != m2.ID || tombs[1].ID != m1.ID {
		t.Fatalf("expected tombstones ordered by deleted_at, got %+v", tombs)
	}
	if tombs[0].DeletedBy != bob || tombs[1].DeletedBy != alice {
		t.Fatalf("deleted_by must equal the sender: %+v", tombs)
	}

	tombs, err = store.TombstonesSince(ctx, bob, alice, tombs[1].DeletedAt)
	if err != nil {
		t.Fatalf("TombstonesSince failed: %v", err)
	}
	if len(tombs) != 0 {
		t.Fatalf("expected no tombstones past the last one, got %+v", tombs)
	}
}

func TestHistoryReturnsNewestWindowAscending(t *testing.T) {
	store, users, _, _ := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	var ids []uint64
	for _, text := range []string{"1", "2", "3", "4", "5"} {
		ids = append(ids, mustSend(t, store, alice, bob, text).ID)
	}

	history, err := store.History(ctx, bob, alice, 3)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	for i, msg := range history {
		if msg.ID != ids[2+i] {
			t.Fatalf("position %d: expected id %d, got %d", i, ids[2+i], msg.ID)
		}
	}
}

func TestNewMessageStoreResumesAfterStoredTimestamps(t *testing.T) {
	store, users, clock, db := newTestStores(t)
	ctx := context.Background()
	alice := mustCreateUser(t, users, "alice")
	bob := mustCreateUser(t, users, "bob")

	clock.Advance(time.Hour)
	last := mustSend(t, store, alice, bob, "before restart")

	behind := newFakeClock()
	restarted, err := NewMessageStore(ctx, db, behind.Now)
	if err != nil {
		t.Fatalf("NewMessageStore failed: %v", err)
	}
	next := mustSend(t, restarted, bob, alice, "after restart")
	if !next.CreatedAt.After(last.CreatedAt) {
		t.Fatalf("restarted store issued %v which is not after %v", next.CreatedAt, last.CreatedAt)
	}
}
