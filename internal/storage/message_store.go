package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"chat-backend/internal/apperr"
	"chat-backend/internal/models"
)

// MessageStore persists messages. Rows are never physically removed.
type MessageStore struct {
	db  *gorm.DB
	seq *Sequencer
}

// NewMessageStore wraps db and seeds the timestamp sequencer from the newest
// stored created_at/deleted_at so a restart never issues an older stamp.
func NewMessageStore(ctx context.Context, db *gorm.DB, now func() time.Time) (*MessageStore, error) {
	s := &MessageStore{db: db, seq: NewSequencer(now)}

	var created []time.Time
	if err := db.WithContext(ctx).Model(&models.Message{}).
		Order("created_at DESC").Limit(1).Pluck("created_at", &created).Error; err != nil {
		return nil, apperr.Storage("seed sequencer", err)
	}
	var deleted []time.Time
	if err := db.WithContext(ctx).Model(&models.Message{}).Where("deleted_at IS NOT NULL").
		Order("deleted_at DESC").Limit(1).Pluck("deleted_at", &deleted).Error; err != nil {
		return nil, apperr.Storage("seed sequencer", err)
	}
	for _, t := range append(created, deleted...) {
		s.seq.Observe(t)
	}
	return s, nil
}

func pair(a, b string) func(*gorm.DB) *gorm.DB {
	low, high := models.PairKey(a, b)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("pair_low = ? AND pair_high = ?", low, high)
	}
}

// Create stores a new unread message. Text is trimmed; a message needs text or an image.
func (s *MessageStore) Create(ctx context.Context, senderID, receiverID, text string, imagePath *string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if imagePath != nil && strings.TrimSpace(*imagePath) == "" {
		imagePath = nil
	}

	var problems []string
	if senderID == "" {
		problems = append(problems, "Sender is required")
	}
	if receiverID == "" {
		problems = append(problems, "Receiver is required")
	}
	if text == "" && imagePath == nil {
		problems = append(problems, "Message text or image is required")
	}
	if len(problems) > 0 {
		return nil, apperr.Invalid(problems...)
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImagePath:  imagePath,
	}
	err := s.seq.Stamp(func(ts time.Time) error {
		msg.CreatedAt = ts
		return s.db.WithContext(ctx).Create(msg).Error
	})
	if err != nil {
		return nil, apperr.Storage("create message", err)
	}
	return msg, nil
}

// Get loads one message by id.
func (s *MessageStore) Get(ctx context.Context, id uint64) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("get message", err)
	}
	return &msg, nil
}

// SoftDelete tombstones a message on behalf of its sender. It reports true when
// this call set deleted_at; retrying on an already deleted message is a no-op
// that returns false. Unknown ids and non-senders get ErrAuthorization.
func (s *MessageStore) SoftDelete(ctx context.Context, id uint64, requesterID string) (bool, error) {
	var deleted bool
	err := s.seq.Stamp(func(ts time.Time) error {
		res := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("id = ? AND sender_id = ? AND deleted_at IS NULL", id, requesterID).
			Updates(map[string]interface{}{"deleted_at": ts, "deleted_by": requesterID})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, apperr.Storage("soft delete message", err)
	}
	if deleted {
		return true, nil
	}

	msg, err := s.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, apperr.ErrAuthorization
	}
	if err != nil {
		return false, err
	}
	if msg.SenderID != requesterID {
		return false, apperr.ErrAuthorization
	}
	return false, nil
}

// MarkRead flips every unread message from peerID to selfID in one statement
// and returns how many rows changed.
func (s *MessageStore) MarkRead(ctx context.Context, peerID, selfID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", peerID, selfID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperr.Storage("mark read", res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadCount counts messages sent to userID that are unread and not deleted.
func (s *MessageStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ? AND deleted_at IS NULL", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Storage("unread count", err)
	}
	return count, nil
}

// History returns the newest limit messages of the pair in ascending order.
func (s *MessageStore) History(ctx context.Context, a, b string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).Scopes(pair(a, b)).
		Order("created_at DESC, id DESC").Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, apperr.Storage("conversation history", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Since returns pair messages created after since, ordered by (created_at, id).
// Tombstoned rows are included.
func (s *MessageStore) Since(ctx context.Context, a, b string, since time.Time) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).Scopes(pair(a, b)).
		Where("created_at > ?", since.UTC()).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, apperr.Storage("messages since", err)
	}
	return messages, nil
}

// TombstonesSince returns pair messages deleted after since, ordered by deleted_at.
func (s *MessageStore) TombstonesSince(ctx context.Context, a, b string, since time.Time) ([]models.Tombstone, error) {
	var rows []models.Message
	err := s.db.WithContext(ctx).Scopes(pair(a, b)).
		Select("id", "deleted_at", "deleted_by").
		Where("deleted_at IS NOT NULL AND deleted_at > ?", since.UTC()).
		Order("deleted_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage("tombstones since", err)
	}

	tombstones := make([]models.Tombstone, 0, len(rows))
	for _, row := range rows {
		t := models.Tombstone{ID: row.ID, DeletedAt: *row.DeletedAt}
		if row.DeletedBy != nil {
			t.DeletedBy = *row.DeletedBy
		}
		tombstones = append(tombstones, t)
	}
	return tombstones, nil
}
