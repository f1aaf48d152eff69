package chat

import (
	"strconv"
	"strings"
	"time"

	"chat-backend/internal/apperr"
	"chat-backend/internal/models"
)

// SyncCursor holds the two independent watermarks a client keeps per peer.
// created_at and deleted_at are different clocks, so one value cannot serve both feeds.
type SyncCursor struct {
	MessagesSince   time.Time `json:"messagesSince"`
	TombstonesSince time.Time `json:"tombstonesSince"`
}

// AdvanceMessages moves the message watermark to the last created_at seen.
func (c SyncCursor) AdvanceMessages(messages []models.Message) SyncCursor {
	for _, m := range messages {
		if m.CreatedAt.After(c.MessagesSince) {
			c.MessagesSince = m.CreatedAt
		}
	}
	return c
}

// AdvanceTombstones moves the tombstone watermark to the last deleted_at seen.
func (c SyncCursor) AdvanceTombstones(tombstones []models.Tombstone) SyncCursor {
	for _, t := range tombstones {
		if t.DeletedAt.After(c.TombstonesSince) {
			c.TombstonesSince = t.DeletedAt
		}
	}
	return c
}

// AdvanceDeletions moves the tombstone watermark past deletions already
// visible on the given messages.
func (c SyncCursor) AdvanceDeletions(messages []models.Message) SyncCursor {
	for _, m := range messages {
		if m.DeletedAt != nil && m.DeletedAt.After(c.TombstonesSince) {
			c.TombstonesSince = *m.DeletedAt
		}
	}
	return c
}

var watermarkLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// ParseWatermark accepts RFC3339 timestamps, MySQL-style "2006-01-02 15:04:05"
// values (read as UTC) and unix milliseconds.
func ParseWatermark(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.Invalid(field + " is required")
	}
	for _, layout := range watermarkLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms >= 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, apperr.Invalid(field + " must be an RFC3339 timestamp")
}
