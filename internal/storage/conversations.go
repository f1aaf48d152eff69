package storage

import (
	"context"
	"database/sql"

	"chat-backend/internal/apperr"
	"chat-backend/internal/models"
)

// latestPerPeerSQL ranks each pair's messages by (created_at, id) so exactly one
// row per peer survives even when timestamps collide. Deleted messages still
// rank; the unread CTE excludes them.
const latestPerPeerSQL = `
WITH ranked AS (
	SELECT id, pair_low, pair_high, created_at,
		ROW_NUMBER() OVER (PARTITION BY pair_low, pair_high ORDER BY created_at DESC, id DESC) AS rn
	FROM messages
	WHERE pair_low = @user OR pair_high = @user
),
latest AS (
	SELECT id, created_at,
		CASE WHEN pair_low = @user THEN pair_high ELSE pair_low END AS peer_id
	FROM ranked
	WHERE rn = 1
),
unread AS (
	SELECT sender_id, COUNT(*) AS unread_count
	FROM messages
	WHERE receiver_id = @user AND is_read = @unread AND deleted_at IS NULL
	GROUP BY sender_id
)
SELECT latest.peer_id AS peer_id,
	latest.id AS last_message_id,
	COALESCE(u.name, '') AS peer_name,
	COALESCE(u.profile_picture, '') AS peer_picture,
	COALESCE(unread.unread_count, 0) AS unread_count
FROM latest
LEFT JOIN users u ON u.id = latest.peer_id
LEFT JOIN unread ON unread.sender_id = latest.peer_id
ORDER BY latest.created_at DESC, latest.id DESC`

type conversationRow struct {
	PeerID        string
	LastMessageID uint64
	PeerName      string
	PeerPicture   string
	UnreadCount   int64
}

// ListConversations returns one summary per peer userID has exchanged messages
// with, newest activity first.
func (s *MessageStore) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	var rows []conversationRow
	err := s.db.WithContext(ctx).
		Raw(latestPerPeerSQL, sql.Named("user", userID), sql.Named("unread", false)).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("list conversations", err)
	}
	if len(rows) == 0 {
		return []models.ConversationSummary{}, nil
	}

	ids := make([]uint64, len(rows))
	for i, row := range rows {
		ids[i] = row.LastMessageID
	}
	var latest []models.Message
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&latest).Error; err != nil {
		return nil, apperr.Storage("list conversations", err)
	}
	byID := make(map[uint64]*models.Message, len(latest))
	for i := range latest {
		byID[latest[i].ID] = &latest[i]
	}

	summaries := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		msg, ok := byID[row.LastMessageID]
		if !ok {
			continue
		}
		summary := models.ConversationSummary{
			PeerID:              row.PeerID,
			PeerName:            row.PeerName,
			PeerPicture:         row.PeerPicture,
			LastMessageID:       msg.ID,
			LastMessageHasImage: msg.HasImage(),
			LastMessageTime:     msg.CreatedAt,
			LastSenderID:        msg.SenderID,
			LastMessageDeleted:  msg.IsDeleted(),
			UnreadCount:         row.UnreadCount,
		}
		if !msg.IsDeleted() {
			view := msg.View()
			summary.LastMessage = view.Text
			summary.LastMessageImage = view.ImagePath
		} else {
			summary.LastMessageHasImage = false
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
