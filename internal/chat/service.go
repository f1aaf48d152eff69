// Package chat implements the conversation operations on top of the message
// store: sending, conversation history, incremental polling with tombstones,
// read receipts and soft deletion. Every operation takes the caller's
// identity explicitly.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chat-backend/internal/apperr"
	"chat-backend/internal/config"
	"chat-backend/internal/metrics"
	"chat-backend/internal/models"
)

// MessageRepository is the persistence the service needs.
type MessageRepository interface {
	Create(ctx context.Context, senderID, receiverID, text string, imagePath *string) (*models.Message, error)
	SoftDelete(ctx context.Context, id uint64, requesterID string) (bool, error)
	MarkRead(ctx context.Context, peerID, selfID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, a, b string, limit int) ([]models.Message, error)
	Since(ctx context.Context, a, b string, since time.Time) ([]models.Message, error)
	TombstonesSince(ctx context.Context, a, b string, since time.Time) ([]models.Tombstone, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
}

// UserDirectory is the read-only view of users.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	ListExcept(ctx context.Context, id string) ([]models.User, error)
}

type Service struct {
	messages MessageRepository
	users    UserDirectory
	cfg      config.ChatConfig
	log      zerolog.Logger
}

func NewService(messages MessageRepository, users UserDirectory, cfg config.ChatConfig, log zerolog.Logger) *Service {
	return &Service{
		messages: messages,
		users:    users,
		cfg:      cfg,
		log:      log.With().Str("component", "chat").Logger(),
	}
}

// ConversationPage is the initial load of a chat.
type ConversationPage struct {
	Messages       []models.MessageView `json:"messages"`
	Cursor         SyncCursor           `json:"cursor"`
	MarkedRead     int64                `json:"markedRead"`
	PollIntervalMS int                  `json:"pollIntervalMs"`
}

// MessagesPage is one poll of the message feed.
type MessagesPage struct {
	Messages []models.MessageView `json:"messages"`
	Cursor   time.Time            `json:"cursor"`
}

// TombstonesPage is one poll of the deletion feed.
type TombstonesPage struct {
	Tombstones []models.Tombstone `json:"deletedMessages"`
	Cursor     time.Time          `json:"cursor"`
}

// SyncResult combines both feeds with their advanced cursors.
type SyncResult struct {
	Messages   []models.MessageView `json:"messages"`
	Tombstones []models.Tombstone   `json:"deletedMessages"`
	Cursor     SyncCursor           `json:"cursor"`
}

func requireIdentity(userID string) error {
	if userID == "" {
		return apperr.ErrAuthentication
	}
	return nil
}

func requirePair(userID, peerID string) error {
	if err := requireIdentity(userID); err != nil {
		return err
	}
	if strings.TrimSpace(peerID) == "" {
		return apperr.Invalid("User ID is required")
	}
	return nil
}

// Send stores a message from userID to receiverID.
func (s *Service) Send(ctx context.Context, userID, receiverID, text string, imagePath *string) (*models.Message, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return nil, apperr.Invalid("Receiver is required")
	}
	if max := s.cfg.MaxTextLength; max > 0 && len([]rune(text)) > max {
		return nil, apperr.Invalid("Message text is too long")
	}

	exists, err := s.users.Exists(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.ErrNotFound
	}

	msg, err := s.messages.Create(ctx, userID, receiverID, text, imagePath)
	if err != nil {
		return nil, err
	}
	metrics.MessageSent()
	s.log.Debug().Uint64("message_id", msg.ID).Str("sender_id", userID).Str("receiver_id", receiverID).Msg("message sent")
	return msg, nil
}

// ListConversations returns the caller's conversations, newest activity first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	return s.messages.ListConversations(ctx, userID)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.MessagesPerPage
	}
	if s.cfg.MaxHistory > 0 && limit > s.cfg.MaxHistory {
		return s.cfg.MaxHistory
	}
	return limit
}

// GetConversation opens a chat: it consumes the caller's unread messages from
// peerID and returns the newest limit messages in ascending order, together
// with the cursors to start polling from.
func (s *Service) GetConversation(ctx context.Context, userID, peerID string, limit int) (*ConversationPage, error) {
	if err := requirePair(userID, peerID); err != nil {
		return nil, err
	}

	history, err := s.messages.History(ctx, userID, peerID, s.clampLimit(limit))
	if err != nil {
		return nil, err
	}
	marked, err := s.markRead(ctx, peerID, userID)
	if err != nil {
		return nil, err
	}
	if marked > 0 {
		for i := range history {
			if history[i].SenderID == peerID && history[i].ReceiverID == userID {
				history[i].IsRead = true
			}
		}
	}

	// Deletions already visible in the window are not replayed; any later
	// deletion is stamped after the newest deleted_at shown here.
	var cursor SyncCursor
	if len(history) > 0 {
		cursor.TombstonesSince = history[0].CreatedAt
	}
	cursor = cursor.AdvanceDeletions(history)
	cursor = cursor.AdvanceMessages(history)

	return &ConversationPage{
		Messages:       models.Views(history),
		Cursor:         cursor,
		MarkedRead:     marked,
		PollIntervalMS: s.cfg.PollIntervalMS,
	}, nil
}

// GetNewMessages returns pair messages created after since. Deleted messages
// are included with their content withheld. Inbound unread messages are
// consumed when any arrive, since the caller has the chat open.
func (s *Service) GetNewMessages(ctx context.Context, userID, peerID string, since time.Time) (*MessagesPage, error) {
	if err := requirePair(userID, peerID); err != nil {
		return nil, err
	}

	messages, err := s.messages.Since(ctx, userID, peerID, since)
	if err != nil {
		return nil, err
	}
	if hasUnreadFrom(messages, peerID, userID) {
		if _, err := s.markRead(ctx, peerID, userID); err != nil {
			return nil, err
		}
	}

	cursor := SyncCursor{MessagesSince: since}.AdvanceMessages(messages)
	return &MessagesPage{Messages: models.Views(messages), Cursor: cursor.MessagesSince}, nil
}

// GetRecentTombstones returns deletions in the pair with deleted_at after since.
func (s *Service) GetRecentTombstones(ctx context.Context, userID, peerID string, since time.Time) (*TombstonesPage, error) {
	if err := requirePair(userID, peerID); err != nil {
		return nil, err
	}

	tombstones, err := s.messages.TombstonesSince(ctx, userID, peerID, since)
	if err != nil {
		return nil, err
	}
	cursor := SyncCursor{TombstonesSince: since}.AdvanceTombstones(tombstones)
	return &TombstonesPage{Tombstones: tombstones, Cursor: cursor.TombstonesSince}, nil
}

// Sync polls both feeds, advancing each watermark on its own.
func (s *Service) Sync(ctx context.Context, userID, peerID string, cursor SyncCursor) (*SyncResult, error) {
	messages, err := s.GetNewMessages(ctx, userID, peerID, cursor.MessagesSince)
	if err != nil {
		return nil, err
	}
	tombstones, err := s.GetRecentTombstones(ctx, userID, peerID, cursor.TombstonesSince)
	if err != nil {
		return nil, err
	}
	return &SyncResult{
		Messages:   messages.Messages,
		Tombstones: tombstones.Tombstones,
		Cursor: SyncCursor{
			MessagesSince:   messages.Cursor,
			TombstonesSince: tombstones.Cursor,
		},
	}, nil
}

// DeleteMessage soft-deletes a message the caller sent.
func (s *Service) DeleteMessage(ctx context.Context, userID string, messageID uint64) error {
	if err := requireIdentity(userID); err != nil {
		return err
	}
	if messageID == 0 {
		return apperr.Invalid("Message ID is required")
	}

	deleted, err := s.messages.SoftDelete(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if deleted {
		metrics.MessageDeleted()
		s.log.Debug().Uint64("message_id", messageID).Str("user_id", userID).Msg("message deleted")
	}
	return nil
}

// UnreadCount is the number of unread, not deleted messages sent to the caller.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if err := requireIdentity(userID); err != nil {
		return 0, err
	}
	return s.messages.UnreadCount(ctx, userID)
}

// Directory lists the users the caller can start a conversation with.
func (s *Service) Directory(ctx context.Context, userID string) ([]models.UserSanitized, error) {
	if err := requireIdentity(userID); err != nil {
		return nil, err
	}
	users, err := s.users.ListExcept(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSanitized, len(users))
	for i := range users {
		out[i] = users[i].Directory()
	}
	return out, nil
}

func (s *Service) markRead(ctx context.Context, peerID, selfID string) (int64, error) {
	n, err := s.messages.MarkRead(ctx, peerID, selfID)
	if err != nil {
		return 0, err
	}
	metrics.MessagesRead(n)
	return n, nil
}

func hasUnreadFrom(messages []models.Message, peerID, selfID string) bool {
	for _, m := range messages {
		if m.SenderID == peerID && m.ReceiverID == selfID && !m.IsRead {
			return true
		}
	}
	return false
}
