package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is a direct message between two users.
// A conversation is not stored; it is every message sharing the same PairLow/PairHigh.
type Message struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   string     `gorm:"size:36;not null;index" json:"senderId"`
	ReceiverID string     `gorm:"size:36;not null;index:idx_messages_inbox,priority:1" json:"receiverId"`
	PairLow    string     `gorm:"size:36;not null;index:idx_messages_pair,priority:1" json:"-"`
	PairHigh   string     `gorm:"size:36;not null;index:idx_messages_pair,priority:2" json:"-"`
	Text       string     `gorm:"type:text" json:"text"`
	ImagePath  *string    `gorm:"size:255" json:"imagePath,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime:false;precision:3;not null;index:idx_messages_pair,priority:3" json:"createdAt"`
	IsRead     bool       `gorm:"not null;default:false;index:idx_messages_inbox,priority:2" json:"isRead"`
	DeletedAt  *time.Time `gorm:"precision:3;index" json:"deletedAt,omitempty"`
	DeletedBy  *string    `gorm:"size:36" json:"deletedBy,omitempty"`
}

// PairKey returns the canonical (min, max) key of the unordered pair {a, b}.
func PairKey(a, b string) (low, high string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// BeforeCreate derives the pair key so every write path indexes the same way.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	m.PairLow, m.PairHigh = PairKey(m.SenderID, m.ReceiverID)
	return nil
}

// IsDeleted reports whether the message has been tombstoned.
func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

// HasImage reports whether an attachment reference is present.
func (m *Message) HasImage() bool {
	return m.ImagePath != nil && *m.ImagePath != ""
}

// MessageView is the response shape of a message. Content of a tombstoned
// message is never included.
type MessageView struct {
	ID         uint64     `json:"id"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	Text       string     `json:"text,omitempty"`
	ImagePath  string     `json:"imagePath,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	IsRead     bool       `json:"isRead"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
	DeletedBy  string     `json:"deletedBy,omitempty"`
}

// View converts the stored row to its response shape.
func (m *Message) View() MessageView {
	v := MessageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		CreatedAt:  m.CreatedAt,
		IsRead:     m.IsRead,
	}
	if m.IsDeleted() {
		v.DeletedAt = m.DeletedAt
		if m.DeletedBy != nil {
			v.DeletedBy = *m.DeletedBy
		}
		return v
	}
	v.Text = m.Text
	if m.HasImage() {
		v.ImagePath = *m.ImagePath
	}
	return v
}

// Views converts a slice of messages, keeping order.
func Views(messages []Message) []MessageView {
	views := make([]MessageView, len(messages))
	for i := range messages {
		views[i] = messages[i].View()
	}
	return views
}

// Tombstone is the retained metadata of a soft-deleted message.
type Tombstone struct {
	ID        uint64    `json:"id"`
	DeletedAt time.Time `json:"deletedAt"`
	DeletedBy string    `json:"deletedBy"`
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	PeerID              string    `json:"peerId"`
	PeerName            string    `json:"peerName"`
	PeerPicture         string    `json:"peerPicture,omitempty"`
	LastMessageID       uint64    `json:"lastMessageId"`
	LastMessage         string    `json:"lastMessage"`
	LastMessageHasImage bool      `json:"lastMessageHasImage"`
	LastMessageImage    string    `json:"lastMessageImage,omitempty"`
	LastMessageTime     time.Time `json:"lastMessageTime"`
	LastSenderID        string    `json:"lastSenderId"`
	LastMessageDeleted  bool      `json:"lastMessageDeleted"`
	UnreadCount         int64     `json:"unreadCount"`
}
