package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/apperr"
	"chat-backend/internal/chat"
	"chat-backend/internal/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/uploads"
	"chat-backend/internal/utils"
)

// MessageHandler exposes the chat operations over HTTP.
type MessageHandler struct {
	Chat    *chat.Service
	Uploads *uploads.Store
	Log     zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *chat.Service, store *uploads.Store, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{Chat: svc, Uploads: store, Log: log}
}

// SendMessageRequest is accepted as JSON or as a multipart form with an
// optional "image" file.
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" form:"receiverId" binding:"required"`
	Text       string `json:"text" form:"text"`
	ImagePath  string `json:"imagePath" form:"-"`
}

// SendMessageResponse is returned after a message is stored.
type SendMessageResponse struct {
	ID      uint64             `json:"id"`
	Message models.MessageView `json:"message"`
}

// SendMessage handles sending a new message.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	var imagePath *string
	var stored string
	if req.ImagePath != "" {
		p, err := h.Uploads.Reference(userID, req.ImagePath)
		if err != nil {
			utils.HandleError(c, h.Log, err)
			return
		}
		imagePath = &p
	}
	if file, err := c.FormFile("image"); err == nil {
		name, err := h.Uploads.SaveMessageImage(userID, file)
		if err != nil {
			utils.HandleError(c, h.Log, err)
			return
		}
		stored = name
		url := h.Uploads.URL(name)
		imagePath = &url
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		utils.BadRequest(c, "Invalid image upload")
		return
	}

	msg, err := h.Chat.Send(c.Request.Context(), userID, req.ReceiverID, req.Text, imagePath)
	if err != nil {
		if stored != "" {
			if rerr := h.Uploads.Remove(stored); rerr != nil {
				h.Log.Warn().Err(rerr).Str("file", stored).Msg("failed to remove orphaned upload")
			}
		}
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Created(c, "Message sent successfully", SendMessageResponse{ID: msg.ID, Message: msg.View()})
}

// GetConversations lists the caller's conversations, newest activity first.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	conversations, err := h.Chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Conversations fetched successfully", conversations)
}

// GetUnreadCount returns how many messages wait for the caller.
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	count, err := h.Chat.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Unread count fetched successfully", gin.H{"count": count})
}

// GetConversation opens the chat with a peer and marks their messages read.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	limit, err := utils.ParseLimit(c.Query("limit"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	page, err := h.Chat.GetConversation(c.Request.Context(), userID, c.Param("peerId"), limit)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Conversation fetched successfully", page)
}

// GetNewMessages polls messages created after ?since.
func (h *MessageHandler) GetNewMessages(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	since, err := chat.ParseWatermark("since", c.Query("since"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	page, err := h.Chat.GetNewMessages(c.Request.Context(), userID, c.Param("peerId"), since)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", page)
}

// GetDeletedMessages polls deletions with deleted_at after ?since.
func (h *MessageHandler) GetDeletedMessages(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	since, err := chat.ParseWatermark("since", c.Query("since"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	page, err := h.Chat.GetRecentTombstones(c.Request.Context(), userID, c.Param("peerId"), since)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Deleted messages fetched successfully", page)
}

// Sync polls both feeds in one request.
func (h *MessageHandler) Sync(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var cursor chat.SyncCursor
	var errs []string
	var err error
	if cursor.MessagesSince, err = chat.ParseWatermark("messagesSince", c.Query("messagesSince")); err != nil {
		errs = append(errs, validationMessages(err)...)
	}
	if cursor.TombstonesSince, err = chat.ParseWatermark("tombstonesSince", c.Query("tombstonesSince")); err != nil {
		errs = append(errs, validationMessages(err)...)
	}
	if len(errs) > 0 {
		utils.ValidationFailed(c, errs)
		return
	}

	result, err := h.Chat.Sync(c.Request.Context(), userID, c.Param("peerId"), cursor)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Sync successful", result)
}

// DeleteMessage soft-deletes a message the caller sent. Repeating the call
// succeeds without changing the first deletion.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	id, err := utils.ParseMessageID(c.Param("messageId"))
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	if err := h.Chat.DeleteMessage(c.Request.Context(), userID, id); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Message deleted successfully", gin.H{"id": id})
}

func validationMessages(err error) []string {
	if ve, ok := apperr.IsValidation(err); ok {
		return ve.Errors
	}
	return []string{err.Error()}
}
