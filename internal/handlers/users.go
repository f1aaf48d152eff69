package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/chat"
	"chat-backend/internal/middleware"
	"chat-backend/internal/utils"
)

// UserHandler serves the user directory.
type UserHandler struct {
	Chat *chat.Service
	Log  zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *chat.Service, log zerolog.Logger) *UserHandler {
	return &UserHandler{Chat: svc, Log: log}
}

// GetUsers lists everyone the caller can start a conversation with.
func (h *UserHandler) GetUsers(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	users, err := h.Chat.Directory(c.Request.Context(), userID)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	utils.Success(c, "Users fetched successfully", users)
}
