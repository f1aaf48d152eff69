package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chat-backend/internal/apperr"
	"chat-backend/internal/config"
	"chat-backend/internal/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/storage"
	"chat-backend/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	Users *storage.UserStore
	Cfg   *config.Config
	Log   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *storage.UserStore, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{Users: users, Cfg: cfg, Log: log}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" binding:"required,max=100"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{Name: req.Name, Email: req.Email}
	if err := user.SetPassword(req.Password); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	if err := h.Users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			utils.BadRequest(c, "User with this email already exists")
			return
		}
		utils.HandleError(c, h.Log, err)
		return
	}

	h.Log.Info().Str("user_id", user.ID).Msg("user registered")
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.Users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.Unauthorized(c, "Invalid email or password")
			return
		}
		utils.HandleError(c, h.Log, err)
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// new pair is issued. The token is read from the cookie, then the body.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Users.FindRefreshToken(ctx, claims.UserID, presented, time.Now()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
			return
		}
		utils.HandleError(c, h.Log, err)
		return
	}

	user, err := h.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.Unauthorized(c, "Invalid refresh token")
			return
		}
		utils.HandleError(c, h.Log, err)
		return
	}

	if err := h.Users.RevokeRefreshToken(ctx, presented); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}
	accessToken, refreshToken, err := h.issueTokens(c, user)
	if err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

// Logout revokes the caller's refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req LogoutRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		utils.ValidationFailed(c, []string{"refreshToken is required"})
		return
	}

	if err := h.Users.RevokeRefreshToken(c.Request.Context(), token); err != nil {
		utils.HandleError(c, h.Log, err)
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", !h.Cfg.IsDevelopment(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile returns the authenticated user's account.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	user, err := h.Users.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			utils.NotFound(c, "User profile not found")
			return
		}
		utils.HandleError(c, h.Log, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// issueTokens signs a new token pair, stores the refresh token and sets it as
// an HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, user *models.User) (string, string, error) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return "", "", err
	}
	expiresAt := utils.RefreshExpiry(h.Cfg, time.Now())
	if err := h.Users.SaveRefreshToken(c.Request.Context(), user.ID, refreshToken, expiresAt); err != nil {
		return "", "", err
	}

	c.SetCookie(
		refreshCookie,
		refreshToken,
		h.Cfg.JWTRefreshExpirationHours*60*60,
		"/",
		"",
		!h.Cfg.IsDevelopment(),
		true,
	)
	return accessToken, refreshToken, nil
}
