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

// ErrEmailTaken is returned when registering an address that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// UserStore is the read side of users for the message core plus the account
// and refresh-token persistence used by the auth endpoints.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new account. The email is normalized to lower case.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return apperr.Storage("check email", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return apperr.Storage("create user", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("find user", err)
	}
	return &user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("find user", err)
	}
	return &user, nil
}

// Exists reports whether id names an account.
func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Storage("user exists", err)
	}
	return count > 0, nil
}

// ListExcept returns every user other than id ordered by name.
func (s *UserStore) ListExcept(ctx context.Context, id string) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id <> ?", id).Order("name ASC").Find(&users).Error; err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return users, nil
}

// SaveRefreshToken persists a newly issued refresh token.
func (s *UserStore) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	rt := models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	if err := s.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return apperr.Storage("save refresh token", err)
	}
	return nil
}

// FindRefreshToken returns the stored token for userID when it is still usable at now.
func (s *UserStore) FindRefreshToken(ctx context.Context, userID, token string, now time.Time) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, now).
		First(&rt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Storage("find refresh token", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks token revoked. Unknown or already revoked tokens are not an error.
func (s *UserStore) RevokeRefreshToken(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Update("is_revoked", true).Error
	return apperr.Storage("revoke refresh token", err)
}
