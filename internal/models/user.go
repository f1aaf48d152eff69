package models

import (
	"golang.org/x/crypto/bcrypt"
)

// User is an account that can send and receive messages.
// The message core only reads ID, Name and ProfilePicture.
type User struct {
	BaseModel
	Email          string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password       string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Name           string `gorm:"size:100;not null" json:"name"`
	ProfilePicture string `gorm:"size:255" json:"profilePicture,omitempty"`
}

// UserSanitized is the user data that is safe to send in API responses.
type UserSanitized struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
	}
}

// Directory is the sanitized view used when listing other users; it omits the email.
func (u *User) Directory() UserSanitized {
	s := u.Sanitize()
	s.Email = ""
	return s
}
