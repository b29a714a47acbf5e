package models

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a user account in the database.
type User struct {
	ID           int64     `db:"id"`
	UUID         string    `db:"uuid"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Bio          string    `db:"bio"`
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// SetPassword replaces the stored hash with a bcrypt hash of raw.
func (u *User) SetPassword(raw string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword reports whether raw matches the stored hash.
func (u *User) CheckPassword(raw string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw)) == nil
}

// Profile is the public representation of a user.
type Profile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

// ProfileOf builds the public representation of u.
func ProfileOf(u *User) Profile {
	return Profile{
		UserID:    u.UUID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
	}
}

// LoginRequest defines the structure for a user login request.
// Presence of both fields is checked by the service so that a missing
// field produces a single combined message.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse defines the structure for a successful login response.
type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// SignUpRequest defines the structure for a user registration request.
type SignUpRequest struct {
	Username  string `json:"username" validate:"required,min=5,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required,notblank"`
	Password2 string `json:"password2" validate:"required,notblank"`
}

// PasswordChangeRequest defines the structure for a password change request.
type PasswordChangeRequest struct {
	OldPassword  string `json:"old_password" validate:"required,notblank,max=128"`
	NewPassword1 string `json:"new_password1" validate:"required,notblank,max=128"`
	NewPassword2 string `json:"new_password2" validate:"required,notblank,max=128"`
}

// PasswordChangeResponse carries the replacement token issued after a
// password change.
type PasswordChangeResponse struct {
	Token string `json:"token"`
}

// ProfileUpdateRequest defines the editable profile fields. Nil fields are
// left unchanged. Email is read-only and therefore absent.
type ProfileUpdateRequest struct {
	Username  *string `json:"username" validate:"omitnil,min=5,max=120"`
	FirstName *string `json:"first_name" validate:"omitnil,max=30"`
	LastName  *string `json:"last_name" validate:"omitnil,max=30"`
	Bio       *string `json:"bio" validate:"omitnil,max=500"`
}
