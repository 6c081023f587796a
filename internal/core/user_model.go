package core

import (
	"context"
	"time"
)

// User is an account that can sign in to the back office.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:160;not null" json:"fullName"`
	DNI          string    `gorm:"size:32;not null" json:"dni"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName  string    `gorm:"size:160" json:"displayName"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Preferences are the per-user display settings, created with the account.
type Preferences struct {
	UserID        uint      `gorm:"primaryKey" json:"-"`
	DarkMode      bool      `json:"darkMode"`
	Notifications bool      `json:"notifications"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PasswordReset is an outstanding reset request. Only the token digest is
// stored.
type PasswordReset struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	TokenHash string `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// SignUpInput is the registration form.
type SignUpInput struct {
	FullName        string `json:"fullName" validate:"required"`
	DNI             string `json:"dni" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	AcceptTerms     bool   `json:"acceptTerms"`
}

// Session is what a successful login hands back to the caller.
type Session struct {
	UserID      uint      `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// UserService provides account, session and preference operations.
type UserService interface {
	// Migrate creates or updates the account tables.
	Migrate(ctx context.Context) error

	SignUp(ctx context.Context, input SignUpInput) (*User, error)
	Login(ctx context.Context, email, password string) (*Session, error)

	// Authenticate validates a session token and returns the user it names.
	Authenticate(ctx context.Context, token string) (*User, error)

	// RequestPasswordReset issues a single-use reset token for the account.
	// Delivery of the token is left to the caller.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error

	ChangePassword(ctx context.Context, userID uint, current, newPassword, confirmPassword string) error
	UpdateDisplayName(ctx context.Context, userID uint, name string) (*User, error)
	GetByID(ctx context.Context, userID uint) (*User, error)

	GetPreferences(ctx context.Context, userID uint) (*Preferences, error)
	UpdatePreferences(ctx context.Context, userID uint, darkMode, notifications bool) (*Preferences, error)
}
