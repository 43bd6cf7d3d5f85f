package domain

import (
	"strings"
	"time"
)

// Auth providers recorded on a user row.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	UserID         string     `json:"id" dynamodbav:"user_id"`
	Email          string     `json:"email" dynamodbav:"email"`
	Name           string     `json:"name" dynamodbav:"name"`
	Picture        string     `json:"picture,omitempty" dynamodbav:"picture"`
	Phone          *string    `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool       `json:"email_confirmed" dynamodbav:"email_confirmed"`
	PhoneConfirmed bool       `json:"phone_confirmed" dynamodbav:"phone_confirmed"`
	AuthProvider   string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"` // "local" | "google"
	GoogleSub      string     `json:"-"                       dynamodbav:"google_sub,omitempty"`
	Enable         bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// NormalizeEmail lowercases and trims an address. Every stored email and
// every lookup goes through this so the email-index GSI stays unique.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"`
}
