package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest is the public self-registration payload.
type RegisterRequest struct {
	Name            string   `json:"name" validate:"required,min=2,max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=6"`
	Role            UserRole `json:"role" validate:"required,oneof=INSTITUTION USER"`
	Language        Language `json:"language" validate:"omitempty,oneof=FR KH"`
	InstitutionName string   `json:"institutionName" validate:"omitempty,max=200"`
	Bio             string   `json:"bio" validate:"omitempty,max=500"`
	Location        string   `json:"location" validate:"omitempty,max=200"`
	Phone           string   `json:"phone" validate:"omitempty,max=30"`
	IP              string   `json:"-"`
	UserAgent       string   `json:"-"`
}

// AdminRegisterRequest creates an approved administrator when the shared code matches.
type AdminRegisterRequest struct {
	Name      string   `json:"name" validate:"required,min=2,max=100"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	AdminCode string   `json:"adminCode" validate:"required"`
	Language  Language `json:"language" validate:"omitempty,oneof=FR KH"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// AuthResponse returns the issued token and the public profile.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expiresIn"`
	IssuedAt  time.Time `json:"issuedAt"`
	User      *User     `json:"user"`
}

// ChangePasswordRequest payload for updating password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// UpdateProfileRequest lists the only profile fields a user may change.
type UpdateProfileRequest struct {
	Name     *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Bio      *string   `json:"bio" validate:"omitempty,max=500"`
	Location *string   `json:"location" validate:"omitempty,max=200"`
	Phone    *string   `json:"phone" validate:"omitempty,max=30"`
	Language *Language `json:"language" validate:"omitempty,oneof=FR KH"`
}

// JWTClaims represents the JWT payload for session tokens.
type JWTClaims struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
