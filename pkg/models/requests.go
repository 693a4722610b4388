package models

import "github.com/google/uuid"

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,min=3,max=32"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest accepts either email or username in Login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries either a token or a pending 2FA challenge.
type LoginResponse struct {
	User        *User     `json:"user,omitempty"`
	Token       string    `json:"token,omitempty"`
	SessionID   uuid.UUID `json:"session_id,omitempty"`
	Requires2FA bool      `json:"requires_2fa"`
	UserID      uuid.UUID `json:"user_id,omitempty"`
}

// TwoFactorRequest completes a login for an MFA-enabled account.
type TwoFactorRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Code   string    `json:"code" binding:"required,len=6"`
}

// UpdateProfileRequest updates mutable profile fields. Pointer fields
// distinguish "not sent" from "set to empty".
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// ChangePasswordRequest is the security-tab password form.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// UpdateSettingsRequest updates appearance and preference fields.
type UpdateSettingsRequest struct {
	Theme              *string `json:"theme"`
	Density            *string `json:"density"`
	Language           *string `json:"language"`
	Currency           *string `json:"currency"`
	DefaultMarketplace *string `json:"default_marketplace"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
}

// UpdateEnrichmentRequest updates the enrichment configuration.
type UpdateEnrichmentRequest struct {
	Enabled       *bool    `json:"enabled"`
	AutoEnrich    *bool    `json:"auto_enrich"`
	Provider      *string  `json:"provider"`
	MinConfidence *float64 `json:"min_confidence"`
}

// ConnectIntegrationRequest posts a credential for a marketplace connector.
// Superbuy expects a session cookie, Vinted an access token.
type ConnectIntegrationRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// AnalyzeMarketRequest triggers a Vinted sold-item market analysis.
type AnalyzeMarketRequest struct {
	SearchTerm string `json:"search_term" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Brand      string `json:"brand"`
	Size       string `json:"size"`
	Condition  string `json:"condition"`
	Pages      int    `json:"pages"`
}
