package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents an account holder.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio"`
	MFAEnabled   bool      `json:"mfa_enabled"`
	MFASecret    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is one authenticated device/browser session. Tokens embed the
// session ID so revoking the row revokes the token.
type Session struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	UserAgent  string     `json:"user_agent"`
	IPAddress  string     `json:"ip_address"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// UserSettings holds the appearance and preference tabs for one user.
type UserSettings struct {
	UserID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Theme              string    `json:"theme"`
	Density            string    `json:"density"`
	Language           string    `json:"language"`
	Currency           string    `json:"currency"`
	DefaultMarketplace string    `json:"default_marketplace"`
	EmailNotifications bool      `json:"email_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EnrichmentConfig controls automatic listing enrichment for a user.
type EnrichmentConfig struct {
	UserID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Enabled       bool      `json:"enabled"`
	AutoEnrich    bool      `json:"auto_enrich"`
	Provider      string    `json:"provider"`
	MinConfidence float64   `json:"min_confidence"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IntegrationConnection stores one marketplace connector per user/provider.
type IntegrationConnection struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;index:idx_conn_user_provider,unique" json:"user_id"`
	Provider   string     `gorm:"index:idx_conn_user_provider,unique" json:"provider"`
	Credential string     `json:"-"`
	Status     string     `json:"status"`
	LastError  string     `json:"last_error,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Integration connection statuses.
const (
	ConnectionStatusConnected    = "connected"
	ConnectionStatusSyncing      = "syncing"
	ConnectionStatusError        = "error"
	ConnectionStatusDisconnected = "disconnected"
)

// MarketAnalysis is the persisted result of one Vinted sold-item analysis.
type MarketAnalysis struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	SearchTerm  string          `json:"search_term"`
	ItemTitle   string          `json:"item_title"`
	SampleSize  int             `json:"sample_size"`
	MinPrice    decimal.Decimal `gorm:"type:numeric" json:"min_price"`
	MaxPrice    decimal.Decimal `gorm:"type:numeric" json:"max_price"`
	AvgPrice    decimal.Decimal `gorm:"type:numeric" json:"avg_price"`
	MedianPrice decimal.Decimal `gorm:"type:numeric" json:"median_price"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
}

// All returns every model migrated by the service schema.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&UserSettings{},
		&EnrichmentConfig{},
		&IntegrationConnection{},
		&MarketAnalysis{},
	}
}
