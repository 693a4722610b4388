package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/pkg/models"
)

// Validation errors surfaced as 400s by the API layer.
var (
	ErrPasswordMismatch  = errors.New("new password and confirmation do not match")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrWrongPassword     = errors.New("current password is incorrect")
	ErrInvalidTheme      = errors.New("invalid theme")
	ErrInvalidDensity    = errors.New("invalid density")
	ErrInvalidConfidence = errors.New("min confidence must be between 0 and 1")
)

var validThemes = map[string]bool{"light": true, "dark": true, "system": true}
var validDensities = map[string]bool{"comfortable": true, "compact": true}

const minPasswordLength = 8

// Service implements the profile, security, appearance, preferences and
// enrichment tabs.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB

	// strict strips all markup (display name), ugc keeps harmless formatting (bio)
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
}

// NewService creates a settings service.
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{
		logger: logger.Named("settings"),
		db:     db,
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
	}
}

// Profile returns the user's profile.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &user, nil
}

// UpdateProfile applies the fields present in the request, sanitizing
// user-supplied markup before it is stored.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = s.strict.Sanitize(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = s.strict.Sanitize(*req.LastName)
	}
	if req.DisplayName != nil {
		updates["display_name"] = s.strict.Sanitize(*req.DisplayName)
	}
	if req.Bio != nil {
		updates["bio"] = s.ugc.Sanitize(*req.Bio)
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		res := s.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return s.Profile(ctx, userID)
}

// ChangePassword validates and rotates the account password. Any validation
// failure leaves the stored hash untouched.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *models.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if len(req.NewPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).
		Update("password_hash", string(hashed)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// Settings returns the user's settings row, creating defaults on first read.
func (s *Service) Settings(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.UserSettings{
			UserID:             userID,
			Theme:              "system",
			Density:            "comfortable",
			Language:           "en",
			Currency:           "EUR",
			DefaultMarketplace: "vinted",
			EmailNotifications: true,
			UpdatedAt:          time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings validates and applies the fields present in the request.
// Validation runs before any write so a bad payload changes nothing.
func (s *Service) UpdateSettings(ctx context.Context, userID uuid.UUID, req *models.UpdateSettingsRequest) (*models.UserSettings, error) {
	if req.Theme != nil && !validThemes[*req.Theme] {
		return nil, ErrInvalidTheme
	}
	if req.Density != nil && !validDensities[*req.Density] {
		return nil, ErrInvalidDensity
	}

	// Ensure the row exists before a partial update.
	if _, err := s.Settings(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Theme != nil {
		updates["theme"] = *req.Theme
	}
	if req.Density != nil {
		updates["density"] = *req.Density
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.DefaultMarketplace != nil {
		updates["default_marketplace"] = *req.DefaultMarketplace
	}
	if req.EmailNotifications != nil {
		updates["email_notifications"] = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		updates["push_notifications"] = *req.PushNotifications
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := s.db.WithContext(ctx).Model(&models.UserSettings{}).
			Where("user_id = ?", userID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update settings: %w", err)
		}
	}
	return s.Settings(ctx, userID)
}

// EnrichmentConfig returns the user's enrichment configuration, creating
// defaults on first read.
func (s *Service) EnrichmentConfig(ctx context.Context, userID uuid.UUID) (*models.EnrichmentConfig, error) {
	var cfg models.EnrichmentConfig
	err := s.db.WithContext(ctx).First(&cfg, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.EnrichmentConfig{
			UserID:        userID,
			Enabled:       false,
			Provider:      "default",
			MinConfidence: 0.7,
			UpdatedAt:     time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&cfg).Error; err != nil {
			return nil, fmt.Errorf("failed to create enrichment config: %w", err)
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load enrichment config: %w", err)
	}
	return &cfg, nil
}

// UpdateEnrichment validates and applies enrichment config changes.
func (s *Service) UpdateEnrichment(ctx context.Context, userID uuid.UUID, req *models.UpdateEnrichmentRequest) (*models.EnrichmentConfig, error) {
	if req.MinConfidence != nil && (*req.MinConfidence < 0 || *req.MinConfidence > 1) {
		return nil, ErrInvalidConfidence
	}
	if _, err := s.EnrichmentConfig(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if req.AutoEnrich != nil {
		updates["auto_enrich"] = *req.AutoEnrich
	}
	if req.Provider != nil {
		updates["provider"] = *req.Provider
	}
	if req.MinConfidence != nil {
		updates["min_confidence"] = *req.MinConfidence
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := s.db.WithContext(ctx).Model(&models.EnrichmentConfig{}).
			Where("user_id = ?", userID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update enrichment config: %w", err)
		}
	}
	return s.EnrichmentConfig(ctx, userID)
}

// EnrichmentStatus is the derived state shown on the enrichment tab.
type EnrichmentStatus struct {
	Enabled        bool      `json:"enabled"`
	Provider       string    `json:"provider"`
	PendingItems   int64     `json:"pending_items"`
	LastConfigured time.Time `json:"last_configured"`
}

// EnrichmentStatusFor derives the enrichment status from the stored config.
func (s *Service) EnrichmentStatusFor(ctx context.Context, userID uuid.UUID) (*EnrichmentStatus, error) {
	cfg, err := s.EnrichmentConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &EnrichmentStatus{
		Enabled:        cfg.Enabled,
		Provider:       cfg.Provider,
		LastConfigured: cfg.UpdatedAt,
	}, nil
}
