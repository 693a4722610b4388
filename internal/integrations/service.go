package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/pkg/metrics"
	"github.com/logistix-app/logistix/pkg/models"
)

// Supported providers.
const (
	ProviderSuperbuy = "superbuy"
	ProviderVinted   = "vinted"
)

// Connector errors surfaced to the API layer.
var (
	ErrCredentialRejected = errors.New("credential rejected by provider")
	ErrUnknownProvider    = errors.New("unknown integration provider")
	ErrNotConnected       = errors.New("integration not connected")
)

// Service manages marketplace connections and Superbuy syncs.
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	superbuy *SuperbuyClient
	vinted   *VintedClient
}

// NewService creates the integrations service.
func NewService(logger *zap.Logger, db *gorm.DB, superbuy *SuperbuyClient, vinted *VintedClient) *Service {
	return &Service{
		logger:   logger.Named("integrations"),
		db:       db,
		superbuy: superbuy,
		vinted:   vinted,
	}
}

// Connect validates the posted credential against the provider and stores the
// connection. Reconnecting replaces the stored credential.
func (s *Service) Connect(ctx context.Context, userID uuid.UUID, provider, credential string) (*models.IntegrationConnection, error) {
	switch provider {
	case ProviderSuperbuy:
		if err := s.superbuy.ValidateCookie(ctx, credential); err != nil {
			return nil, err
		}
	case ProviderVinted:
		if err := s.vinted.ValidateToken(ctx, credential); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownProvider
	}

	now := time.Now()
	conn, err := s.connection(ctx, userID, provider)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conn = &models.IntegrationConnection{
			ID:        uuid.New(),
			UserID:    userID,
			Provider:  provider,
			CreatedAt: now,
		}
	} else if err != nil {
		return nil, err
	}

	conn.Credential = credential
	conn.Status = models.ConnectionStatusConnected
	conn.LastError = ""
	conn.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(conn).Error; err != nil {
		return nil, fmt.Errorf("failed to store connection: %w", err)
	}

	s.logger.Info("integration connected",
		zap.String("user_id", userID.String()),
		zap.String("provider", provider))
	return conn, nil
}

// Status returns the stored connection state for status polling.
func (s *Service) Status(ctx context.Context, userID uuid.UUID, provider string) (*models.IntegrationConnection, error) {
	conn, err := s.connection(ctx, userID, provider)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotConnected
	}
	return conn, err
}

// Disconnect clears the credential and marks the connection disconnected.
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID, provider string) error {
	conn, err := s.connection(ctx, userID, provider)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotConnected
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"credential": "",
		"status":     models.ConnectionStatusDisconnected,
		"updated_at": time.Now(),
	}
	if err := s.db.WithContext(ctx).Model(conn).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	return nil
}

// SyncResult summarizes one Superbuy sync run.
type SyncResult struct {
	Provider string    `json:"provider"`
	Parcels  int       `json:"parcels"`
	SyncedAt time.Time `json:"synced_at"`
}

// SyncSuperbuy runs one parcel sync for the user's Superbuy connection. A
// failed sync marks the connection errored but keeps the credential.
func (s *Service) SyncSuperbuy(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	conn, err := s.connection(ctx, userID, ProviderSuperbuy)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	if conn.Status == models.ConnectionStatusDisconnected || conn.Credential == "" {
		return nil, ErrNotConnected
	}

	s.setStatus(ctx, conn, models.ConnectionStatusSyncing, "")

	parcels, err := s.superbuy.FetchParcels(ctx, conn.Credential)
	if err != nil {
		metrics.IntegrationSyncsTotal.WithLabelValues(ProviderSuperbuy, "error").Inc()
		s.setStatus(ctx, conn, models.ConnectionStatusError, err.Error())
		return nil, fmt.Errorf("superbuy sync failed: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.ConnectionStatusConnected,
		"last_error":   "",
		"last_sync_at": now,
		"updated_at":   now,
	}
	if err := s.db.WithContext(ctx).Model(conn).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to record sync: %w", err)
	}

	metrics.IntegrationSyncsTotal.WithLabelValues(ProviderSuperbuy, "success").Inc()
	return &SyncResult{Provider: ProviderSuperbuy, Parcels: len(parcels), SyncedAt: now}, nil
}

func (s *Service) connection(ctx context.Context, userID uuid.UUID, provider string) (*models.IntegrationConnection, error) {
	var conn models.IntegrationConnection
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	return &conn, nil
}

func (s *Service) setStatus(ctx context.Context, conn *models.IntegrationConnection, status, lastError string) {
	updates := map[string]interface{}{
		"status":     status,
		"last_error": lastError,
		"updated_at": time.Now(),
	}
	if err := s.db.WithContext(ctx).Model(conn).Updates(updates).Error; err != nil {
		s.logger.Error("failed to update connection status", zap.Error(err))
	}
}
