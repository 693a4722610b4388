package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/settings"
	"github.com/logistix-app/logistix/pkg/models"
)

func (s *Server) getSettings(c *gin.Context) {
	userSettings, err := s.settings.Settings(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("failed to load settings", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, userSettings)
}

func (s *Server) updateSettings(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid settings payload")
		return
	}

	userSettings, err := s.settings.UpdateSettings(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrInvalidTheme),
			errors.Is(err, settings.ErrInvalidDensity):
			responses.BadRequest(c, err.Error())
		default:
			s.logger.Error("failed to update settings", zap.Error(err))
			responses.Internal(c)
		}
		return
	}
	responses.Success(c, userSettings)
}

func (s *Server) getEnrichmentConfig(c *gin.Context) {
	cfg, err := s.settings.EnrichmentConfig(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("failed to load enrichment config", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, cfg)
}

func (s *Server) updateEnrichmentConfig(c *gin.Context) {
	var req models.UpdateEnrichmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid enrichment payload")
		return
	}

	cfg, err := s.settings.UpdateEnrichment(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidConfidence) {
			responses.BadRequest(c, err.Error())
			return
		}
		s.logger.Error("failed to update enrichment config", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, cfg)
}

func (s *Server) getEnrichmentStatus(c *gin.Context) {
	status, err := s.settings.EnrichmentStatusFor(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("failed to load enrichment status", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, status)
}
