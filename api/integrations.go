package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/integrations"
	"github.com/logistix-app/logistix/pkg/models"
)

func (s *Server) connectIntegration(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ConnectIntegrationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.BadRequest(c, "invalid credential payload")
			return
		}

		conn, err := s.integrations.Connect(c.Request.Context(), currentUserID(c), provider, req.Credential)
		if err != nil {
			if errors.Is(err, integrations.ErrCredentialRejected) {
				responses.Unauthorized(c, "credential rejected by "+provider)
				return
			}
			s.logger.Error("integration connect failed",
				zap.String("provider", provider), zap.Error(err))
			responses.Error(c, 502, provider+" is unreachable")
			return
		}
		responses.Success(c, conn)
	}
}

func (s *Server) integrationStatus(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := s.integrations.Status(c.Request.Context(), currentUserID(c), provider)
		if err != nil {
			if errors.Is(err, integrations.ErrNotConnected) {
				responses.Success(c, gin.H{"provider": provider, "status": models.ConnectionStatusDisconnected})
				return
			}
			s.logger.Error("integration status failed", zap.Error(err))
			responses.Internal(c)
			return
		}
		responses.Success(c, conn)
	}
}

func (s *Server) disconnectIntegration(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.integrations.Disconnect(c.Request.Context(), currentUserID(c), provider)
		if err != nil {
			if errors.Is(err, integrations.ErrNotConnected) {
				responses.NotFound(c, "integration not connected")
				return
			}
			s.logger.Error("integration disconnect failed", zap.Error(err))
			responses.Internal(c)
			return
		}
		responses.Success(c, gin.H{"disconnected": true})
	}
}

func (s *Server) syncSuperbuy(c *gin.Context) {
	result, err := s.integrations.SyncSuperbuy(c.Request.Context(), currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, integrations.ErrNotConnected):
			responses.BadRequest(c, "superbuy is not connected")
		case errors.Is(err, integrations.ErrCredentialRejected):
			responses.Unauthorized(c, "superbuy session expired, reconnect required")
		default:
			s.logger.Error("superbuy sync failed", zap.Error(err))
			responses.Error(c, 502, "superbuy sync failed")
		}
		return
	}
	responses.Success(c, result)
}

func (s *Server) analyzeMarket(c *gin.Context) {
	var req models.AnalyzeMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid analysis payload")
		return
	}

	analysis, err := s.analyzer.Analyze(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, integrations.ErrNotConnected):
			responses.BadRequest(c, "vinted is not connected")
		case errors.Is(err, integrations.ErrCredentialRejected):
			responses.Unauthorized(c, "vinted token expired, reconnect required")
		case errors.Is(err, integrations.ErrNoSoldItems),
			errors.Is(err, integrations.ErrNoRepresentative):
			responses.NotFound(c, err.Error())
		default:
			s.logger.Error("market analysis failed", zap.Error(err))
			responses.Error(c, 502, "market analysis failed")
		}
		return
	}
	responses.Created(c, analysis)
}

func (s *Server) listAnalyses(c *gin.Context) {
	analyses, err := s.analyzer.Analyses(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("failed to list analyses", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, analyses)
}

func (s *Server) deleteAnalysis(c *gin.Context) {
	analysisID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.BadRequest(c, "invalid analysis id")
		return
	}

	err = s.analyzer.DeleteAnalysis(c.Request.Context(), currentUserID(c), analysisID)
	if err != nil {
		if errors.Is(err, integrations.ErrAnalysisNotFound) {
			responses.NotFound(c, "analysis not found")
			return
		}
		s.logger.Error("failed to delete analysis", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, gin.H{"deleted": true})
}
