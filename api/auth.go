package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/identities"
	"github.com/logistix-app/logistix/pkg/models"
)

func (s *Server) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid registration payload")
		return
	}

	user, err := s.identities.Register(c.Request.Context(), &req)
	if err != nil {
		s.logger.Warn("registration failed", zap.Error(err))
		responses.BadRequest(c, err.Error())
		return
	}
	responses.Created(c, user)
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid login payload")
		return
	}

	resp, err := s.identities.Login(c.Request.Context(), &req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		if errors.Is(err, identities.ErrInvalidCredentials) {
			responses.Unauthorized(c, "invalid credentials")
			return
		}
		s.logger.Error("login failed", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, resp)
}

func (s *Server) verify2FA(c *gin.Context) {
	var req models.TwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid 2fa payload")
		return
	}

	resp, err := s.identities.Verify2FA(c.Request.Context(), req.UserID, req.Code, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, identities.ErrInvalidTOTPCode),
			errors.Is(err, identities.ErrInvalidCredentials),
			errors.Is(err, identities.ErrMFANotEnabled):
			responses.Unauthorized(c, "invalid verification code")
		default:
			s.logger.Error("2fa verification failed", zap.Error(err))
			responses.Internal(c)
		}
		return
	}
	responses.Success(c, resp)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.identities.Logout(c.Request.Context(), currentSessionID(c)); err != nil {
		s.logger.Error("logout failed", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, gin.H{"logged_out": true})
}
