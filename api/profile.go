package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/identities"
	"github.com/logistix-app/logistix/internal/settings"
	"github.com/logistix-app/logistix/pkg/models"
)

func (s *Server) getProfile(c *gin.Context) {
	user, err := s.settings.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("failed to load profile", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, user)
}

func (s *Server) updateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid profile payload")
		return
	}

	user, err := s.settings.UpdateProfile(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		s.logger.Error("failed to update profile", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, user)
}

func (s *Server) changePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid password payload")
		return
	}

	err := s.settings.ChangePassword(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrPasswordMismatch),
			errors.Is(err, settings.ErrPasswordTooShort):
			responses.BadRequest(c, err.Error())
		case errors.Is(err, settings.ErrWrongPassword):
			responses.Unauthorized(c, err.Error())
		default:
			s.logger.Error("failed to change password", zap.Error(err))
			responses.Internal(c)
		}
		return
	}
	responses.Success(c, gin.H{"changed": true})
}

func (s *Server) setup2FA(c *gin.Context) {
	secret, otpauthURL, err := s.identities.Setup2FA(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, identities.ErrMFAAlreadyEnabled) {
			responses.BadRequest(c, err.Error())
			return
		}
		s.logger.Error("2fa setup failed", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, gin.H{"secret": secret, "otpauth_url": otpauthURL})
}

type twoFactorCodeRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

func (s *Server) enable2FA(c *gin.Context) {
	var req twoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid 2fa payload")
		return
	}

	err := s.identities.Enable2FA(c.Request.Context(), currentUserID(c), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, identities.ErrInvalidTOTPCode),
			errors.Is(err, identities.ErrMFAAlreadyEnabled):
			responses.BadRequest(c, err.Error())
		default:
			s.logger.Error("2fa enable failed", zap.Error(err))
			responses.Internal(c)
		}
		return
	}
	responses.Success(c, gin.H{"enabled": true})
}

type disable2FARequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) disable2FA(c *gin.Context) {
	var req disable2FARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, "invalid payload")
		return
	}

	err := s.identities.Disable2FA(c.Request.Context(), currentUserID(c), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identities.ErrMFANotEnabled):
			responses.BadRequest(c, err.Error())
		case errors.Is(err, identities.ErrInvalidCredentials):
			responses.Unauthorized(c, "invalid password")
		default:
			s.logger.Error("2fa disable failed", zap.Error(err))
			responses.Internal(c)
		}
		return
	}
	responses.Success(c, gin.H{"disabled": true})
}
