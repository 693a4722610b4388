package api

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/identities"
)

func (s *Server) listSessions(c *gin.Context) {
	sessions, err := s.identities.Sessions(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.logger.Error("failed to list sessions", zap.Error(err))
		responses.Internal(c)
		return
	}

	current := currentSessionID(c)
	type sessionView struct {
		ID         uuid.UUID `json:"id"`
		UserAgent  string    `json:"user_agent"`
		IPAddress  string    `json:"ip_address"`
		CreatedAt  string    `json:"created_at"`
		LastSeenAt string    `json:"last_seen_at"`
		Current    bool      `json:"current"`
	}
	views := make([]sessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionView{
			ID:         session.ID,
			UserAgent:  session.UserAgent,
			IPAddress:  session.IPAddress,
			CreatedAt:  session.CreatedAt.UTC().Format(time.RFC3339),
			LastSeenAt: session.LastSeenAt.UTC().Format(time.RFC3339),
			Current:    session.ID == current,
		})
	}
	responses.Success(c, views)
}

func (s *Server) deleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.BadRequest(c, "invalid session id")
		return
	}

	err = s.identities.RevokeSession(c.Request.Context(), currentUserID(c), sessionID)
	if err != nil {
		if errors.Is(err, identities.ErrSessionNotFound) {
			responses.NotFound(c, "session not found")
			return
		}
		s.logger.Error("failed to revoke session", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, gin.H{"revoked": true})
}

func (s *Server) deleteOtherSessions(c *gin.Context) {
	count, err := s.identities.RevokeOtherSessions(c.Request.Context(), currentUserID(c), currentSessionID(c))
	if err != nil {
		s.logger.Error("failed to revoke sessions", zap.Error(err))
		responses.Internal(c)
		return
	}
	responses.Success(c, gin.H{"revoked": count})
}
