package identities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/pkg/models"
)

// Common identity errors surfaced to the API layer.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidTOTPCode    = errors.New("invalid verification code")
	ErrMFAAlreadyEnabled  = errors.New("two-factor authentication already enabled")
	ErrMFANotEnabled      = errors.New("two-factor authentication not enabled")
)

const totpIssuer = "Logistix"

// IdentityService defines account, session and 2FA operations.
type IdentityService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest, userAgent, ip string) (*models.LoginResponse, error)
	Verify2FA(ctx context.Context, userID uuid.UUID, code, userAgent, ip string) (*models.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (userID, sessionID uuid.UUID, err error)
	Logout(ctx context.Context, sessionID uuid.UUID) error

	Sessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error
	RevokeOtherSessions(ctx context.Context, userID, currentSessionID uuid.UUID) (int, error)

	Setup2FA(ctx context.Context, userID uuid.UUID) (secret, otpauthURL string, err error)
	Enable2FA(ctx context.Context, userID uuid.UUID, code string) error
	Disable2FA(ctx context.Context, userID uuid.UUID, password string) error
}

// Service implements IdentityService over GORM with an optional redis
// revocation cache.
type Service struct {
	logger          *zap.Logger
	db              *gorm.DB
	redis           *redis.Client
	jwtSecret       []byte
	tokenExpiration time.Duration
}

// NewService creates a new IdentityService. redisClient may be nil; session
// revocation then falls back to database lookups.
func NewService(logger *zap.Logger, db *gorm.DB, redisClient *redis.Client, jwtSecret string, expirationHours int) (*Service, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	return &Service{
		logger:          logger.Named("identities"),
		db:              db,
		redis:           redisClient,
		jwtSecret:       []byte(jwtSecret),
		tokenExpiration: time.Duration(expirationHours) * time.Hour,
	}, nil
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", req.Email, req.Username).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("email or username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hashed),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DisplayName:  req.Username,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login authenticates by email or username. MFA-enabled accounts get a
// Requires2FA response instead of a token.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest, userAgent, ip string) (*models.LoginResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", req.Login, req.Login).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		return &models.LoginResponse{Requires2FA: true, UserID: user.ID}, nil
	}
	return s.openSession(ctx, &user, userAgent, ip)
}

// Verify2FA completes a pending MFA login.
func (s *Service) Verify2FA(ctx context.Context, userID uuid.UUID, code, userAgent, ip string) (*models.LoginResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.MFAEnabled {
		return nil, ErrMFANotEnabled
	}
	if !totp.Validate(code, user.MFASecret) {
		return nil, ErrInvalidTOTPCode
	}
	return s.openSession(ctx, &user, userAgent, ip)
}

func (s *Service) openSession(ctx context.Context, user *models.User, userAgent, ip string) (*models.LoginResponse, error) {
	now := time.Now()
	session := &models.Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		UserAgent:  userAgent,
		IPAddress:  ip,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.tokenExpiration),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.signToken(user.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		User:      user,
		Token:     token,
		SessionID: session.ID,
	}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

func (s *Service) signToken(userID, sessionID uuid.UUID, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    totpIssuer,
		},
		SessionID: sessionID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses a bearer token and checks its session is not revoked.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (uuid.UUID, uuid.UUID, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, ErrInvalidToken
	}

	revoked, err := s.isRevoked(ctx, sessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if revoked {
		return uuid.Nil, uuid.Nil, ErrSessionRevoked
	}
	return userID, sessionID, nil
}

// Logout revokes the session behind a token.
func (s *Service) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.revoke(ctx, sessionID)
}

// Sessions lists a user's live sessions, newest first.
func (s *Service) Sessions(ctx context.Context, userID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession revokes one of the user's own sessions.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	var session models.Session
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to find session: %w", err)
	}
	return s.revoke(ctx, session.ID)
}

// RevokeOtherSessions revokes every live session except the current one and
// returns how many were revoked.
func (s *Service) RevokeOtherSessions(ctx context.Context, userID, currentSessionID uuid.UUID) (int, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND id <> ? AND revoked_at IS NULL", userID, currentSessionID).
		Find(&sessions).Error; err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, session := range sessions {
		if err := s.revoke(ctx, session.ID); err != nil {
			return 0, err
		}
	}
	return len(sessions), nil
}

func (s *Service) revoke(ctx context.Context, sessionID uuid.UUID) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", now)
	if res.Error != nil {
		return fmt.Errorf("failed to revoke session: %w", res.Error)
	}

	if s.redis != nil {
		key := revocationKey(sessionID)
		if err := s.redis.Set(ctx, key, "1", s.tokenExpiration).Err(); err != nil {
			// Revocation stays effective through the database fallback.
			s.logger.Warn("failed to cache session revocation", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) isRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	if s.redis != nil {
		n, err := s.redis.Exists(ctx, revocationKey(sessionID)).Result()
		if err == nil {
			if n > 0 {
				return true, nil
			}
			// Cache miss still needs the database check: the entry may have
			// been written before redis was available.
		} else {
			s.logger.Warn("revocation cache lookup failed", zap.Error(err))
		}
	}

	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if session.RevokedAt != nil || session.ExpiresAt.Before(time.Now()) {
		return true, nil
	}
	return false, nil
}

func revocationKey(sessionID uuid.UUID) string {
	return "session:revoked:" + sessionID.String()
}

// Setup2FA generates a TOTP secret for the user and stores it pending
// verification via Enable2FA.
func (s *Service) Setup2FA(ctx context.Context, userID uuid.UUID) (string, string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return "", "", fmt.Errorf("failed to find user: %w", err)
	}
	if user.MFAEnabled {
		return "", "", ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).
		Update("mfa_secret", key.Secret()).Error; err != nil {
		return "", "", fmt.Errorf("failed to store totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// Enable2FA verifies the first code against the pending secret and turns MFA on.
func (s *Service) Enable2FA(ctx context.Context, userID uuid.UUID, code string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if user.MFASecret == "" || !totp.Validate(code, user.MFASecret) {
		return ErrInvalidTOTPCode
	}
	if err := s.db.WithContext(ctx).Model(&user).
		Update("mfa_enabled", true).Error; err != nil {
		return fmt.Errorf("failed to enable 2fa: %w", err)
	}
	s.logger.Info("2fa enabled", zap.String("user_id", userID.String()))
	return nil
}

// Disable2FA turns MFA off after re-checking the account password.
func (s *Service) Disable2FA(ctx context.Context, userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if !user.MFAEnabled {
		return ErrMFANotEnabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	updates := map[string]interface{}{"mfa_enabled": false, "mfa_secret": ""}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to disable 2fa: %w", err)
	}
	s.logger.Info("2fa disabled", zap.String("user_id", userID.String()))
	return nil
}
