package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionKeyPrefix      = "session:"
	verificationKeyPrefix = "verify:"

	SessionTTL        = 7 * 24 * time.Hour
	VerificationTTL   = 24 * time.Hour
	bcryptHashCost    = 12
	sessionTokenBytes = 32
	verifyTokenBytes  = 32
	maxPasswordLength = 72 // bcrypt input limit
	minPasswordLength = 8
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrPasswordRequirement = errors.New("password does not meet requirements")
)

// AuthServiceInterface is the surface handlers and middleware depend on.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (string, error)
	GetSession(ctx context.Context, token string) (uuid.UUID, error)
	DeleteSession(ctx context.Context, token string) error
	CreateVerificationToken(ctx context.Context, userID uuid.UUID) (string, error)
	ConsumeVerificationToken(ctx context.Context, token string) (uuid.UUID, error)
}

// AuthService issues bcrypt password hashes and opaque session and
// verification tokens stored in Redis with a TTL.
type AuthService struct {
	redis RedisClient
}

func NewAuthService(redis RedisClient) *AuthService {
	return &AuthService{redis: redis}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return "", ErrPasswordRequirement
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptHashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := randomToken(sessionTokenBytes)
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+token, userID.String(), SessionTTL); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

func (s *AuthService) GetSession(ctx context.Context, token string) (uuid.UUID, error) {
	value, err := s.redis.Get(ctx, sessionKeyPrefix+token)
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading session: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}

	// Sliding expiry: active sessions stay alive.
	_ = s.redis.Expire(ctx, sessionKeyPrefix+token, SessionTTL)
	return userID, nil
}

func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	return s.redis.Del(ctx, sessionKeyPrefix+token)
}

func (s *AuthService) CreateVerificationToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := randomToken(verifyTokenBytes)
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, verificationKeyPrefix+token, userID.String(), VerificationTTL); err != nil {
		return "", fmt.Errorf("storing verification token: %w", err)
	}
	return token, nil
}

func (s *AuthService) ConsumeVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	key := verificationKeyPrefix + token
	value, err := s.redis.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrInvalidToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading verification token: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	if err := s.redis.Del(ctx, key); err != nil {
		return uuid.Nil, fmt.Errorf("consuming verification token: %w", err)
	}
	return userID, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
