package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/exclusive/internal/utils"
)

// TokenCache is the key-value store backing token pairs. The production
// implementation is the Redis TokenStore in internal/cache.
type TokenCache interface {
	Set(ctx context.Context, userID, accessToken, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, accessToken string) (string, bool, error)
	TTL(ctx context.Context, accessToken string) (time.Duration, error)
	Del(ctx context.Context, userID, accessToken string) error
	DelAllForUser(ctx context.Context, userID string) error
}

// SessionService issues, rotates and revokes access/refresh token pairs.
//
// The cache is keyed by the access token itself: a client refreshes by
// presenting its last-issued access token, expired or not, and the refresh
// token never leaves the server. Rotating deletes the old key and re-inserts
// the same refresh token under the new access token with the REMAINING TTL,
// so the absolute session lifetime is fixed at issue time.
type SessionService struct {
	cache                TokenCache
	secret               string
	accessTokenTTL       time.Duration
	refreshTokenTTL      time.Duration
	rememberMeRefreshTTL time.Duration
}

// NewSessionService constructs a SessionService.
func NewSessionService(cache TokenCache, secret string, accessTTL, refreshTTL, rememberMeTTL time.Duration) *SessionService {
	return &SessionService{
		cache:                cache,
		secret:               secret,
		accessTokenTTL:       accessTTL,
		refreshTokenTTL:      refreshTTL,
		rememberMeRefreshTTL: rememberMeTTL,
	}
}

// Issue mints a fresh token pair for the user and stores the pairing in the
// cache. Only the access token is returned.
func (s *SessionService) Issue(ctx context.Context, userID uuid.UUID, email string, rememberMe bool) (string, error) {
	accessToken, err := utils.GenerateAccessToken(s.secret, userID, email, s.accessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	ttl := s.refreshTokenTTL
	if rememberMe {
		ttl = s.rememberMeRefreshTTL
	}

	if err := s.cache.Set(ctx, userID.String(), accessToken, refreshToken, ttl); err != nil {
		return "", fmt.Errorf("store token pair: %w", err)
	}

	return accessToken, nil
}

// Refresh rotates the access token of a live session. The presented token is
// decoded without verifying expiry; the cache lookup on the exact token
// string is the authority. A token whose cache entry is gone cannot be
// replayed to mint a new one.
func (s *SessionService) Refresh(ctx context.Context, oldAccessToken string) (string, error) {
	refreshToken, ok, err := s.cache.Get(ctx, oldAccessToken)
	if err != nil {
		return "", fmt.Errorf("lookup token pair: %w", err)
	}
	if !ok {
		return "", ErrUnauthenticated
	}

	remaining, err := s.cache.TTL(ctx, oldAccessToken)
	if err != nil {
		return "", fmt.Errorf("lookup token ttl: %w", err)
	}

	userID, email, err := utils.DecodeAccessToken(oldAccessToken)
	if err != nil {
		return "", ErrUnauthenticated
	}

	if remaining <= 0 {
		_ = s.cache.Del(ctx, userID.String(), oldAccessToken)
		return "", ErrUnauthenticated
	}

	newAccessToken, err := utils.GenerateAccessToken(s.secret, userID, email, s.accessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	if err := s.cache.Del(ctx, userID.String(), oldAccessToken); err != nil {
		return "", fmt.Errorf("delete rotated token: %w", err)
	}

	// Same refresh token, remaining TTL: rotation never extends the session.
	if err := s.cache.Set(ctx, userID.String(), newAccessToken, refreshToken, remaining); err != nil {
		return "", fmt.Errorf("store rotated token pair: %w", err)
	}

	return newAccessToken, nil
}

// Revoke ends the session identified by the access token. Idempotent.
func (s *SessionService) Revoke(ctx context.Context, accessToken string) error {
	userID := ""
	if id, _, err := utils.DecodeAccessToken(accessToken); err == nil {
		userID = id.String()
	}
	return s.cache.Del(ctx, userID, accessToken)
}

// RevokeAllForUser ends every live session for the user. Called after
// password resets and password changes.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.cache.DelAllForUser(ctx, userID.String())
}
