package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "sessions:token:"
	userKeyPrefix  = "sessions:user:"
)

// Connect opens a Redis client from a redis:// URL or a bare host:port address.
func Connect(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// TokenStore maps access tokens to their paired refresh tokens with a TTL,
// and keeps a per-user index of live access tokens so revoke-all works.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore wraps a Redis client.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Set stores the refresh token under the access token and records the access
// token in the owner's index set. The index expiry only ever grows: ExpireNX
// stamps a fresh set, ExpireGT extends an existing one, and a shorter-lived
// entry (a plain login next to a rememberMe session, or a rotation carrying a
// remaining TTL) never pulls the index in under a longer-lived member.
func (s *TokenStore) Set(ctx context.Context, userID, accessToken, refreshToken string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, tokenKeyPrefix+accessToken, refreshToken, ttl)
		p.SAdd(ctx, userKeyPrefix+userID, accessToken)
		p.ExpireNX(ctx, userKeyPrefix+userID, ttl)
		p.ExpireGT(ctx, userKeyPrefix+userID, ttl)
		return nil
	})
	return err
}

// Get returns the refresh token paired with the access token. The second
// return value is false when no entry exists.
func (s *TokenStore) Get(ctx context.Context, accessToken string) (string, bool, error) {
	value, err := s.client.Get(ctx, tokenKeyPrefix+accessToken).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// TTL reports the remaining lifetime of the entry, or zero when absent.
func (s *TokenStore) TTL(ctx context.Context, accessToken string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, tokenKeyPrefix+accessToken).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Del removes the entry and its index member. Deleting a missing key is not
// an error.
func (s *TokenStore) Del(ctx context.Context, userID, accessToken string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, tokenKeyPrefix+accessToken)
		if userID != "" {
			p.SRem(ctx, userKeyPrefix+userID, accessToken)
		}
		return nil
	})
	return err
}

// UserTokens lists every access token currently indexed for the user.
func (s *TokenStore) UserTokens(ctx context.Context, userID string) ([]string, error) {
	return s.client.SMembers(ctx, userKeyPrefix+userID).Result()
}

// DelAllForUser deletes every indexed entry for the user along with the index
// itself.
func (s *TokenStore) DelAllForUser(ctx context.Context, userID string) error {
	tokens, err := s.UserTokens(ctx, userID)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, token := range tokens {
			p.Del(ctx, tokenKeyPrefix+token)
		}
		p.Del(ctx, userKeyPrefix+userID)
		return nil
	})
	return err
}
