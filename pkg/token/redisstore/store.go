// Package redisstore implements token.Store on Redis.
//
// Tokens live under a primary key per (purpose, email) with a secondary
// value index for lookup by token value. Keys carry a Redis TTL with a
// grace window past the token's own expiry so that validation shortly after
// expiry still reports "expired" rather than "not found"; Redis eventually
// reclaims stale entries, there is no sweep of our own.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authkit/pkg/token"
)

const keyPrefix = "authkit:token"

// gracePeriod extends the Redis TTL beyond the token expiry.
const gracePeriod = 24 * time.Hour

// Store is a Redis-backed token store.
type Store struct {
	client redis.UniversalClient
}

// New creates a token store on the given Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func emailKey(purpose token.Purpose, email string) string {
	return fmt.Sprintf("%s:%s:email:%s", keyPrefix, purpose, email)
}

func valueKey(purpose token.Purpose, value string) string {
	return fmt.Sprintf("%s:%s:value:%s", keyPrefix, purpose, value)
}

func (s *Store) Save(ctx context.Context, t token.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	ttl := time.Until(t.ExpiresAt) + gracePeriod

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, emailKey(t.Purpose, t.Email), data, ttl)
	pipe.Set(ctx, valueKey(t.Purpose, t.Value), t.Email, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *Store) FindByValue(ctx context.Context, value string, purpose token.Purpose) (*token.Token, error) {
	email, err := s.client.Get(ctx, valueKey(purpose, value)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, token.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token value: %w", err)
	}

	t, err := s.FindByEmail(ctx, email, purpose)
	if err != nil {
		return nil, err
	}
	// The value index can outlive a superseded token; only the current
	// token for the pair is live.
	if t.Value != value {
		return nil, token.ErrTokenNotFound
	}
	return t, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string, purpose token.Purpose) (*token.Token, error) {
	data, err := s.client.Get(ctx, emailKey(purpose, email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, token.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	var t token.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &t, nil
}

func (s *Store) DeleteByEmail(ctx context.Context, email string, purpose token.Purpose) error {
	t, err := s.FindByEmail(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, token.ErrTokenNotFound) {
			return nil
		}
		return err
	}
	return s.Delete(ctx, *t)
}

func (s *Store) Delete(ctx context.Context, t token.Token) error {
	keys := []string{valueKey(t.Purpose, t.Value)}

	// drop the primary record only while it still holds this value, so a
	// stale handle cannot take out a superseding token
	cur, err := s.FindByEmail(ctx, t.Email, t.Purpose)
	switch {
	case err == nil:
		if cur.Value == t.Value {
			keys = append(keys, emailKey(t.Purpose, t.Email))
		}
	case errors.Is(err, token.ErrTokenNotFound):
	default:
		return err
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Compile-time interface assertion
var _ token.Store = (*Store)(nil)
