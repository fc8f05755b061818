package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"atendo/internal/whatsapp"
)

const credentialKeyPrefix = "atendo:wa:creds:"

// RedisCredentialStore persists opaque session credentials per account. No
// TTL: credentials live until the session is logged out, banned, or the QR
// budget is exhausted, all of which delete the key explicitly.
type RedisCredentialStore struct {
	client *redis.Client
}

// NewRedisCredentialStore creates a RedisCredentialStore.
func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{client: client}
}

// Load returns the stored credentials, or nil when the account has none.
func (s *RedisCredentialStore) Load(ctx context.Context, accountID uint) (whatsapp.Credentials, error) {
	data, err := s.client.Get(ctx, s.key(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return whatsapp.Credentials(data), nil
}

// Save stores the credentials for an account.
func (s *RedisCredentialStore) Save(ctx context.Context, accountID uint, creds whatsapp.Credentials) error {
	if err := s.client.Set(ctx, s.key(accountID), []byte(creds), 0).Err(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Delete removes the credentials for an account. Deleting a missing key is
// not an error.
func (s *RedisCredentialStore) Delete(ctx context.Context, accountID uint) error {
	if err := s.client.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func (s *RedisCredentialStore) key(accountID uint) string {
	return fmt.Sprintf("%s%d", credentialKeyPrefix, accountID)
}
