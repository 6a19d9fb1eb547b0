package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/bankledger/internal/usecase"
)

const selectionPrefix = "session:account:"

// SelectionStore implements usecase.SelectionStore using Redis keys that
// expire with the session.
type SelectionStore struct {
	client *redis.Client
	prefix string
}

// NewSelectionStore creates a new SelectionStore.
func NewSelectionStore(client *redis.Client) *SelectionStore {
	return &SelectionStore{
		client: client,
		prefix: selectionPrefix,
	}
}

// Get returns the account selected by the session.
func (s *SelectionStore) Get(ctx context.Context, sessionID string) (string, error) {
	accountID, err := s.client.Get(ctx, s.prefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", usecase.ErrNoAccountSelected
	}
	return accountID, err
}

// Set stores the selection with TTL.
func (s *SelectionStore) Set(ctx context.Context, sessionID, accountID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+sessionID, accountID, ttl).Err()
}

// Clear removes the selection.
func (s *SelectionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}
