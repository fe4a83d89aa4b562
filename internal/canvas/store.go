package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LayoutTTL matches the wizard session lifetime.
const LayoutTTL = 24 * time.Hour

// Store persists canvas layouts in Redis.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("canvas:layout:%s", sessionID)
}

// Get retrieves the layout for a session, returning an empty layout if none
// has been saved yet.
func (s *Store) Get(ctx context.Context, sessionID string) (*Layout, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return NewLayout(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("canvas: get layout: %w", err)
	}

	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("canvas: unmarshal layout: %w", err)
	}
	return &layout, nil
}

// Set saves a layout.
func (s *Store) Set(ctx context.Context, layout *Layout) error {
	data, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("canvas: marshal layout: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(layout.SessionID), data, LayoutTTL).Err(); err != nil {
		return fmt.Errorf("canvas: set layout: %w", err)
	}
	return nil
}
