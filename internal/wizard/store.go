package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionTTL is how long an untouched session survives in Redis.
const SessionTTL = 24 * time.Hour

// submitGuardTTL bounds how long the in-flight submit lock can be held if a
// process dies mid-submission.
const submitGuardTTL = 60 * time.Second

// Store persists wizard sessions in Redis.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("wizard:session:%s", sessionID)
}

func (s *Store) guardKey(sessionID string) string {
	return fmt.Sprintf("wizard:submit:%s", sessionID)
}

// Get retrieves a session. A missing session is ErrSessionNotFound, never a
// fresh default: sessions are explicitly created.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wizard: get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("wizard: unmarshal session: %w", err)
	}
	return &session, nil
}

// Set saves a session and refreshes its TTL.
func (s *Store) Set(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("wizard: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(session.ID), data, SessionTTL).Err(); err != nil {
		return fmt.Errorf("wizard: set session: %w", err)
	}
	return nil
}

// BeginSubmit takes the per-session submission lock. A second call before
// EndSubmit returns ErrSubmitInFlight, so duplicate submit clicks can never
// produce two engine calls.
func (s *Store) BeginSubmit(ctx context.Context, sessionID string) error {
	ok, err := s.redis.SetNX(ctx, s.guardKey(sessionID), "1", submitGuardTTL).Result()
	if err != nil {
		return fmt.Errorf("wizard: acquire submit guard: %w", err)
	}
	if !ok {
		return ErrSubmitInFlight
	}
	return nil
}

// EndSubmit releases the submission lock.
func (s *Store) EndSubmit(ctx context.Context, sessionID string) {
	s.redis.Del(ctx, s.guardKey(sessionID))
}
