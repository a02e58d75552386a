package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionRepository keeps the per-session impersonation marker in Redis. The
// marker is keyed by the acting (real) user so it survives across requests of
// the same browser session and nothing else.
type SessionRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(client *redis.Client, logger *zap.Logger) *SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{client: client, logger: logger}
}

func impersonationKey(actorID string) string {
	return "impersonate:" + actorID
}

// SetImpersonation records the target user the actor impersonates.
func (r *SessionRepository) SetImpersonation(ctx context.Context, actorID, targetID string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("session store unavailable")
	}
	if err := r.client.Set(ctx, impersonationKey(actorID), targetID, ttl).Err(); err != nil {
		return fmt.Errorf("set impersonation marker: %w", err)
	}
	return nil
}

// GetImpersonation returns the impersonation target for the actor, or empty
// when no marker is set.
func (r *SessionRepository) GetImpersonation(ctx context.Context, actorID string) (string, error) {
	if r.client == nil {
		return "", nil
	}
	target, err := r.client.Get(ctx, impersonationKey(actorID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("get impersonation marker: %w", err)
	}
	return target, nil
}

// ClearImpersonation removes the marker. Clearing an absent marker is a no-op.
func (r *SessionRepository) ClearImpersonation(ctx context.Context, actorID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, impersonationKey(actorID)).Err(); err != nil {
		return fmt.Errorf("clear impersonation marker: %w", err)
	}
	return nil
}
