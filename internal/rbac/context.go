package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveContext records which held role a principal is currently "acting
// as". It is presentation state only: authorization always uses the full
// additive union, never the active context.
type ActiveContext struct {
	PrincipalID int64     `json:"principal_id"`
	RoleName    string    `json:"role_name"`
	SwitchedAt  time.Time `json:"switched_at"`
}

// ContextStore keeps active contexts in Redis, scoped by principal with a
// session-like TTL. Contexts are ephemeral and never touch the assignment
// table.
type ContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewContextStore constructs a ContextStore.
func NewContextStore(client *redis.Client, ttl time.Duration) *ContextStore {
	return &ContextStore{client: client, ttl: ttl}
}

// Set stores the active context for its principal.
func (s *ContextStore) Set(ctx context.Context, active ActiveContext) error {
	data, err := json.Marshal(active)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, contextKey(active.PrincipalID), data, s.ttl).Err()
}

// Get returns the principal's active context, or nil when none is set.
func (s *ContextStore) Get(ctx context.Context, principalID int64) (*ActiveContext, error) {
	data, err := s.client.Get(ctx, contextKey(principalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var active ActiveContext
	if err := json.Unmarshal(data, &active); err != nil {
		return nil, err
	}
	return &active, nil
}

// Clear removes any active context for the principal.
func (s *ContextStore) Clear(ctx context.Context, principalID int64) error {
	err := s.client.Del(ctx, contextKey(principalID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func contextKey(principalID int64) string {
	return "active_context:" + strconv.FormatInt(principalID, 10)
}
