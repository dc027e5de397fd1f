package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/redis"
)

// kv is the slice of the redis client the store needs.
type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SessionKey(sessionID string) string
}

// Store keeps live conversation state in Redis, one JSON document per
// session, refreshed with a sliding TTL on every save.
type Store struct {
	kv  kv
	ttl time.Duration
}

func NewStore(client kv, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "redis client required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{kv: client, ttl: ttl}, nil
}

// Load returns the session's order state, or nil when the session is new
// or has expired.
func (s *Store) Load(ctx context.Context, sessionID string) (*engine.OrderState, error) {
	raw, err := s.kv.Get(ctx, s.kv.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}

	var state engine.OrderState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode session state")
	}
	return &state, nil
}

// Save writes the state back and slides the TTL.
func (s *Store) Save(ctx context.Context, state *engine.OrderState) error {
	if state == nil || state.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "state with session id required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session state")
	}
	if err := s.kv.Set(ctx, s.kv.SessionKey(state.SessionID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}
