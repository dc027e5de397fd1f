package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/bagelworks/orderbot-backend/internal/engine"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

const publishTimeout = 5 * time.Second

// publisher and publishResult wrap the Pub/Sub surface so the event
// stream can be faked in tests.
type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type actionEnvelope struct {
	SessionID  string          `json:"session_id"`
	Actions    []engine.Action `json:"actions"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ActionStream publishes inferred actions to the configured topic.
// Publishing is best-effort; the caller logs failures and moves on.
type ActionStream struct {
	pub publisher
}

func NewActionStream(pub *gcppubsub.Publisher) *ActionStream {
	if pub == nil {
		return nil
	}
	return &ActionStream{pub: &gcpPublisher{Publisher: pub}}
}

func (s *ActionStream) PublishActions(ctx context.Context, sessionID string, actions []engine.Action) error {
	if s == nil || s.pub == nil || len(actions) == 0 {
		return nil
	}

	data, err := json.Marshal(actionEnvelope{
		SessionID:  sessionID,
		Actions:    actions,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode action envelope")
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := s.pub.Publish(publishCtx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"session_id": sessionID,
		},
	})
	if result == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish actions")
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
