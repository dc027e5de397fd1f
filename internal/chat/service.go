package chat

import (
	"context"
	"strings"
	"time"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/internal/notify"
	"github.com/bagelworks/orderbot-backend/pkg/db/models"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
	"github.com/bagelworks/orderbot-backend/pkg/metrics"
)

const maxUtteranceLen = 1000

// SessionStore is the slice of the session layer the turn service uses.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*engine.OrderState, error)
	Save(ctx context.Context, state *engine.OrderState) error
}

// OrderRepository persists confirmed orders durably.
type OrderRepository interface {
	PersistConfirmedOrder(ctx context.Context, state *engine.OrderState) (*models.ConfirmedOrder, error)
}

// ActionPublisher streams inferred actions to downstream consumers.
type ActionPublisher interface {
	PublishActions(ctx context.Context, sessionID string, actions []engine.Action) error
}

// TurnInput is one customer message.
type TurnInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Utterance string `json:"utterance" validate:"required"`
}

// TurnResult is everything a client needs to render the turn.
type TurnResult struct {
	SessionID   string             `json:"session_id"`
	Reply       string             `json:"reply"`
	Actions     []engine.Action    `json:"actions"`
	Suggestions []string           `json:"suggestions"`
	State       *engine.OrderState `json:"state"`
}

// Service runs conversational turns end to end: load state, orchestrate,
// persist, and fan side effects out.
type Service interface {
	ProcessTurn(ctx context.Context, input TurnInput) (*TurnResult, error)
	GetSession(ctx context.Context, sessionID string) (*engine.OrderState, error)
	Suggestions(ctx context.Context, sessionID string) ([]string, error)
}

type service struct {
	orch     *engine.Orchestrator
	store    SessionStore
	repo     OrderRepository
	notifier notify.Sender
	events   ActionPublisher
	turns    *metrics.TurnMetrics
	log      *logger.Logger
}

// NewService wires the turn pipeline. The notifier, event stream, and
// metrics are optional; everything else is required.
func NewService(
	orch *engine.Orchestrator,
	store SessionStore,
	repo OrderRepository,
	notifier notify.Sender,
	events ActionPublisher,
	turns *metrics.TurnMetrics,
	log *logger.Logger,
) (Service, error) {
	if orch == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orchestrator required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session store required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &service{
		orch:     orch,
		store:    store,
		repo:     repo,
		notifier: notifier,
		events:   events,
		turns:    turns,
		log:      log,
	}, nil
}

func (s *service) ProcessTurn(ctx context.Context, input TurnInput) (*TurnResult, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	utterance := strings.TrimSpace(input.Utterance)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if utterance == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utterance required")
	}
	if len(utterance) > maxUtteranceLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "utterance too long")
	}
	ctx = s.log.WithSessionID(ctx, sessionID)

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = engine.NewOrderState(sessionID)
	}

	before, err := state.Clone()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "snapshot state")
	}

	start := time.Now()
	reply, err := s.orch.Process(ctx, state, utterance)
	if err != nil {
		s.turns.IncFailure(string(state.CurrentDomain))
		return nil, err
	}
	s.turns.ObserveTurn(string(state.CurrentDomain), time.Since(start))

	actions := engine.InferActions(before, state)

	// Confirmation must land durably before the session saves; losing
	// the row would mean a confirmed order nobody can fulfill. A failed
	// persist aborts the turn so the customer can retry it.
	if !before.Checkout.Confirmed && state.Checkout.Confirmed {
		if _, err := s.repo.PersistConfirmedOrder(ctx, state); err != nil {
			s.log.Error(ctx, "persisting confirmed order", err)
			return nil, err
		}
		s.turns.IncConfirmation()
		s.sendConfirmation(ctx, state)
	}

	if err := s.store.Save(ctx, state); err != nil {
		return nil, err
	}

	if s.events != nil {
		if err := s.events.PublishActions(ctx, sessionID, actions); err != nil {
			s.log.Warn(ctx, "publishing actions: "+err.Error())
		}
	}

	return &TurnResult{
		SessionID:   sessionID,
		Reply:       reply,
		Actions:     actions,
		Suggestions: engine.SuggestedReplies(state),
		State:       state,
	}, nil
}

func (s *service) GetSession(ctx context.Context, sessionID string) (*engine.OrderState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
	}
	return state, nil
}

func (s *service) Suggestions(ctx context.Context, sessionID string) ([]string, error) {
	state, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return engine.SuggestedReplies(state), nil
}

// sendConfirmation is best-effort; the order is already durable.
func (s *service) sendConfirmation(ctx context.Context, state *engine.OrderState) {
	err := s.notifier.SendConfirmation(ctx, notify.Confirmation{
		OrderNumber: state.Checkout.OrderNumber,
		ShortCode:   engine.ShortOrderNumber(state.Checkout.OrderNumber),
		Customer:    state.CustomerName,
		Phone:       state.CustomerPhone,
		Email:       state.CustomerEmail,
		OrderType:   string(state.Delivery.OrderType),
		Total:       state.Checkout.Total,
	})
	if err != nil {
		s.log.Warn(ctx, "sending confirmation: "+err.Error())
	}
}
