package chat

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/internal/notify"
	"github.com/bagelworks/orderbot-backend/pkg/db/models"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubStore struct {
	states  map[string]*engine.OrderState
	saveErr error
	saves   int
}

func newStubStore() *stubStore {
	return &stubStore{states: make(map[string]*engine.OrderState)}
}

func (s *stubStore) Load(_ context.Context, sessionID string) (*engine.OrderState, error) {
	return s.states[sessionID], nil
}

func (s *stubStore) Save(_ context.Context, state *engine.OrderState) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	cp, err := state.Clone()
	if err != nil {
		return err
	}
	s.states[state.SessionID] = cp
	return nil
}

type stubRepo struct {
	rows    map[string]*models.ConfirmedOrder
	err     error
	inserts int
}

func newStubRepo() *stubRepo {
	return &stubRepo{rows: make(map[string]*models.ConfirmedOrder)}
}

func (r *stubRepo) PersistConfirmedOrder(_ context.Context, state *engine.OrderState) (*models.ConfirmedOrder, error) {
	if r.err != nil {
		return nil, r.err
	}
	if row, ok := r.rows[state.Checkout.OrderNumber]; ok {
		return row, nil
	}
	row := &models.ConfirmedOrder{ID: uuid.New(), OrderNumber: state.Checkout.OrderNumber}
	r.rows[state.Checkout.OrderNumber] = row
	r.inserts++
	return row, nil
}

type stubNotifier struct {
	sent []notify.Confirmation
	err  error
}

func (n *stubNotifier) SendConfirmation(_ context.Context, c notify.Confirmation) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, c)
	return nil
}

type stubEvents struct {
	published [][]engine.Action
	err       error
}

func (e *stubEvents) PublishActions(_ context.Context, _ string, actions []engine.Action) error {
	if e.err != nil {
		return e.err
	}
	e.published = append(e.published, actions)
	return nil
}

type stubCatalog struct{}

func (stubCatalog) BasePrice(category, _ string) float64 {
	if category == "bagel" {
		return 2.50
	}
	return 4.00
}
func (stubCatalog) ModifierPrice(string) float64 { return 1.50 }
func (stubCatalog) InStock(string, string) bool  { return true }

type noopClassifier struct{}

func (noopClassifier) Classify(context.Context, string, engine.Snapshot) (engine.Intent, error) {
	return engine.IntentUnknown, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "chat-test", Level: zerolog.Disabled, Output: io.Discard})
}

func testOrchestrator(t *testing.T) *engine.Orchestrator {
	t.Helper()
	store := engine.StoreInfo{Name: "The Bagel Shop", Address: "123 Main Street", Hours: "6am to 3pm"}
	pricing := engine.PricingConfig{CityTaxRate: 0.045, StateTaxRate: 0.04, DeliveryFee: 2.99}

	greeting, err := engine.NewGreetingHandler(store)
	if err != nil {
		t.Fatalf("greeting: %v", err)
	}
	delivery, err := engine.NewDeliveryHandler(store, engine.DeliveryOptions{})
	if err != nil {
		t.Fatalf("delivery: %v", err)
	}
	bagel, err := engine.NewBagelHandler(stubCatalog{})
	if err != nil {
		t.Fatalf("bagel: %v", err)
	}
	drink, err := engine.NewDrinkHandler(stubCatalog{})
	if err != nil {
		t.Fatalf("drink: %v", err)
	}
	checkout, err := engine.NewCheckoutHandler(stubCatalog{}, pricing, store)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	registry, err := engine.NewRegistry(greeting, delivery, bagel, drink, checkout)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	orch, err := engine.NewOrchestrator(registry, noopClassifier{}, testLogger())
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return orch
}

func newTestService(t *testing.T, store *stubStore, repo *stubRepo, notifier *stubNotifier, events *stubEvents) Service {
	t.Helper()
	svc, err := NewService(testOrchestrator(t), store, repo, notifier, events, nil, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

// confirmedReadySession seeds a session one utterance away from
// confirmation.
func confirmedReadySession(store *stubStore, sessionID string) {
	state := engine.NewOrderState(sessionID)
	state.CustomerName = "Sam"
	state.CustomerPhone = "5551234567"
	state.Delivery.OrderType = engine.OrderTypePickup
	state.Delivery.LocationConfirmed = true
	state.Bagels.Items = []engine.BagelItem{{
		Type: "everything", Quantity: 2, Toasted: engine.TriYes,
		Spread: "cream cheese", Extras: []string{}, UnitPrice: 4.00,
	}}
	state.CurrentDomain = engine.DomainCheckout
	state.Checkout.Reviewed = true
	state.Checkout.Awaiting = "contact"
	store.states[sessionID] = state
}

func TestProcessTurnNewSessionStartsConversation(t *testing.T) {
	store := newStubStore()
	events := &stubEvents{}
	svc := newTestService(t, store, newStubRepo(), &stubNotifier{}, events)

	res, err := svc.ProcessTurn(context.Background(), TurnInput{SessionID: "s1", Utterance: "hi"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Reply == "" {
		t.Fatal("empty reply")
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}
	if len(res.Actions) != 1 || res.Actions[0].Type != engine.ActionConversation {
		t.Fatalf("actions = %+v", res.Actions)
	}
	if len(res.Suggestions) == 0 {
		t.Fatal("no suggestions for a fresh session")
	}
}

func TestProcessTurnConfirmationPersistsOnceAndNotifies(t *testing.T) {
	store := newStubStore()
	repo := newStubRepo()
	notifier := &stubNotifier{}
	events := &stubEvents{}
	svc := newTestService(t, store, repo, notifier, events)
	confirmedReadySession(store, "s1")
	ctx := context.Background()

	res, err := svc.ProcessTurn(ctx, TurnInput{SessionID: "s1", Utterance: "I'll pay cash at the counter"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if repo.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", repo.inserts)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Phone != "5551234567" {
		t.Fatalf("notifications = %+v", notifier.sent)
	}
	number := store.states["s1"].Checkout.OrderNumber
	if number == "" {
		t.Fatal("no order number in saved state")
	}

	hasConfirm := false
	for _, a := range res.Actions {
		if a.Type == engine.ActionConfirmOrder {
			hasConfirm = true
		}
	}
	if !hasConfirm {
		t.Fatalf("actions = %+v, want confirm_order", res.Actions)
	}

	// A follow-up turn on the confirmed session never writes again.
	_, err = svc.ProcessTurn(ctx, TurnInput{SessionID: "s1", Utterance: "confirm my order"})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if repo.inserts != 1 {
		t.Fatalf("inserts after retry = %d, want 1", repo.inserts)
	}
	if store.states["s1"].Checkout.OrderNumber != number {
		t.Fatal("order number changed across turns")
	}
}

func TestProcessTurnPersistFailureAbortsTurn(t *testing.T) {
	store := newStubStore()
	repo := newStubRepo()
	repo.err = errors.New("db down")
	svc := newTestService(t, store, repo, &stubNotifier{}, &stubEvents{})
	confirmedReadySession(store, "s1")

	_, err := svc.ProcessTurn(context.Background(), TurnInput{SessionID: "s1", Utterance: "cash please"})
	if err == nil {
		t.Fatal("turn succeeded with a dead order store")
	}
	if store.saves != 0 {
		t.Fatal("session saved despite failed persist; retry would be impossible")
	}
	if store.states["s1"].Checkout.Confirmed {
		t.Fatal("stored session shows confirmed without a durable row")
	}
}

func TestProcessTurnNotifierFailureIsSwallowed(t *testing.T) {
	store := newStubStore()
	notifier := &stubNotifier{err: errors.New("relay down")}
	svc := newTestService(t, store, newStubRepo(), notifier, &stubEvents{})
	confirmedReadySession(store, "s1")

	res, err := svc.ProcessTurn(context.Background(), TurnInput{SessionID: "s1", Utterance: "cash please"})
	if err != nil {
		t.Fatalf("notification failure leaked: %v", err)
	}
	if !store.states["s1"].Checkout.Confirmed {
		t.Fatal("order not confirmed")
	}
	if res.Reply == "" {
		t.Fatal("empty reply")
	}
}

func TestProcessTurnPublishFailureIsSwallowed(t *testing.T) {
	store := newStubStore()
	events := &stubEvents{err: errors.New("topic gone")}
	svc := newTestService(t, store, newStubRepo(), &stubNotifier{}, events)

	_, err := svc.ProcessTurn(context.Background(), TurnInput{SessionID: "s1", Utterance: "hello"})
	if err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
}

func TestProcessTurnValidation(t *testing.T) {
	svc := newTestService(t, newStubStore(), newStubRepo(), &stubNotifier{}, &stubEvents{})
	ctx := context.Background()

	if _, err := svc.ProcessTurn(ctx, TurnInput{Utterance: "hi"}); err == nil {
		t.Fatal("accepted empty session id")
	}
	if _, err := svc.ProcessTurn(ctx, TurnInput{SessionID: "s1"}); err == nil {
		t.Fatal("accepted empty utterance")
	}
}

func TestGetSessionMissing(t *testing.T) {
	svc := newTestService(t, newStubStore(), newStubRepo(), &stubNotifier{}, &stubEvents{})

	if _, err := svc.GetSession(context.Background(), "ghost"); err == nil {
		t.Fatal("missing session did not error")
	}
}
