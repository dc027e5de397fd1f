package engine

import (
	"context"
	"strings"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
)

// Snapshot is the slim view of conversation state handed to an external
// classifier.
type Snapshot struct {
	SessionID     string    `json:"session_id"`
	CurrentDomain Domain    `json:"current_domain"`
	Awaiting      string    `json:"awaiting,omitempty"`
	HasItems      bool      `json:"has_items"`
	OrderType     OrderType `json:"order_type,omitempty"`
}

// Classifier resolves utterances the regex table can't. Implementations
// call out over the network, so failures are expected; the orchestrator
// degrades to IntentUnknown rather than failing the turn.
type Classifier interface {
	Classify(ctx context.Context, utterance string, snap Snapshot) (Intent, error)
}

// Orchestrator is the single entry point for a turn: it classifies the
// utterance, routes it to the owning domain handler, and chains
// completed domains within the same turn up to a bounded depth.
type Orchestrator struct {
	registry   *Registry
	classifier Classifier
	log        *logger.Logger
}

func NewOrchestrator(registry *Registry, classifier Classifier, log *logger.Logger) (*Orchestrator, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "registry is required")
	}
	if classifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "classifier is required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	return &Orchestrator{registry: registry, classifier: classifier, log: log}, nil
}

// Process runs one conversational turn against the state, mutating it in
// place, and returns the assistant's reply.
func (o *Orchestrator) Process(ctx context.Context, state *OrderState, raw string) (string, error) {
	utterance := strings.ToLower(strings.TrimSpace(raw))
	state.AddMessage("user", raw)

	if state.Checkout.Confirmed {
		res := handlePostConfirmation(state, utterance)
		state.AddMessage("assistant", res.Message)
		return res.Message, nil
	}
	if state.Status == StatusCancelled {
		res := handleCancelled(state, utterance)
		state.AddMessage("assistant", res.Message)
		return res.Message, nil
	}

	captureGlobalFacts(state, utterance)

	intent := o.classify(ctx, state, utterance)
	target := o.route(intent, state)
	ctx = o.log.WithFields(ctx, map[string]any{
		"session_id": state.SessionID,
		"intent":     string(intent),
		"domain":     string(target),
	})
	state.TransitionTo(target)

	reply := o.invoke(ctx, state, utterance)
	state.AddMessage("assistant", reply)
	return reply, nil
}

// invoke runs the current handler and cascades through completed
// domains. The cascade is capped at the registry size so a routing bug
// can never loop a turn forever.
func (o *Orchestrator) invoke(ctx context.Context, state *OrderState, utterance string) string {
	var parts []string
	input := utterance

	for hop := 0; hop < o.registry.Len(); hop++ {
		handler, ok := o.registry.Get(state.CurrentDomain)
		if !ok {
			o.log.Error(ctx, "no handler for domain", pkgerrors.New(pkgerrors.CodeInternal, string(state.CurrentDomain)))
			return "Sorry, something went wrong on my end - could you say that again?"
		}

		res, err := handler.Invoke(ctx, state, input)
		if err != nil {
			o.log.Error(ctx, "handler invocation failed", err)
			return "Sorry, something went wrong on my end - could you say that again?"
		}
		if res.Message != "" {
			parts = append(parts, res.Message)
		}
		if !res.Completed || res.NextDomain == "" {
			break
		}
		state.TransitionTo(res.NextDomain)
		if res.NeedsUserInput {
			break
		}
		input = ""
	}

	if len(parts) == 0 {
		return "Sorry, I didn't catch that. Could you say it another way?"
	}
	return strings.Join(parts, "\n")
}

// classify prefers the regex table; a domain mid-slot-fill keeps short
// answers for itself, and only idle ambiguity goes out to the external
// classifier.
func (o *Orchestrator) classify(ctx context.Context, state *OrderState, utterance string) Intent {
	if intent := classifyByPattern(utterance); intent != IntentUnknown {
		return intent
	}
	if h, ok := o.registry.Get(state.CurrentDomain); ok && h.AwaitingField(state) != "" {
		return IntentUnknown
	}

	snap := Snapshot{
		SessionID:     state.SessionID,
		CurrentDomain: state.CurrentDomain,
		HasItems:      state.HasItems(),
		OrderType:     state.Delivery.OrderType,
	}
	intent, err := o.classifier.Classify(ctx, utterance, snap)
	if err != nil {
		o.log.Warn(o.log.WithSessionID(ctx, state.SessionID), "external classification failed: "+err.Error())
		return IntentUnknown
	}
	return intent
}

// route resolves the owning domain. Short answers and unknowns stay put,
// and a mention of another orderable while an item is mid-build stays
// with the building domain, which defers it instead of switching.
func (o *Orchestrator) route(intent Intent, state *OrderState) Domain {
	switch intent {
	case IntentAffirmative, IntentNegative, IntentDone, IntentUnknown:
		return state.CurrentDomain
	case IntentOrderDrink:
		if state.CurrentDomain == DomainBagel && state.Bagels.Current != nil {
			return DomainBagel
		}
	case IntentOrderBagel:
		if state.CurrentDomain == DomainDrink && state.Drinks.Current != nil {
			return DomainDrink
		}
	case IntentModifyOrder, IntentRemoveItem:
		if state.CurrentDomain == DomainBagel && state.Bagels.Current != nil {
			return DomainBagel
		}
		if state.CurrentDomain == DomainDrink && state.Drinks.Current != nil {
			return DomainDrink
		}
	}
	if d, ok := DomainFor(intent); ok {
		return d
	}
	return state.CurrentDomain
}

// captureGlobalFacts pulls cross-domain facts out of compound
// utterances before routing, so a single message can carry an item, a
// fulfillment choice and a name at once. Plain one-word answers are left
// for the owning handler.
func captureGlobalFacts(state *OrderState, utterance string) {
	if state.CustomerName == "" {
		if name := extractInlineName(utterance); name != "" {
			state.CustomerName = name
		}
	}
	if state.Delivery.OrderType == OrderTypeUnset && (mentionsBagel(utterance) || mentionsDrink(utterance)) {
		switch {
		case mentionsPickup(utterance):
			state.Delivery.OrderType = OrderTypePickup
			state.Delivery.LocationConfirmed = true
		case mentionsDelivery(utterance):
			state.Delivery.OrderType = OrderTypeDelivery
		}
	}
}
