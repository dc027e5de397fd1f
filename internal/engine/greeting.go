package engine

import (
	"context"
	"fmt"
	"regexp"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

var (
	hoursRe    = regexp.MustCompile(`\b(hours?|open|close|closing|when (are you|do you))\b`)
	locationRe = regexp.MustCompile(`\b(where|location|address of|directions|find you)\b`)
	helpRe     = regexp.MustCompile(`\b(help|what can you do|how does this work|menu)\b`)
)

// greetingHandler opens the conversation and answers storefront
// questions (hours, location, help) without advancing the order.
type greetingHandler struct {
	store StoreInfo
}

func NewGreetingHandler(store StoreInfo) (Handler, error) {
	if store.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "store name is required")
	}
	return &greetingHandler{store: store}, nil
}

func (h *greetingHandler) Domain() Domain { return DomainGreeting }

func (h *greetingHandler) AwaitingField(_ *OrderState) string { return "" }

func (h *greetingHandler) Invoke(_ context.Context, state *OrderState, utterance string) (Result, error) {
	// Informational questions answer in place and leave the flow alone.
	switch {
	case hoursRe.MatchString(utterance):
		return ask(fmt.Sprintf("We're open %s. Anything I can get started for you?", h.store.Hours)), nil
	case locationRe.MatchString(utterance):
		return ask(fmt.Sprintf("You'll find us at %s. Want to place a pickup or delivery order?", h.store.Address)), nil
	case helpRe.MatchString(utterance):
		return ask("I can take your bagel and coffee order, for pickup or delivery. Just tell me what you'd like!"), nil
	}

	// Fulfillment mentioned up front short-circuits the question.
	if mentionsDelivery(utterance) {
		state.Delivery.OrderType = OrderTypeDelivery
		return cascade("", DomainDelivery), nil
	}
	if mentionsPickup(utterance) {
		state.Delivery.OrderType = OrderTypePickup
		state.Delivery.LocationConfirmed = true
		return cascade(fmt.Sprintf("Pickup it is - we're at %s.", h.store.Address), DomainBagel), nil
	}

	// Jumping straight into an order skips the pleasantries. A drink
	// mention is remembered for after fulfillment is settled.
	if mentionsBagel(utterance) || mentionsDrink(utterance) {
		if mentionsDrink(utterance) {
			state.Defer(DomainDrink)
		}
		return handoff("Great! Will this be for pickup or delivery?", DomainDelivery), nil
	}

	return handoff(
		fmt.Sprintf("Hey there! Welcome to %s. Will this be for pickup or delivery?", h.store.Name),
		DomainDelivery,
	), nil
}
