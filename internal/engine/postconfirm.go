package engine

import (
	"fmt"
	"regexp"
)

var (
	newOrderRe = regexp.MustCompile(`\b(new order|another order|order again|start (a new|another) order|start over)\b`)
	etaRe      = regexp.MustCompile(`\b(when|how long|ready|status|eta|where'?s my)\b`)
	thanksRe   = regexp.MustCompile(`\b(thanks?|thank you|bye|goodbye|see you|later)\b`)
)

// handlePostConfirmation fields everything the customer says after the
// order is locked in. Confirmed orders never mutate; the only way
// forward is a fresh order, which keeps the customer's identity so they
// aren't re-asked who they are.
func handlePostConfirmation(state *OrderState, utterance string) Result {
	c := &state.Checkout

	switch {
	case newOrderRe.MatchString(utterance):
		state.ResetForNewOrder()
		return handoff("Sure thing, let's start a new order! Will this be for pickup or delivery?", DomainDelivery)

	case etaRe.MatchString(utterance):
		eta := pickupETA
		if state.Delivery.OrderType == OrderTypeDelivery {
			eta = deliverETA
		}
		return ask(fmt.Sprintf(
			"Order %s should be ready in about %s from when you placed it.",
			ShortOrderNumber(c.OrderNumber), eta,
		))

	case thanksRe.MatchString(utterance):
		return ask("You're welcome! See you soon.")
	}

	return ask(fmt.Sprintf(
		"Your order %s is confirmed and on its way - I can't change it now, but say \"new order\" to start another one.",
		ShortOrderNumber(c.OrderNumber),
	))
}

// handleCancelled keeps a cancelled order closed. Cancelled is terminal;
// the only way back in is a fresh order.
func handleCancelled(state *OrderState, utterance string) Result {
	if newOrderRe.MatchString(utterance) {
		state.ResetForNewOrder()
		return handoff("Sure thing, let's start a new order! Will this be for pickup or delivery?", DomainDelivery)
	}
	return ask("That order was cancelled - say \"new order\" whenever you'd like to start again.")
}
