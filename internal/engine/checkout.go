package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

var (
	cancelRe   = regexp.MustCompile(`\b(cancel|never\s*mind|forget (it|the order)|start over)\b`)
	removeRe   = regexp.MustCompile(`\b(remove|take off|get rid of|drop the)\b`)
	addMoreRe  = regexp.MustCompile(`\b(add|one more|another|also want|forgot)\b`)
	cashRe     = regexp.MustCompile(`\b(cash|at the (counter|store|register)|in person|when i (pick|get))\b`)
	tipRe      = regexp.MustCompile(`\$?(\d+(?:\.\d{1,2})?)\s*(?:dollar\s*)?tip|tip\s*(?:of\s*)?\$?(\d+(?:\.\d{1,2})?)`)
	confirmRe  = regexp.MustCompile(`\b(confirm|place (the )?order|that'?s correct|looks good)\b`)
	changeRe   = regexp.MustCompile(`\b(change|actually|instead|swap|make (it|that))\b`)
	pickupETA  = "10-15 minutes"
	deliverETA = "30-45 minutes"
)

// checkoutHandler reviews the cart, collects the customer's name and a
// contact for the payment link, and confirms the order exactly once.
type checkoutHandler struct {
	catalog Catalog
	pricing PricingConfig
	store   StoreInfo
}

func NewCheckoutHandler(catalog Catalog, pricing PricingConfig, store StoreInfo) (Handler, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog is required")
	}
	return &checkoutHandler{catalog: catalog, pricing: pricing, store: store}, nil
}

func (h *checkoutHandler) Domain() Domain { return DomainCheckout }

func (h *checkoutHandler) AwaitingField(state *OrderState) string {
	if !state.Checkout.Reviewed {
		return ""
	}
	return state.Checkout.Awaiting
}

func (h *checkoutHandler) Invoke(_ context.Context, state *OrderState, utterance string) (Result, error) {
	c := &state.Checkout

	if c.Confirmed {
		return ask(fmt.Sprintf(
			"Your order is already confirmed - order number %s, short code %s.",
			c.OrderNumber, ShortOrderNumber(c.OrderNumber),
		)), nil
	}

	if cancelRe.MatchString(utterance) {
		state.Status = StatusCancelled
		return Result{
			Message:        "No problem, I've cancelled the order. Come back any time!",
			Completed:      true,
			NeedsUserInput: true,
		}, nil
	}

	if amount, ok := parseTip(utterance); ok {
		c.Tip = amount
		c.Reviewed = false
		if state.HasItems() && state.Delivery.OrderType != OrderTypeUnset {
			return h.review(state), nil
		}
	}

	if removeRe.MatchString(utterance) {
		return h.removeItem(state, utterance), nil
	}

	// Wanting more food routes back to the ordering domains and voids
	// the review.
	if addMoreRe.MatchString(utterance) || (changeRe.MatchString(utterance) && c.Awaiting != "name") {
		c.Reviewed = false
		c.Awaiting = ""
		if mentionsDrink(utterance) {
			return handoff("Sure! What would you like to drink?", DomainDrink), nil
		}
		if mentionsBagel(utterance) || addMoreRe.MatchString(utterance) {
			return handoff("Sure! What kind of bagel?", DomainBagel), nil
		}
		return ask("Sure - what would you like to change?"), nil
	}

	if !state.HasItems() {
		return handoff("Your cart is empty so far. What kind of bagel can I get you?", DomainBagel), nil
	}
	if state.Delivery.OrderType == OrderTypeUnset {
		return cascade("", DomainDelivery), nil
	}

	if !c.Reviewed {
		return h.review(state), nil
	}

	switch c.Awaiting {
	case "confirmation":
		if isAffirmative(utterance) || confirmRe.MatchString(utterance) {
			return h.afterReviewApproved(state), nil
		}
		if isNegative(utterance) {
			c.Reviewed = false
			c.Awaiting = ""
			return ask("What would you like to change?"), nil
		}
		return ask("Does everything look good?"), nil

	case "name":
		if name := cleanName(utterance); name != "" {
			if state.CustomerName == "" {
				state.CustomerName = name
			}
			c.Awaiting = "contact"
			return ask(fmt.Sprintf("Thanks %s! Want me to text or email you a payment link, or pay at the counter?", state.CustomerName)), nil
		}
		return ask("Sorry, I didn't catch that. What name should I put on the order?"), nil

	case "contact":
		return h.collectContact(state, utterance), nil
	}

	return h.review(state), nil
}

// review prices the order and reads it back. When the customer already
// introduced themselves the name question is skipped and the review goes
// straight to contact collection.
func (h *checkoutHandler) review(state *OrderState) Result {
	c := &state.Checkout
	h.reprice(state)
	c.Reviewed = true

	summary := h.summary(state)
	if state.CustomerName != "" {
		c.Awaiting = "contact"
		return ask(summary + fmt.Sprintf(
			"\nThanks %s! Want me to text or email you a payment link, or pay at the counter?", state.CustomerName))
	}
	c.Awaiting = "confirmation"
	return ask(summary + "\nDoes everything look good?")
}

func (h *checkoutHandler) afterReviewApproved(state *OrderState) Result {
	c := &state.Checkout
	if state.CustomerName == "" {
		c.Awaiting = "name"
		return ask("Great! What name should I put on the order?")
	}
	c.Awaiting = "contact"
	return ask(fmt.Sprintf("Thanks %s! Want me to text or email you a payment link, or pay at the counter?", state.CustomerName))
}

func (h *checkoutHandler) collectContact(state *OrderState, utterance string) Result {
	c := &state.Checkout

	switch {
	case extractEmail(utterance) != "":
		state.CustomerEmail = extractEmail(utterance)
		c.PaymentMethod = "link"
	case extractPhone(utterance) != "":
		state.CustomerPhone = extractPhone(utterance)
		c.PaymentMethod = "link"
	case cashRe.MatchString(utterance) || isNegative(utterance):
		c.PaymentMethod = "cash"
	default:
		return ask("I can text or email you a payment link - what's the best number or email? Or you can pay at the counter.")
	}
	return h.confirm(state)
}

// confirm is the single place the order flips to confirmed. The stock
// check runs here so a sellout between review and confirmation surfaces
// instead of silently selling air, and the order number is minted at
// most once.
func (h *checkoutHandler) confirm(state *OrderState) Result {
	c := &state.Checkout

	if item, ok := h.outOfStock(state); ok {
		c.Awaiting = ""
		return ask(fmt.Sprintf("Ah, I'm sorry - we just sold out of %s. Want to swap it for something else or remove it?", item))
	}

	h.reprice(state)
	if c.OrderNumber == "" {
		c.OrderNumber = NewOrderNumber()
	}
	c.Confirmed = true
	state.Status = StatusConfirmed

	eta := pickupETA
	where := "ready for pickup at " + h.store.Address
	if state.Delivery.OrderType == OrderTypeDelivery {
		eta = deliverETA
		where = "on its way to " + state.Delivery.FormattedAddress()
	}
	return Result{
		Message: fmt.Sprintf(
			"You're all set! Order %s - just give us the last two digits, %s. It'll be %s in about %s. Total is $%.2f.",
			c.OrderNumber, ShortOrderNumber(c.OrderNumber), where, eta, c.Total,
		),
		Completed:      true,
		NeedsUserInput: true,
	}
}

// removeItem pops the most recent line of the named category and voids
// the review so totals get re-read.
func (h *checkoutHandler) removeItem(state *OrderState, utterance string) Result {
	c := &state.Checkout
	removed := ""

	switch {
	case mentionsDrink(utterance) && len(state.Drinks.Items) > 0:
		last := state.Drinks.Items[len(state.Drinks.Items)-1]
		state.Drinks.Items = state.Drinks.Items[:len(state.Drinks.Items)-1]
		removed = last.Description()
	case mentionsBagel(utterance) && len(state.Bagels.Items) > 0:
		last := state.Bagels.Items[len(state.Bagels.Items)-1]
		state.Bagels.Items = state.Bagels.Items[:len(state.Bagels.Items)-1]
		removed = last.Description()
	default:
		return ask("Which item should I take off - the bagel or the drink?")
	}

	c.Reviewed = false
	c.Awaiting = ""
	if !state.HasItems() {
		return handoff(fmt.Sprintf("Done, removed the %s. Your cart is empty now - what can I get you?", removed), DomainBagel)
	}
	res := h.review(state)
	res.Message = fmt.Sprintf("Done, removed the %s.\n%s", removed, res.Message)
	return res
}

func (h *checkoutHandler) reprice(state *OrderState) {
	c := &state.Checkout
	t := ComputeTotals(state.Subtotal(), state.Delivery.OrderType, c.Tip, h.pricing)
	c.Subtotal = t.Subtotal
	c.CityTax = t.CityTax
	c.StateTax = t.StateTax
	c.DeliveryFee = t.DeliveryFee
	c.Total = t.Total
}

func (h *checkoutHandler) summary(state *OrderState) string {
	c := &state.Checkout
	var sb strings.Builder
	sb.WriteString("Here's your order:\n")
	for i := range state.Bagels.Items {
		it := &state.Bagels.Items[i]
		fmt.Fprintf(&sb, "- %s ($%.2f)\n", it.Description(), it.LineTotal())
	}
	for i := range state.Drinks.Items {
		it := &state.Drinks.Items[i]
		fmt.Fprintf(&sb, "- %s ($%.2f)\n", it.Description(), it.LineTotal())
	}
	fmt.Fprintf(&sb, "Subtotal: $%.2f\n", c.Subtotal)
	fmt.Fprintf(&sb, "City tax: $%.2f\n", c.CityTax)
	fmt.Fprintf(&sb, "State tax: $%.2f\n", c.StateTax)
	if c.DeliveryFee > 0 {
		fmt.Fprintf(&sb, "Delivery fee: $%.2f\n", c.DeliveryFee)
	}
	if c.Tip > 0 {
		fmt.Fprintf(&sb, "Tip: $%.2f\n", c.Tip)
	}
	fmt.Fprintf(&sb, "Total: $%.2f", c.Total)
	if state.Delivery.OrderType == OrderTypeDelivery {
		sb.WriteString("\nDelivering to " + state.Delivery.FormattedAddress() + ".")
	} else {
		sb.WriteString("\nFor pickup at " + h.store.Address + ".")
	}
	return sb.String()
}

// outOfStock checks every finalized line against the live menu.
func (h *checkoutHandler) outOfStock(state *OrderState) (string, bool) {
	for i := range state.Bagels.Items {
		it := &state.Bagels.Items[i]
		if !h.catalog.InStock("bagel", it.Type) {
			return it.Type + " bagels", true
		}
	}
	for i := range state.Drinks.Items {
		it := &state.Drinks.Items[i]
		if !h.catalog.InStock("drink", it.Type) {
			return it.Type, true
		}
	}
	return "", false
}

func parseTip(utterance string) (float64, bool) {
	m := tipRe.FindStringSubmatch(utterance)
	if m == nil {
		return 0, false
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	var amount float64
	if _, err := fmt.Sscanf(raw, "%f", &amount); err != nil {
		return 0, false
	}
	return round2(amount), true
}
