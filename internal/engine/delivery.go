package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	streetRe = regexp.MustCompile(`(\d+\s+[\w\s]+?(?:st(?:reet)?|ave(?:nue)?|rd|road|blvd|dr(?:ive)?|ln|lane|way|ct|court|pl(?:ace)?|cir(?:cle)?))\b`)
	zipRe    = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	unitRe   = regexp.MustCompile(`(?:apt|apartment|unit|#)\s*(\w+)`)
	cityRe   = regexp.MustCompile(`,\s*([a-z .'-]+?)\s*,?\s*(?:[a-z]{2}\s+)?\d{5}`)
	stateRe  = regexp.MustCompile(`\b([a-z]{2})\s+\d{5}`)
)

// AddressValidator verifies a collected address against an external
// service. A nil validator accepts everything.
type AddressValidator func(ctx context.Context, d *DeliveryState) error

// ZoneChecker reports whether a zip code is inside the delivery area. A
// nil checker treats every zip as deliverable.
type ZoneChecker func(ctx context.Context, zip string) bool

// DeliveryOptions carries the optional address hooks.
type DeliveryOptions struct {
	ValidateAddress AddressValidator
	InDeliveryZone  ZoneChecker
}

// deliveryHandler settles fulfillment: pickup at the store, or delivery
// with a street, city and zip collected one slot at a time.
type deliveryHandler struct {
	store StoreInfo
	opts  DeliveryOptions
}

func NewDeliveryHandler(store StoreInfo, opts DeliveryOptions) (Handler, error) {
	return &deliveryHandler{store: store, opts: opts}, nil
}

func (h *deliveryHandler) Domain() Domain { return DomainDelivery }

func (h *deliveryHandler) AwaitingField(state *OrderState) string {
	return state.Delivery.Awaiting
}

func (h *deliveryHandler) Invoke(ctx context.Context, state *OrderState, utterance string) (Result, error) {
	d := &state.Delivery

	if d.OrderType == OrderTypeUnset || d.Awaiting == "order_type" {
		return h.selectOrderType(ctx, state, utterance), nil
	}
	if d.OrderType == OrderTypeDelivery && !d.Complete() {
		return h.collectAddress(ctx, state, utterance), nil
	}
	// Fulfillment already settled; a re-entry just moves on.
	return h.done(state, ""), nil
}

func (h *deliveryHandler) selectOrderType(ctx context.Context, state *OrderState, utterance string) Result {
	d := &state.Delivery

	// A street address implies delivery even without the word.
	if mentionsDelivery(utterance) || streetRe.MatchString(utterance) {
		d.OrderType = OrderTypeDelivery
		d.Awaiting = ""
		parseAddressInto(utterance, d)
		return h.collectAddress(ctx, state, utterance)
	}
	if mentionsPickup(utterance) {
		d.OrderType = OrderTypePickup
		d.LocationConfirmed = true
		d.Awaiting = ""
		msg := fmt.Sprintf("Pickup it is - we're at %s.", h.store.Address)
		return h.done(state, msg)
	}

	d.Awaiting = "order_type"
	return ask("Will this be for pickup or delivery?")
}

func (h *deliveryHandler) collectAddress(ctx context.Context, state *OrderState, utterance string) Result {
	d := &state.Delivery
	parseAddressInto(utterance, d)

	switch {
	case d.Street == "":
		d.Awaiting = "street"
		return ask("What's the delivery address?")
	case d.City == "":
		d.Awaiting = "city"
		return ask("What city is that in?")
	case d.Zip == "":
		d.Awaiting = "zip"
		return ask("And the zip code?")
	}

	if h.opts.ValidateAddress != nil {
		if err := h.opts.ValidateAddress(ctx, d); err != nil {
			d.Street, d.City, d.Zip = "", "", ""
			d.Awaiting = "street"
			return ask("Hmm, I couldn't verify that address. Could you give it to me again, starting with the street?")
		}
	}
	if h.opts.InDeliveryZone != nil && !h.opts.InDeliveryZone(ctx, d.Zip) {
		d.Awaiting = "order_type"
		return ask(fmt.Sprintf("Looks like %s is outside our delivery area. Would pickup work instead?", d.Zip))
	}

	d.Validated = true
	d.Awaiting = ""
	return h.done(state, fmt.Sprintf("Got it - delivering to %s.", d.FormattedAddress()))
}

// done hands the conversation to whatever is next: checkout when the
// cart already has items, otherwise the oldest deferred domain, falling
// back to bagels.
func (h *deliveryHandler) done(state *OrderState, msg string) Result {
	if state.HasItems() {
		return cascade(msg, DomainCheckout)
	}
	next := DomainBagel
	if q, ok := state.PopDeferred(); ok {
		next = q
	}
	prompt := "What can I get you?"
	if next == DomainDrink {
		prompt = "Now, what would you like to drink?"
	}
	if msg != "" {
		prompt = msg + " " + prompt
	}
	return handoff(prompt, next)
}

// parseAddressInto fills any address fields it can find, never clearing
// fields already collected.
func parseAddressInto(utterance string, d *DeliveryState) {
	clean := strings.TrimSpace(utterance)
	if d.Street == "" {
		if m := streetRe.FindStringSubmatch(clean); m != nil {
			d.Street = strings.TrimSpace(m[1])
		}
	}
	if d.Unit == "" {
		if m := unitRe.FindStringSubmatch(clean); m != nil {
			d.Unit = m[1]
		}
	}
	if d.Zip == "" {
		if m := zipRe.FindStringSubmatch(clean); m != nil {
			d.Zip = m[1]
		}
	}
	if d.State == "" {
		if m := stateRe.FindStringSubmatch(clean); m != nil {
			d.State = strings.ToUpper(m[1])
		}
	}
	if d.City == "" {
		if m := cityRe.FindStringSubmatch(clean); m != nil {
			d.City = titleWords(strings.TrimSpace(m[1]))
		} else if d.Awaiting == "city" && clean != "" && !zipRe.MatchString(clean) {
			d.City = titleWords(clean)
		}
	}
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
