package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// loopingHandler always reports completion into another domain, so a
// pair of them would cascade forever without the orchestrator's cap.
type loopingHandler struct {
	domain Domain
	next   Domain
	calls  int
}

func (h *loopingHandler) Domain() Domain { return h.domain }

func (h *loopingHandler) AwaitingField(*OrderState) string { return "" }

func (h *loopingHandler) Invoke(_ context.Context, _ *OrderState, _ string) (Result, error) {
	h.calls++
	return cascade("onward", h.next), nil
}

func TestCascadeInvokesAtMostRegistrySizeHandlers(t *testing.T) {
	a := &loopingHandler{domain: DomainGreeting, next: DomainDelivery}
	b := &loopingHandler{domain: DomainDelivery, next: DomainGreeting}
	registry, err := NewRegistry(a, b)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	orch, err := NewOrchestrator(registry, &stubClassifier{}, testLogger())
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	state := NewOrderState("s1")
	turn(t, orch, state, "hello")

	if got := a.calls + b.calls; got != registry.Len() {
		t.Fatalf("handler invocations = %d, want %d", got, registry.Len())
	}
}

func TestCompoundUtteranceFillsEverythingAtOnce(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := NewOrderState("s1")

	reply := turn(t, orch, state, "Everything bagel, toasted, with scallion cream cheese, that's it, pickup, my name is Sam")

	if len(state.Bagels.Items) != 1 {
		t.Fatalf("finalized bagels = %d, want 1", len(state.Bagels.Items))
	}
	item := state.Bagels.Items[0]
	if item.Type != "everything" || item.Toasted != TriYes || item.Spread != "scallion cream cheese" {
		t.Fatalf("item = %+v", item)
	}
	if item.UnitPrice != 4.00 {
		t.Fatalf("unit price = %v, want 4.00", item.UnitPrice)
	}
	if state.Delivery.OrderType != OrderTypePickup || !state.Delivery.LocationConfirmed {
		t.Fatalf("delivery = %+v", state.Delivery)
	}
	if state.CustomerName != "Sam" {
		t.Fatalf("customer name = %q, want Sam", state.CustomerName)
	}
	if state.CurrentDomain != DomainCheckout || !state.Checkout.Reviewed {
		t.Fatalf("domain=%v reviewed=%v", state.CurrentDomain, state.Checkout.Reviewed)
	}
	if state.Checkout.Awaiting != "contact" {
		t.Fatalf("awaiting = %q, want contact", state.Checkout.Awaiting)
	}
	if !strings.Contains(reply, "Sam") {
		t.Fatalf("reply does not address the customer: %q", reply)
	}
}

func TestCompoundOpenerDefersDrinkUntilBagelDone(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := NewOrderState("s1")

	turn(t, orch, state, "I'd like an everything bagel and a latte for pickup")

	if !state.HasDeferred(DomainDrink) {
		t.Fatalf("drink mention in compound opener was not deferred; deferred=%v", state.Deferred)
	}
	if state.Drinks.Current != nil || len(state.Drinks.Items) != 0 {
		t.Fatalf("drink flow started before the bagel finished: %+v", state.Drinks)
	}

	turn(t, orch, state, "toasted")
	turn(t, orch, state, "cream cheese")
	turn(t, orch, state, "nope")
	turn(t, orch, state, "yes")
	reply := turn(t, orch, state, "no")

	if len(state.Bagels.Items) != 1 {
		t.Fatalf("finalized bagels = %d, want 1", len(state.Bagels.Items))
	}
	if state.CurrentDomain != DomainDrink {
		t.Fatalf("domain = %v, want %v", state.CurrentDomain, DomainDrink)
	}
	if state.HasDeferred(DomainDrink) {
		t.Fatalf("deferred queue not drained: %v", state.Deferred)
	}
	if !strings.Contains(reply, "coffee") {
		t.Fatalf("reply does not open the drink flow: %q", reply)
	}
}

func TestInterruptionMidItemIsDeferredNotActedOn(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := NewOrderState("s1")

	turn(t, orch, state, "I'd like a bagel")
	turn(t, orch, state, "everything")
	turn(t, orch, state, "toasted please")

	if state.Bagels.Awaiting != "spread" {
		t.Fatalf("awaiting = %q, want spread", state.Bagels.Awaiting)
	}

	turn(t, orch, state, "also I want a coffee")

	c := state.Bagels.Current
	if c == nil || c.Type != "everything" || c.Toasted != TriYes || c.Spread != "" {
		t.Fatalf("current item changed by interruption: %+v", c)
	}
	if !state.HasDeferred(DomainDrink) {
		t.Fatal("drink interruption was not deferred")
	}
	if state.CurrentDomain != DomainBagel || state.Bagels.Awaiting != "spread" {
		t.Fatalf("domain=%v awaiting=%q after interruption", state.CurrentDomain, state.Bagels.Awaiting)
	}

	turn(t, orch, state, "scallion cream cheese")
	turn(t, orch, state, "no")
	turn(t, orch, state, "sounds good")
	reply := turn(t, orch, state, "no")

	if state.CurrentDomain != DomainDrink {
		t.Fatalf("deferred drink not picked up, domain = %v", state.CurrentDomain)
	}
	if state.HasDeferred(DomainDrink) {
		t.Fatal("deferred queue not consumed")
	}
	if !strings.Contains(strings.ToLower(reply), "coffee") {
		t.Fatalf("handoff reply = %q", reply)
	}
}

func TestRemoveItemAtCheckoutRecomputesSummary(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := checkoutReadyState()
	state.CustomerName = "Sam"
	state.Checkout.Reviewed = true
	state.Checkout.Awaiting = "contact"

	reply := turn(t, orch, state, "remove the coffee")

	if len(state.Drinks.Items) != 0 {
		t.Fatalf("drinks = %d, want 0", len(state.Drinks.Items))
	}
	if len(state.Bagels.Items) != 1 {
		t.Fatalf("bagels = %d, want 1", len(state.Bagels.Items))
	}
	if !state.Checkout.Reviewed {
		t.Fatal("summary was not re-presented after removal")
	}
	if state.Checkout.Subtotal != 8.00 {
		t.Fatalf("subtotal = %v, want 8.00 after removal", state.Checkout.Subtotal)
	}
	if !strings.Contains(reply, "removed") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestConfirmationIsIdempotent(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := checkoutReadyState()
	state.CustomerName = "Sam"
	state.Checkout.Reviewed = true
	state.Checkout.Awaiting = "contact"

	reply := turn(t, orch, state, "I'll pay at the counter")

	if !state.Checkout.Confirmed || state.Status != StatusConfirmed {
		t.Fatalf("order not confirmed: %+v", state.Checkout)
	}
	number := state.Checkout.OrderNumber
	if number == "" {
		t.Fatal("no order number minted")
	}
	if !strings.Contains(reply, number) {
		t.Fatalf("reply missing order number: %q", reply)
	}

	again := turn(t, orch, state, "confirm my order")

	if state.Checkout.OrderNumber != number {
		t.Fatalf("order number changed on re-confirm: %q -> %q", number, state.Checkout.OrderNumber)
	}
	if len(state.Bagels.Items)+len(state.Drinks.Items) != 2 {
		t.Fatal("items changed after confirmation")
	}
	if !strings.Contains(again, ShortOrderNumber(number)) {
		t.Fatalf("re-confirm reply = %q", again)
	}
}

func TestPostConfirmationNewOrderKeepsCustomer(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := checkoutReadyState()
	state.CustomerName = "Sam"
	state.CustomerPhone = "5551234567"
	state.Checkout.Confirmed = true
	state.Checkout.OrderNumber = "ORD-ABCDEF-12"
	state.Status = StatusConfirmed

	reply := turn(t, orch, state, "let's start a new order")

	if state.Checkout.Confirmed || state.HasItems() {
		t.Fatal("new order kept the old cart")
	}
	if state.CustomerName != "Sam" || state.CustomerPhone != "5551234567" {
		t.Fatal("customer identity lost across orders")
	}
	if !strings.Contains(strings.ToLower(reply), "pickup or delivery") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestCancelledOrderStaysClosed(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := NewOrderState("s1")

	turn(t, orch, state, "Everything bagel, toasted, with cream cheese, that's it, pickup, my name is Sam")
	turn(t, orch, state, "cancel my order")

	if state.Status != StatusCancelled {
		t.Fatalf("status = %v, want cancelled", state.Status)
	}

	reply := turn(t, orch, state, "actually yes, confirm the order")
	if state.Status != StatusCancelled || state.Checkout.Confirmed {
		t.Fatalf("cancelled order reopened: status=%v confirmed=%v", state.Status, state.Checkout.Confirmed)
	}
	if !strings.Contains(reply, "new order") {
		t.Fatalf("reply does not point at a fresh order: %q", reply)
	}

	turn(t, orch, state, "ok, new order please")
	if state.Status != StatusInProgress || state.CurrentDomain != DomainDelivery {
		t.Fatalf("new order did not reopen the session: status=%v domain=%v", state.Status, state.CurrentDomain)
	}
}

func TestExternalClassifierResolvesIdleAmbiguity(t *testing.T) {
	classifier := &stubClassifier{intent: IntentOrderDrink}
	orch := newTestOrchestrator(t, nil, classifier)
	state := NewOrderState("s1")

	reply := turn(t, orch, state, "surprise me with something caffeinated")

	if classifier.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls)
	}
	if state.CurrentDomain != DomainDrink {
		t.Fatalf("domain = %v, want drink", state.CurrentDomain)
	}
	if !strings.Contains(strings.ToLower(reply), "drink") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestClassifierFailureDegradesGracefully(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("nlu timeout")}
	orch := newTestOrchestrator(t, nil, classifier)
	state := NewOrderState("s1")

	reply := turn(t, orch, state, "zorp blargh")

	if reply == "" {
		t.Fatal("no reply on classifier failure")
	}
	if state.Status != StatusInProgress {
		t.Fatalf("status = %v", state.Status)
	}
}

func TestMidSlotAnswersNeverLeaveTheDomain(t *testing.T) {
	classifier := &stubClassifier{intent: IntentGreeting}
	orch := newTestOrchestrator(t, nil, classifier)
	state := NewOrderState("s1")

	turn(t, orch, state, "I'd like a bagel")
	turn(t, orch, state, "gimme the round one")

	if classifier.calls != 0 {
		t.Fatal("mid-slot answer escaped to the external classifier")
	}
	if state.CurrentDomain != DomainBagel {
		t.Fatalf("domain = %v, want bagel", state.CurrentDomain)
	}
}

func TestFullOrderHappyPath(t *testing.T) {
	orch := newTestOrchestrator(t, nil, nil)
	state := NewOrderState("s1")

	turn(t, orch, state, "hi")
	turn(t, orch, state, "delivery")
	turn(t, orch, state, "123 Main Street, Brooklyn NY 11201")

	if !state.Delivery.Complete() || state.Delivery.Zip != "11201" {
		t.Fatalf("delivery = %+v", state.Delivery)
	}

	turn(t, orch, state, "two everything bagels toasted with cream cheese")
	turn(t, orch, state, "lox please")
	turn(t, orch, state, "yes")

	if len(state.Bagels.Items) != 1 || state.Bagels.Items[0].UnitPrice != 9.00 {
		t.Fatalf("bagels = %+v", state.Bagels.Items)
	}

	turn(t, orch, state, "no, a latte please")
	turn(t, orch, state, "large and iced")
	turn(t, orch, state, "oat milk")
	turn(t, orch, state, "no")
	turn(t, orch, state, "sounds good")

	if len(state.Drinks.Items) != 1 {
		t.Fatalf("drinks = %+v", state.Drinks.Items)
	}
	drink := state.Drinks.Items[0]
	if drink.Size != "large" || drink.Iced != TriYes || drink.Milk != "oat" || drink.UnitPrice != 6.00 {
		t.Fatalf("drink = %+v", drink)
	}

	turn(t, orch, state, "that's all")

	if state.CurrentDomain != DomainCheckout || !state.Checkout.Reviewed {
		t.Fatalf("domain=%v checkout=%+v", state.CurrentDomain, state.Checkout)
	}
	if state.Checkout.Subtotal != 24.00 || state.Checkout.Total != 29.03 {
		t.Fatalf("subtotal=%v total=%v", state.Checkout.Subtotal, state.Checkout.Total)
	}

	turn(t, orch, state, "looks good")
	turn(t, orch, state, "my name is Sam")
	reply := turn(t, orch, state, "sam@example.com")

	if !state.Checkout.Confirmed || state.CustomerEmail != "sam@example.com" {
		t.Fatalf("checkout=%+v email=%q", state.Checkout, state.CustomerEmail)
	}
	if state.CustomerName != "Sam" {
		t.Fatalf("name = %q", state.CustomerName)
	}
	if !strings.Contains(reply, "29.03") {
		t.Fatalf("confirmation reply = %q", reply)
	}
}

// checkoutReadyState is a cart with one bagel and one drink, pickup
// settled, positioned at checkout.
func checkoutReadyState() *OrderState {
	state := NewOrderState("s1")
	state.Delivery.OrderType = OrderTypePickup
	state.Delivery.LocationConfirmed = true
	state.Bagels.Items = []BagelItem{{
		Type: "everything", Quantity: 2, Toasted: TriYes,
		Spread: "cream cheese", Extras: []string{}, UnitPrice: 4.00,
	}}
	state.Drinks.Items = []DrinkItem{{
		Type: "latte", Size: "medium", Quantity: 1, Iced: TriNo,
		Milk: "black", UnitPrice: 4.75,
	}}
	state.CurrentDomain = DomainCheckout
	return state
}
