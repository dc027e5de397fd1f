package engine

import (
	"context"
	"strings"
	"testing"
)

func newBagelHandler(t *testing.T) Handler {
	t.Helper()
	h, err := NewBagelHandler(&stubCatalog{})
	if err != nil {
		t.Fatalf("bagel handler: %v", err)
	}
	return h
}

func TestBagelSlotFillOrder(t *testing.T) {
	h := newBagelHandler(t)
	state := NewOrderState("s1")
	ctx := context.Background()

	res, _ := h.Invoke(ctx, state, "can i get a bagel")
	if state.Bagels.Awaiting != "bagel_type" {
		t.Fatalf("awaiting = %q, want bagel_type", state.Bagels.Awaiting)
	}

	res, _ = h.Invoke(ctx, state, "sesame")
	if state.Bagels.Current.Type != "sesame" || state.Bagels.Awaiting != "toasted" {
		t.Fatalf("current=%+v awaiting=%q", state.Bagels.Current, state.Bagels.Awaiting)
	}

	res, _ = h.Invoke(ctx, state, "yes please")
	if state.Bagels.Current.Toasted != TriYes || state.Bagels.Awaiting != "spread" {
		t.Fatalf("current=%+v awaiting=%q", state.Bagels.Current, state.Bagels.Awaiting)
	}

	res, _ = h.Invoke(ctx, state, "butter")
	if state.Bagels.Current.Spread != "butter" || state.Bagels.Awaiting != "extras" {
		t.Fatalf("current=%+v awaiting=%q", state.Bagels.Current, state.Bagels.Awaiting)
	}

	res, _ = h.Invoke(ctx, state, "nope")
	if state.Bagels.Awaiting != "confirm" {
		t.Fatalf("awaiting = %q, want confirm", state.Bagels.Awaiting)
	}
	if state.Bagels.Current.UnitPrice != 3.25 {
		t.Fatalf("unit price = %v, want 3.25", state.Bagels.Current.UnitPrice)
	}
	if !strings.Contains(res.Message, "3.25") {
		t.Fatalf("confirm message = %q", res.Message)
	}

	h.Invoke(ctx, state, "sounds good")
	if len(state.Bagels.Items) != 1 || state.Bagels.Current != nil {
		t.Fatalf("items=%d current=%v", len(state.Bagels.Items), state.Bagels.Current)
	}
	if state.Bagels.Awaiting != "another" {
		t.Fatalf("awaiting = %q, want another", state.Bagels.Awaiting)
	}
}

func TestBagelUnknownExtrasAreSkipped(t *testing.T) {
	h := newBagelHandler(t)
	state := NewOrderState("s1")
	state.Bagels.Current = &BagelItem{Type: "plain", Quantity: 1, Toasted: TriNo, Spread: "none"}
	state.Bagels.Awaiting = "extras"

	h.Invoke(context.Background(), state, "some gold leaf and lox")

	c := state.Bagels.Current
	if len(c.Extras) != 1 || c.Extras[0] != "lox" {
		t.Fatalf("extras = %v, want [lox]", c.Extras)
	}
	if state.Bagels.Awaiting != "confirm" {
		t.Fatalf("awaiting = %q", state.Bagels.Awaiting)
	}
}

func TestBagelNegativeAtConfirmAsksWhatToChange(t *testing.T) {
	h := newBagelHandler(t)
	state := NewOrderState("s1")
	state.Bagels.Current = &BagelItem{Type: "plain", Quantity: 1, Toasted: TriYes, Spread: "butter", Extras: []string{}}
	state.Bagels.Awaiting = "confirm"
	ctx := context.Background()

	res, _ := h.Invoke(ctx, state, "no")
	if state.Bagels.Awaiting != "modify" || !strings.Contains(res.Message, "change") {
		t.Fatalf("awaiting=%q msg=%q", state.Bagels.Awaiting, res.Message)
	}

	h.Invoke(ctx, state, "make it an everything bagel, not toasted")

	c := state.Bagels.Current
	if c.Type != "everything" || c.Toasted != TriNo {
		t.Fatalf("modified item = %+v", c)
	}
	if c.Spread != "butter" {
		t.Fatalf("spread changed unexpectedly: %q", c.Spread)
	}
	if state.Bagels.Awaiting != "confirm" {
		t.Fatalf("awaiting = %q", state.Bagels.Awaiting)
	}
}

func TestBagelQuantityWords(t *testing.T) {
	cases := map[string]int{
		"a bagel":            1,
		"two plain bagels":   2,
		"a dozen bagels":     12,
		"half dozen sesame":  6,
		"3 everything":       3,
		"a couple of bagels": 2,
	}
	for utterance, want := range cases {
		if got := parseQuantity(utterance); got != want {
			t.Fatalf("parseQuantity(%q) = %d, want %d", utterance, got, want)
		}
	}
}

func TestBagelDescription(t *testing.T) {
	item := BagelItem{
		Type: "everything", Quantity: 2, Toasted: TriYes,
		Spread: "scallion cream cheese", Extras: []string{"lox"},
	}
	got := item.Description()
	want := "2x everything bagel, toasted with scallion cream cheese + lox"
	if got != want {
		t.Fatalf("description = %q, want %q", got, want)
	}
}
