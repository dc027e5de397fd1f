package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

var (
	adjacentBagelTypeRe = regexp.MustCompile(`\b(cinnamon raisin|whole wheat|everything|sesame|poppy|onion|blueberry|pumpernickel|salt|plain|egg)\s+bagels?\b`)
	bareBagelTypeRe     = regexp.MustCompile(`\b(cinnamon raisin|whole wheat|everything|sesame|poppy|onion|blueberry|pumpernickel|salt|plain)\b`)
	spreadRe            = regexp.MustCompile(`\b(scallion cream cheese|veggie cream cheese|plain cream cheese|cream cheese|peanut butter|butter|hummus)\b`)
	bagelExtraRe        = regexp.MustCompile(`\b(lox|bacon|avocado|tomato|capers|cheese|egg)\b`)
	notToastedRe        = regexp.MustCompile(`\b(not toasted|untoasted|don'?t toast|no toast)\b`)
	toastedRe           = regexp.MustCompile(`\btoast(ed)?\b`)
	noSpreadRe          = regexp.MustCompile(`\b(nothing|none|dry|plain|no spread)\b`)
)

// bagelHandler fills one bagel at a time: kind, toasted, spread, then
// optional extras, confirming before the line is finalized.
type bagelHandler struct {
	catalog Catalog
}

func NewBagelHandler(catalog Catalog) (Handler, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog is required")
	}
	return &bagelHandler{catalog: catalog}, nil
}

func (h *bagelHandler) Domain() Domain { return DomainBagel }

func (h *bagelHandler) AwaitingField(state *OrderState) string {
	return state.Bagels.Awaiting
}

func (h *bagelHandler) Invoke(_ context.Context, state *OrderState, utterance string) (Result, error) {
	s := &state.Bagels

	if s.Awaiting == "another" && s.Current == nil {
		return h.afterAnother(state, utterance), nil
	}

	if s.Current != nil {
		// An interruption mid-item is remembered, never acted on now.
		if mentionsDrink(utterance) {
			state.Defer(DomainDrink)
		}
		return h.continueCurrent(state, utterance), nil
	}

	if mentionsDrink(utterance) && !mentionsBagel(utterance) {
		return handoff("Sure! What kind of coffee would you like?", DomainDrink), nil
	}
	if isDone(utterance) && parseBagelType(utterance) == "" {
		return h.finish(state, ""), nil
	}
	// A compound opener ("an everything bagel and a latte") starts the
	// bagel now and queues the drink for after it finalizes.
	if mentionsDrink(utterance) {
		state.Defer(DomainDrink)
	}
	return h.startItem(state, utterance), nil
}

// startItem opens a new line, pulling every attribute the utterance
// already carries in one pass. A trailing "that's it" finalizes
// immediately when nothing required is missing.
func (h *bagelHandler) startItem(state *OrderState, utterance string) Result {
	s := &state.Bagels
	item := &BagelItem{Quantity: parseQuantity(utterance)}
	item.Type = parseBagelType(utterance)

	rest := utterance
	if m := spreadRe.FindString(rest); m != "" {
		item.Spread = m
		rest = strings.Replace(rest, m, "", 1)
	}
	switch {
	case notToastedRe.MatchString(utterance):
		item.Toasted = TriNo
	case toastedRe.MatchString(utterance):
		item.Toasted = TriYes
	}
	for _, m := range bagelExtraRe.FindAllString(rest, -1) {
		if m == "egg" && item.Type == "egg" {
			continue
		}
		item.Extras = appendExtra(item.Extras, m)
	}

	s.Current = item
	if item.Type == "" {
		s.Awaiting = "bagel_type"
		return ask("What kind of bagel would you like? We've got plain, everything, sesame, poppy, onion, and cinnamon raisin.")
	}
	return h.nextPrompt(state, isDone(utterance))
}

func (h *bagelHandler) continueCurrent(state *OrderState, utterance string) Result {
	s := &state.Bagels
	c := s.Current

	switch s.Awaiting {
	case "bagel_type":
		if t := parseBagelType(utterance); t != "" {
			c.Type = t
			if q := parseQuantity(utterance); q > 1 {
				c.Quantity = q
			}
			return h.nextPrompt(state, false)
		}
		return ask("Sorry, which kind? We've got plain, everything, sesame, poppy, onion, and cinnamon raisin.")

	case "toasted":
		switch {
		case notToastedRe.MatchString(utterance) || isNegative(utterance):
			c.Toasted = TriNo
		case toastedRe.MatchString(utterance) || isAffirmative(utterance):
			c.Toasted = TriYes
		default:
			return ask("Would you like that toasted?")
		}
		return h.nextPrompt(state, false)

	case "spread":
		if m := spreadRe.FindString(utterance); m != "" {
			c.Spread = m
		} else if isNegative(utterance) || noSpreadRe.MatchString(utterance) {
			c.Spread = "none"
		} else {
			return ask("What would you like on it - cream cheese, scallion cream cheese, butter, or nothing?")
		}
		return h.nextPrompt(state, false)

	case "extras":
		// Unrecognized add-ons are skipped rather than blocking.
		if !isNegative(utterance) && !isDone(utterance) {
			for _, m := range bagelExtraRe.FindAllString(utterance, -1) {
				c.Extras = appendExtra(c.Extras, m)
			}
		}
		if c.Extras == nil {
			c.Extras = []string{}
		}
		return h.confirmPrompt(state)

	case "confirm":
		if isAffirmative(utterance) {
			return h.finalizeAndAskAnother(state)
		}
		if isNegative(utterance) {
			s.Awaiting = "modify"
			return ask("What would you like to change?")
		}
		h.applyModification(c, utterance)
		return h.confirmPrompt(state)

	case "modify":
		h.applyModification(c, utterance)
		return h.confirmPrompt(state)

	}
	return h.nextPrompt(state, false)
}

// afterAnother handles the reply to "Would you like another bagel?".
func (h *bagelHandler) afterAnother(state *OrderState, utterance string) Result {
	s := &state.Bagels

	if mentionsDrink(utterance) {
		if isAffirmative(utterance) || mentionsBagel(utterance) {
			state.Defer(DomainDrink)
		} else {
			s.Awaiting = ""
			return handoff("You got it - what kind of coffee?", DomainDrink)
		}
	}
	if isAffirmative(utterance) || parseBagelType(utterance) != "" || mentionsBagel(utterance) {
		s.Awaiting = ""
		return h.startItem(state, utterance)
	}
	return h.finish(state, "")
}

// nextPrompt asks for the first required attribute still unset, in a
// fixed order. doneFast finalizes without the confirm step when the
// customer already said they're done.
func (h *bagelHandler) nextPrompt(state *OrderState, doneFast bool) Result {
	s := &state.Bagels
	c := s.Current

	switch {
	case c.Type == "":
		s.Awaiting = "bagel_type"
		return ask("What kind of bagel would you like?")
	case !c.Toasted.Known():
		s.Awaiting = "toasted"
		return ask("Would you like that toasted?")
	case c.Spread == "":
		s.Awaiting = "spread"
		return ask("What would you like on it - cream cheese, scallion cream cheese, butter, or nothing?")
	case c.Extras == nil && !doneFast:
		s.Awaiting = "extras"
		return ask("Anything else on it? Lox, bacon, egg, avocado?")
	}

	if doneFast {
		if c.Extras == nil {
			c.Extras = []string{}
		}
		h.priceItem(c)
		s.Finalize()
		return h.finish(state, "Perfect!")
	}
	return h.confirmPrompt(state)
}

func (h *bagelHandler) confirmPrompt(state *OrderState) Result {
	s := &state.Bagels
	h.priceItem(s.Current)
	s.Awaiting = "confirm"
	return ask(fmt.Sprintf("Got it - %s ($%.2f each). Sound good?", s.Current.Description(), s.Current.UnitPrice))
}

func (h *bagelHandler) finalizeAndAskAnother(state *OrderState) Result {
	s := &state.Bagels
	h.priceItem(s.Current)
	if !s.Finalize() {
		return h.nextPrompt(state, false)
	}
	s.Awaiting = "another"
	return Result{Message: "Would you like another bagel?", NeedsUserInput: true}
}

// finish closes the bagel flow and routes onward: deferred domains
// first, then fulfillment or checkout depending on what's settled.
func (h *bagelHandler) finish(state *OrderState, msg string) Result {
	s := &state.Bagels
	s.Current = nil
	s.Awaiting = ""

	if next, ok := state.PopDeferred(); ok {
		prompt := "Now for your coffee - what would you like?"
		if msg != "" {
			prompt = msg + " " + prompt
		}
		return handoff(prompt, next)
	}
	if !state.HasItems() {
		return handoff("No problem. Can I get you a coffee instead?", DomainDrink)
	}
	if !state.Delivery.Complete() {
		return cascade(msg, DomainDelivery)
	}
	return cascade(msg, DomainCheckout)
}

func (h *bagelHandler) applyModification(c *BagelItem, utterance string) {
	if t := parseBagelType(utterance); t != "" {
		c.Type = t
	}
	switch {
	case notToastedRe.MatchString(utterance):
		c.Toasted = TriNo
	case toastedRe.MatchString(utterance):
		c.Toasted = TriYes
	}
	rest := utterance
	if m := spreadRe.FindString(rest); m != "" {
		c.Spread = m
		rest = strings.Replace(rest, m, "", 1)
	} else if noSpreadRe.MatchString(utterance) && !adjacentBagelTypeRe.MatchString(utterance) && parseBagelType(utterance) == "" {
		c.Spread = "none"
	}
	for _, m := range bagelExtraRe.FindAllString(rest, -1) {
		if m == "egg" && c.Type == "egg" {
			continue
		}
		c.Extras = appendExtra(c.Extras, m)
	}
	if q := parseQuantity(utterance); q > 1 {
		c.Quantity = q
	}
}

func (h *bagelHandler) priceItem(c *BagelItem) {
	price := h.catalog.BasePrice("bagel", c.Type)
	if c.Spread != "" && c.Spread != "none" {
		price += h.catalog.ModifierPrice(c.Spread)
	}
	for _, e := range c.Extras {
		price += h.catalog.ModifierPrice(e)
	}
	c.UnitPrice = round2(price)
}

func parseBagelType(u string) string {
	if m := adjacentBagelTypeRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	if m := bareBagelTypeRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

func appendExtra(extras []string, e string) []string {
	for _, x := range extras {
		if x == e {
			return extras
		}
	}
	return append(extras, e)
}
