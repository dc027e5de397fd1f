package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

var (
	drinkTypeRe = regexp.MustCompile(`\b(cold brew|hot chocolate|lattes?|cappuccinos?|americanos?|espresso|macchiatos?|mochas?|chai|tea|drip|coffees?)\b`)
	sizeRe      = regexp.MustCompile(`\b(small|medium|large|regular)\b`)
	icedRe      = regexp.MustCompile(`\b(iced|cold|over ice)\b`)
	hotRe       = regexp.MustCompile(`\bhot\b`)
	milkRe      = regexp.MustCompile(`\b(whole|skim|oat|almond|soy|2%|half and half)\b`)
	blackRe     = regexp.MustCompile(`\b(black|no milk|none)\b`)
	sweetenerRe = regexp.MustCompile(`\b(sugars?|splenda|stevia|honey)\b`)
	syrupRe     = regexp.MustCompile(`\b(vanilla|caramel|hazelnut|pumpkin spice)\b`)
	shotsRe     = regexp.MustCompile(`\b(\d+|double|triple)\s+shots?\b`)
)

// drinkHandler fills one drink at a time: kind, size, hot or iced, then
// optional milk and sweetener.
type drinkHandler struct {
	catalog Catalog
}

func NewDrinkHandler(catalog Catalog) (Handler, error) {
	if catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog is required")
	}
	return &drinkHandler{catalog: catalog}, nil
}

func (h *drinkHandler) Domain() Domain { return DomainDrink }

func (h *drinkHandler) AwaitingField(state *OrderState) string {
	return state.Drinks.Awaiting
}

func (h *drinkHandler) Invoke(_ context.Context, state *OrderState, utterance string) (Result, error) {
	s := &state.Drinks

	if s.Awaiting == "another" && s.Current == nil {
		return h.afterAnother(state, utterance), nil
	}

	if s.Current != nil {
		if mentionsBagel(utterance) {
			state.Defer(DomainBagel)
		}
		return h.continueCurrent(state, utterance), nil
	}

	// Declining a drink with nothing in progress just moves on.
	if isNegative(utterance) || (isDone(utterance) && !mentionsDrink(utterance)) {
		return h.finish(state, ""), nil
	}
	if mentionsBagel(utterance) && !mentionsDrink(utterance) {
		return handoff("Sure! What kind of bagel would you like?", DomainBagel), nil
	}
	if mentionsBagel(utterance) {
		state.Defer(DomainBagel)
	}
	return h.startItem(state, utterance), nil
}

func (h *drinkHandler) startItem(state *OrderState, utterance string) Result {
	s := &state.Drinks
	item := &DrinkItem{Quantity: parseQuantity(utterance)}
	item.Type = parseDrinkType(utterance)
	parseDrinkAttrs(item, utterance)

	s.Current = item
	if item.Type == "" {
		s.Awaiting = "drink_type"
		return ask("What would you like to drink? We've got drip coffee, lattes, cappuccinos, cold brew, and tea.")
	}
	return h.nextPrompt(state, isDone(utterance))
}

func (h *drinkHandler) continueCurrent(state *OrderState, utterance string) Result {
	s := &state.Drinks
	c := s.Current

	switch s.Awaiting {
	case "drink_type":
		if t := parseDrinkType(utterance); t != "" {
			c.Type = t
			parseDrinkAttrs(c, utterance)
			if q := parseQuantity(utterance); q > 1 {
				c.Quantity = q
			}
			return h.nextPrompt(state, false)
		}
		return ask("Sorry, which drink? We've got drip coffee, lattes, cappuccinos, cold brew, and tea.")

	case "size":
		if m := sizeRe.FindString(utterance); m != "" {
			c.Size = normalizeSize(m)
			parseDrinkAttrs(c, utterance)
		} else if isAffirmative(utterance) {
			c.Size = "medium"
		} else {
			return ask("What size - small, medium, or large?")
		}
		return h.nextPrompt(state, false)

	case "iced":
		switch {
		case icedRe.MatchString(utterance) || isAffirmative(utterance):
			c.Iced = TriYes
		case hotRe.MatchString(utterance) || isNegative(utterance):
			c.Iced = TriNo
		default:
			return ask("Hot or iced?")
		}
		return h.nextPrompt(state, false)

	case "milk":
		// Unrecognized milks are skipped rather than blocking.
		if m := milkRe.FindString(utterance); m != "" {
			c.Milk = m
		} else {
			c.Milk = "black"
		}
		return h.nextPrompt(state, false)

	case "sweetener":
		if !isNegative(utterance) {
			if m := sweetenerRe.FindString(utterance); m != "" {
				c.Sweetener = normalizeSweetener(m)
				c.SweetenerQty = parseQuantity(utterance)
			}
		}
		if c.SweetenerQty == 0 {
			c.Sweetener = ""
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

func (h *drinkHandler) nextPrompt(state *OrderState, doneFast bool) Result {
	s := &state.Drinks
	c := s.Current

	switch {
	case c.Type == "":
		s.Awaiting = "drink_type"
		return ask("What would you like to drink?")
	case c.Size == "":
		s.Awaiting = "size"
		return ask("What size - small, medium, or large?")
	case !c.Iced.Known():
		s.Awaiting = "iced"
		return ask("Hot or iced?")
	case c.Milk == "" && wantsMilk(c.Type) && !doneFast:
		s.Awaiting = "milk"
		return ask("Any milk in that? We've got whole, skim, oat, and almond.")
	case c.Sweetener == "" && c.SweetenerQty == 0 && s.Awaiting != "sweetener" && !doneFast && !sweetenerAsked(s):
		s.Awaiting = "sweetener"
		return ask("Any sugar or sweetener?")
	}

	if doneFast {
		h.priceItem(c)
		s.Finalize()
		return h.finish(state, "Perfect!")
	}
	return h.confirmPrompt(state)
}

func (h *drinkHandler) confirmPrompt(state *OrderState) Result {
	s := &state.Drinks
	h.priceItem(s.Current)
	s.Awaiting = "confirm"
	return ask(fmt.Sprintf("Got it - %s ($%.2f each). Sound good?", s.Current.Description(), s.Current.UnitPrice))
}

func (h *drinkHandler) finalizeAndAskAnother(state *OrderState) Result {
	s := &state.Drinks
	h.priceItem(s.Current)
	if !s.Finalize() {
		return h.nextPrompt(state, false)
	}
	s.Awaiting = "another"
	return Result{Message: "Anything else to drink?", NeedsUserInput: true}
}

func (h *drinkHandler) afterAnother(state *OrderState, utterance string) Result {
	s := &state.Drinks

	if mentionsBagel(utterance) {
		if isAffirmative(utterance) || mentionsDrink(utterance) {
			state.Defer(DomainBagel)
		} else {
			s.Awaiting = ""
			return handoff("Sure! What kind of bagel would you like?", DomainBagel)
		}
	}
	if isAffirmative(utterance) || parseDrinkType(utterance) != "" {
		s.Awaiting = ""
		return h.startItem(state, utterance)
	}
	return h.finish(state, "")
}

func (h *drinkHandler) finish(state *OrderState, msg string) Result {
	s := &state.Drinks
	s.Current = nil
	s.Awaiting = ""

	if next, ok := state.PopDeferred(); ok {
		prompt := "Back to your bagel - what kind would you like?"
		if msg != "" {
			prompt = msg + " " + prompt
		}
		return handoff(prompt, next)
	}
	if !state.HasItems() {
		return handoff("No problem. Can I get you a bagel instead?", DomainBagel)
	}
	if !state.Delivery.Complete() {
		return cascade(msg, DomainDelivery)
	}
	return cascade(msg, DomainCheckout)
}

func (h *drinkHandler) applyModification(c *DrinkItem, utterance string) {
	if t := parseDrinkType(utterance); t != "" {
		c.Type = t
	}
	if m := sizeRe.FindString(utterance); m != "" {
		c.Size = normalizeSize(m)
	}
	parseDrinkAttrs(c, utterance)
	if q := parseQuantity(utterance); q > 1 {
		c.Quantity = q
	}
}

func (h *drinkHandler) priceItem(c *DrinkItem) {
	price := h.catalog.BasePrice("drink", c.Type+"/"+c.Size)
	if c.Milk != "" && c.Milk != "black" {
		price += h.catalog.ModifierPrice(c.Milk + " milk")
	}
	if c.FlavorSyrup != "" {
		price += h.catalog.ModifierPrice(c.FlavorSyrup + " syrup")
	}
	if c.EspressoShots > 0 {
		price += float64(c.EspressoShots) * h.catalog.ModifierPrice("espresso shot")
	}
	c.UnitPrice = round2(price)
}

// parseDrinkAttrs pulls every secondary attribute the utterance carries.
func parseDrinkAttrs(c *DrinkItem, utterance string) {
	if m := sizeRe.FindString(utterance); m != "" && c.Size == "" {
		c.Size = normalizeSize(m)
	}
	switch {
	case icedRe.MatchString(utterance):
		c.Iced = TriYes
	case hotRe.MatchString(utterance):
		c.Iced = TriNo
	}
	if m := milkRe.FindString(utterance); m != "" {
		c.Milk = m
	} else if blackRe.MatchString(utterance) {
		c.Milk = "black"
	}
	if m := syrupRe.FindString(utterance); m != "" {
		c.FlavorSyrup = m
	}
	if m := sweetenerRe.FindString(utterance); m != "" {
		c.Sweetener = normalizeSweetener(m)
		c.SweetenerQty = parseQuantity(utterance)
	}
	if m := shotsRe.FindStringSubmatch(utterance); m != nil {
		switch m[1] {
		case "double":
			c.EspressoShots = 2
		case "triple":
			c.EspressoShots = 3
		default:
			c.EspressoShots = parseQuantity(m[1])
		}
	}
}

func parseDrinkType(u string) string {
	return strings.TrimSuffix(drinkTypeRe.FindString(u), "s")
}

func normalizeSize(s string) string {
	if s == "regular" {
		return "medium"
	}
	return s
}

func normalizeSweetener(s string) string {
	if s == "sugars" {
		return "sugar"
	}
	return s
}

// wantsMilk reports whether the drink kind takes a milk question at all.
func wantsMilk(drinkType string) bool {
	switch drinkType {
	case "tea", "hot chocolate", "espresso":
		return false
	}
	return true
}

// sweetenerAsked reports whether the sweetener question already ran for
// the current item.
func sweetenerAsked(s *DrinkState) bool {
	return s.Awaiting == "confirm" || s.Awaiting == "modify"
}
