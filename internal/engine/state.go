package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message is one turn of the conversation transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryState carries the fulfillment choice and, for delivery orders,
// the address fields collected so far.
type DeliveryState struct {
	OrderType         OrderType `json:"order_type"`
	LocationConfirmed bool      `json:"location_confirmed"`
	Street            string    `json:"street,omitempty"`
	Unit              string    `json:"unit,omitempty"`
	City              string    `json:"city,omitempty"`
	State             string    `json:"state,omitempty"`
	Zip               string    `json:"zip,omitempty"`
	Instructions      string    `json:"instructions,omitempty"`
	Validated         bool      `json:"validated"`
	Awaiting          string    `json:"awaiting,omitempty"`
}

// Complete reports whether fulfillment is fully settled: pickup with the
// store location acknowledged, or delivery with a validated address.
func (d *DeliveryState) Complete() bool {
	switch d.OrderType {
	case OrderTypePickup:
		return d.LocationConfirmed
	case OrderTypeDelivery:
		return d.Street != "" && d.City != "" && d.Zip != "" && d.Validated
	default:
		return false
	}
}

// FormattedAddress renders the collected address for summaries.
func (d *DeliveryState) FormattedAddress() string {
	if d.Street == "" {
		return ""
	}
	parts := []string{d.Street}
	if d.Unit != "" {
		parts[0] = fmt.Sprintf("%s, Unit %s", d.Street, d.Unit)
	}
	if d.City != "" {
		parts = append(parts, d.City)
	}
	if d.State != "" {
		parts = append(parts, d.State)
	}
	if d.Zip != "" {
		parts = append(parts, d.Zip)
	}
	return strings.Join(parts, ", ")
}

// BagelItem is one bagel line. Toasted is tri-state so the handler can
// tell "not asked yet" apart from "no".
type BagelItem struct {
	Type      string   `json:"type"`
	Quantity  int      `json:"quantity"`
	Toasted   TriState `json:"toasted"`
	Spread    string   `json:"spread,omitempty"`
	Extras    []string `json:"extras"`
	UnitPrice float64  `json:"unit_price"`
}

// Complete reports whether every required attribute has been collected.
// Extras are optional and never block completion.
func (b *BagelItem) Complete() bool {
	return b.Type != "" && b.Quantity > 0 && b.Toasted.Known() && b.Spread != ""
}

// Description renders the item the way a counter clerk would read it back,
// e.g. "2x everything toasted with scallion cream cheese + lox".
func (b *BagelItem) Description() string {
	var sb strings.Builder
	if b.Quantity > 1 {
		fmt.Fprintf(&sb, "%dx ", b.Quantity)
	}
	sb.WriteString(b.Type)
	sb.WriteString(" bagel")
	if b.Toasted == TriYes {
		sb.WriteString(", toasted")
	}
	if b.Spread != "" && b.Spread != "none" {
		sb.WriteString(" with " + b.Spread)
	}
	for _, e := range b.Extras {
		sb.WriteString(" + " + e)
	}
	return sb.String()
}

func (b *BagelItem) LineTotal() float64 {
	return round2(b.UnitPrice * float64(b.Quantity))
}

// DrinkItem is one drink line. Iced is tri-state; Milk "black" means the
// customer declined milk, empty means not asked yet.
type DrinkItem struct {
	Type          string   `json:"type"`
	Size          string   `json:"size,omitempty"`
	Quantity      int      `json:"quantity"`
	Iced          TriState `json:"iced"`
	Milk          string   `json:"milk,omitempty"`
	Sweetener     string   `json:"sweetener,omitempty"`
	SweetenerQty  int      `json:"sweetener_qty,omitempty"`
	FlavorSyrup   string   `json:"flavor_syrup,omitempty"`
	EspressoShots int      `json:"espresso_shots,omitempty"`
	UnitPrice     float64  `json:"unit_price"`
}

func (d *DrinkItem) Complete() bool {
	return d.Type != "" && d.Size != "" && d.Quantity > 0 && d.Iced.Known()
}

// Description renders the drink for read-back, e.g. "large iced latte
// with oat milk, 2 sugars".
func (d *DrinkItem) Description() string {
	var sb strings.Builder
	if d.Quantity > 1 {
		fmt.Fprintf(&sb, "%dx ", d.Quantity)
	}
	if d.Size != "" {
		sb.WriteString(d.Size + " ")
	}
	if d.Iced == TriYes {
		sb.WriteString("iced ")
	}
	sb.WriteString(d.Type)
	if d.Milk != "" && d.Milk != "black" {
		sb.WriteString(" with " + d.Milk + " milk")
	}
	if d.FlavorSyrup != "" {
		sb.WriteString(", " + d.FlavorSyrup + " syrup")
	}
	if d.SweetenerQty > 0 {
		unit := d.Sweetener
		if unit == "" {
			unit = "sugar"
		}
		if d.SweetenerQty > 1 {
			unit += "s"
		}
		fmt.Fprintf(&sb, ", %d %s", d.SweetenerQty, unit)
	}
	return sb.String()
}

func (d *DrinkItem) LineTotal() float64 {
	return round2(d.UnitPrice * float64(d.Quantity))
}

// BagelState tracks finalized bagel lines plus the one being built.
type BagelState struct {
	Items    []BagelItem `json:"items"`
	Current  *BagelItem  `json:"current,omitempty"`
	Awaiting string      `json:"awaiting,omitempty"`
}

// Finalize moves the in-progress item onto the finalized list. It refuses
// items with required attributes still unset.
func (s *BagelState) Finalize() bool {
	if s.Current == nil || !s.Current.Complete() {
		return false
	}
	s.Items = append(s.Items, *s.Current)
	s.Current = nil
	s.Awaiting = ""
	return true
}

func (s *BagelState) Total() float64 {
	var total float64
	for i := range s.Items {
		total += s.Items[i].LineTotal()
	}
	return round2(total)
}

// DrinkState tracks finalized drink lines plus the one being built.
type DrinkState struct {
	Items    []DrinkItem `json:"items"`
	Current  *DrinkItem  `json:"current,omitempty"`
	Awaiting string      `json:"awaiting,omitempty"`
}

func (s *DrinkState) Finalize() bool {
	if s.Current == nil || !s.Current.Complete() {
		return false
	}
	s.Items = append(s.Items, *s.Current)
	s.Current = nil
	s.Awaiting = ""
	return true
}

func (s *DrinkState) Total() float64 {
	var total float64
	for i := range s.Items {
		total += s.Items[i].LineTotal()
	}
	return round2(total)
}

// CheckoutState walks review, identity collection and confirmation.
// OrderNumber is minted exactly once; re-confirming an already confirmed
// order must return the same number.
type CheckoutState struct {
	Reviewed      bool    `json:"reviewed"`
	Confirmed     bool    `json:"confirmed"`
	Awaiting      string  `json:"awaiting,omitempty"`
	Subtotal      float64 `json:"subtotal"`
	CityTax       float64 `json:"city_tax"`
	StateTax      float64 `json:"state_tax"`
	DeliveryFee   float64 `json:"delivery_fee"`
	Tip           float64 `json:"tip"`
	Total         float64 `json:"total"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	OrderNumber   string  `json:"order_number,omitempty"`
}

// OrderState is the full conversational order aggregate. It is the unit
// of session persistence and round-trips through JSON unchanged.
type OrderState struct {
	SessionID     string        `json:"session_id"`
	Status        Status        `json:"status"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	Delivery      DeliveryState `json:"delivery"`
	Bagels        BagelState    `json:"bagels"`
	Drinks        DrinkState    `json:"drinks"`
	Checkout      CheckoutState `json:"checkout"`
	CurrentDomain Domain        `json:"current_domain"`
	PrevDomain    Domain        `json:"prev_domain,omitempty"`
	Deferred      []Domain      `json:"deferred,omitempty"`
	History       []Message     `json:"history"`
	StartedAt     time.Time     `json:"started_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func NewOrderState(sessionID string) *OrderState {
	now := time.Now().UTC()
	return &OrderState{
		SessionID:     sessionID,
		Status:        StatusInProgress,
		CurrentDomain: DomainGreeting,
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// AddMessage appends a transcript entry.
func (o *OrderState) AddMessage(role, content string) {
	o.History = append(o.History, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	o.UpdatedAt = time.Now().UTC()
}

// TransitionTo moves the conversation to another domain, recording where
// it came from.
func (o *OrderState) TransitionTo(d Domain) {
	if d == o.CurrentDomain {
		return
	}
	o.PrevDomain = o.CurrentDomain
	o.CurrentDomain = d
}

// Defer queues a domain to visit once the current flow completes. The
// queue is FIFO and deduplicated.
func (o *OrderState) Defer(d Domain) {
	for _, q := range o.Deferred {
		if q == d {
			return
		}
	}
	o.Deferred = append(o.Deferred, d)
}

// PopDeferred dequeues the oldest deferred domain, if any.
func (o *OrderState) PopDeferred() (Domain, bool) {
	if len(o.Deferred) == 0 {
		return "", false
	}
	d := o.Deferred[0]
	o.Deferred = o.Deferred[1:]
	return d, true
}

func (o *OrderState) HasDeferred(d Domain) bool {
	for _, q := range o.Deferred {
		if q == d {
			return true
		}
	}
	return false
}

func (o *OrderState) HasItems() bool {
	return len(o.Bagels.Items) > 0 || len(o.Drinks.Items) > 0
}

func (o *OrderState) ItemCount() int {
	return len(o.Bagels.Items) + len(o.Drinks.Items)
}

// Subtotal sums finalized lines only. In-progress items never price.
func (o *OrderState) Subtotal() float64 {
	return round2(o.Bagels.Total() + o.Drinks.Total())
}

// ResetForNewOrder clears the order while keeping the session, transcript
// and customer identity so a returning customer is not re-asked who they
// are.
func (o *OrderState) ResetForNewOrder() {
	o.Status = StatusInProgress
	o.Delivery = DeliveryState{}
	o.Bagels = BagelState{}
	o.Drinks = DrinkState{}
	o.Checkout = CheckoutState{}
	o.Deferred = nil
	o.CurrentDomain = DomainDelivery
	o.PrevDomain = DomainCheckout
	o.UpdatedAt = time.Now().UTC()
}

// Clone deep-copies the state via its JSON form. Used to diff a turn's
// before and after snapshots.
func (o *OrderState) Clone() (*OrderState, error) {
	raw, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var cp OrderState
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
