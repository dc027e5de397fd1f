package engine

// Domain names one cooperating sub-dialogue. The set is closed: handlers
// are bound to domains in a static table at construction time.
type Domain string

const (
	DomainGreeting Domain = "greeting"
	DomainDelivery Domain = "delivery"
	DomainBagel    Domain = "bagel"
	DomainDrink    Domain = "drink"
	DomainCheckout Domain = "checkout"
)

// Status is the overall order lifecycle. Confirmed and cancelled are
// terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// TriState models a boolean attribute that distinguishes "not yet asked"
// from an explicit yes or no.
type TriState string

const (
	TriUnset TriState = ""
	TriYes   TriState = "yes"
	TriNo    TriState = "no"
)

// Known reports whether the attribute has been answered either way.
func (t TriState) Known() bool {
	return t == TriYes || t == TriNo
}

// Bool collapses the tri-state for rendering; unset reads as false.
func (t TriState) Bool() bool {
	return t == TriYes
}

// OrderType is the fulfillment choice collected by the delivery domain.
type OrderType string

const (
	OrderTypeUnset    OrderType = ""
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)
