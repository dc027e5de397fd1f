package engine

// SuggestedReplies offers quick-reply chips for the client UI, tuned to
// whatever the conversation is waiting on.
func SuggestedReplies(state *OrderState) []string {
	if state.Checkout.Confirmed {
		return []string{"New order", "When will it be ready?", "Thanks!"}
	}

	switch state.CurrentDomain {
	case DomainGreeting:
		return []string{"Pickup", "Delivery", "What are your hours?"}

	case DomainDelivery:
		if state.Delivery.Awaiting == "order_type" || state.Delivery.OrderType == OrderTypeUnset {
			return []string{"Pickup", "Delivery"}
		}
		return nil

	case DomainBagel:
		switch state.Bagels.Awaiting {
		case "toasted":
			return []string{"Yes, toasted", "Not toasted"}
		case "spread":
			return []string{"Cream cheese", "Scallion cream cheese", "Butter", "Nothing"}
		case "extras":
			return []string{"Lox", "Bacon", "No, that's it"}
		case "confirm":
			return []string{"Sounds good", "Change it"}
		case "another":
			return []string{"Yes, another", "No, that's it"}
		}
		return []string{"Everything bagel", "Plain with cream cheese", "Sesame, toasted"}

	case DomainDrink:
		switch state.Drinks.Awaiting {
		case "size":
			return []string{"Small", "Medium", "Large"}
		case "iced":
			return []string{"Hot", "Iced"}
		case "milk":
			return []string{"Whole milk", "Oat milk", "Black"}
		case "confirm":
			return []string{"Sounds good", "Change it"}
		case "another":
			return []string{"Yes, another", "No, that's it"}
		}
		return []string{"Latte", "Drip coffee", "Cold brew"}

	case DomainCheckout:
		switch state.Checkout.Awaiting {
		case "confirmation":
			return []string{"Looks good", "Change something", "Cancel"}
		case "contact":
			return []string{"Pay at the counter"}
		}
		return []string{"Checkout"}
	}
	return nil
}
