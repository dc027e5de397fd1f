package engine

// Action is a structured side effect inferred from a turn, published for
// downstream consumers (kitchen displays, analytics). Actions are
// derived by diffing the state before and after the turn, never reported
// by handlers directly.
type Action struct {
	Type  string         `json:"type"`
	Slots map[string]any `json:"slots,omitempty"`
}

const (
	ActionAddBagel     = "add_bagel"
	ActionAddDrink     = "add_drink"
	ActionSetOrderType = "set_order_type"
	ActionConfirmOrder = "confirm_order"
	ActionCancelOrder  = "cancel_order"
	ActionConversation = "conversation"
)

// InferActions diffs two snapshots of the same session. A turn with no
// structural change yields a single conversation action.
func InferActions(before, after *OrderState) []Action {
	var actions []Action

	for i := len(before.Bagels.Items); i < len(after.Bagels.Items); i++ {
		it := &after.Bagels.Items[i]
		actions = append(actions, Action{
			Type: ActionAddBagel,
			Slots: map[string]any{
				"bagel_type": it.Type,
				"quantity":   it.Quantity,
				"toasted":    it.Toasted.Bool(),
				"spread":     it.Spread,
				"extras":     it.Extras,
				"unit_price": it.UnitPrice,
			},
		})
	}
	for i := len(before.Drinks.Items); i < len(after.Drinks.Items); i++ {
		it := &after.Drinks.Items[i]
		actions = append(actions, Action{
			Type: ActionAddDrink,
			Slots: map[string]any{
				"drink_type": it.Type,
				"size":       it.Size,
				"quantity":   it.Quantity,
				"iced":       it.Iced.Bool(),
				"milk":       it.Milk,
				"unit_price": it.UnitPrice,
			},
		})
	}

	if before.Delivery.OrderType != after.Delivery.OrderType && after.Delivery.OrderType != OrderTypeUnset {
		actions = append(actions, Action{
			Type:  ActionSetOrderType,
			Slots: map[string]any{"order_type": string(after.Delivery.OrderType)},
		})
	}

	if !before.Checkout.Confirmed && after.Checkout.Confirmed {
		actions = append(actions, Action{
			Type: ActionConfirmOrder,
			Slots: map[string]any{
				"order_number": after.Checkout.OrderNumber,
				"total":        after.Checkout.Total,
			},
		})
	}
	if before.Status != StatusCancelled && after.Status == StatusCancelled {
		actions = append(actions, Action{Type: ActionCancelOrder})
	}

	if len(actions) == 0 {
		return []Action{{Type: ActionConversation}}
	}
	return actions
}
