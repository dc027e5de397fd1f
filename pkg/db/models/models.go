package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ConfirmedOrder is the durable snapshot of a confirmed conversation order.
// One row per checkout confirmation; the order number doubles as the
// idempotency key so a retried confirmation never creates a second row.
type ConfirmedOrder struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID   string          `gorm:"column:session_id;size:64;index" json:"session_id"`
	OrderNumber string          `gorm:"column:order_number;size:32;uniqueIndex" json:"order_number"`
	OrderType   string          `gorm:"column:order_type;size:16" json:"order_type"`
	Customer    string          `gorm:"column:customer;size:128" json:"customer"`
	Phone       string          `gorm:"column:phone;size:32" json:"phone"`
	Email       string          `gorm:"column:email;size:256" json:"email"`
	Subtotal    float64         `gorm:"column:subtotal" json:"subtotal"`
	CityTax     float64         `gorm:"column:city_tax" json:"city_tax"`
	StateTax    float64         `gorm:"column:state_tax" json:"state_tax"`
	DeliveryFee float64         `gorm:"column:delivery_fee" json:"delivery_fee"`
	Tip         float64         `gorm:"column:tip" json:"tip"`
	Total       float64         `gorm:"column:total" json:"total"`
	State       json.RawMessage `gorm:"column:state;type:jsonb" json:"state"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
}

// MenuEntry is a priced reference-data row: a base item (kind=bagel or
// kind=drink) or a priced customization (kind=modifier). Rows are read into
// an immutable snapshot; the refresher swaps whole snapshots, never rows.
type MenuEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind      string    `gorm:"column:kind;size:16;uniqueIndex:idx_menu_kind_name" json:"kind"`
	Name      string    `gorm:"column:name;size:128;uniqueIndex:idx_menu_kind_name" json:"name"`
	Category  string    `gorm:"column:category;size:32" json:"category"`
	Price     float64   `gorm:"column:price" json:"price"`
	InStock   bool      `gorm:"column:in_stock;default:true" json:"in_stock"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}
