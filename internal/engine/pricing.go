package engine

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingConfig holds the store's tax rates and the flat delivery fee.
type PricingConfig struct {
	CityTaxRate  float64
	StateTaxRate float64
	DeliveryFee  float64
}

// Totals is the priced breakdown of an order.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	CityTax     float64 `json:"city_tax"`
	StateTax    float64 `json:"state_tax"`
	DeliveryFee float64 `json:"delivery_fee"`
	Tip         float64 `json:"tip"`
	Total       float64 `json:"total"`
}

// ComputeTotals prices an order. Each tax line rounds independently
// before the final sum rounds, and the delivery fee applies only to
// delivery orders.
func ComputeTotals(subtotal float64, orderType OrderType, tip float64, cfg PricingConfig) Totals {
	sub := decimal.NewFromFloat(subtotal).Round(2)
	cityTax := sub.Mul(decimal.NewFromFloat(cfg.CityTaxRate)).Round(2)
	stateTax := sub.Mul(decimal.NewFromFloat(cfg.StateTaxRate)).Round(2)
	tipAmount := decimal.NewFromFloat(tip).Round(2)
	fee := decimal.Zero
	if orderType == OrderTypeDelivery {
		fee = decimal.NewFromFloat(cfg.DeliveryFee)
	}
	total := sub.Add(cityTax).Add(stateTax).Add(fee).Add(tipAmount).Round(2)

	return Totals{
		Subtotal:    sub.InexactFloat64(),
		CityTax:     cityTax.InexactFloat64(),
		StateTax:    stateTax.InexactFloat64(),
		DeliveryFee: fee.InexactFloat64(),
		Tip:         tipAmount.InexactFloat64(),
		Total:       total.InexactFloat64(),
	}
}

// round2 rounds a money amount to cents. Amounts live as float64 on the
// NUMERIC-backed models, so every rounding step goes through decimal to
// keep float artifacts out of displayed prices.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// NewOrderNumber mints an order number of the form ORD-A1B2C3-47. The
// trailing two digits are the short code read back to the customer.
func NewOrderNumber() string {
	hex := strings.ToUpper(uuid.NewString()[:8])
	hex = strings.ReplaceAll(hex, "-", "")[:6]
	return fmt.Sprintf("ORD-%s-%02d", hex, rand.Intn(100))
}

// ShortOrderNumber returns the two-digit voice code of a full order
// number.
func ShortOrderNumber(orderNumber string) string {
	if i := strings.LastIndex(orderNumber, "-"); i >= 0 && i+1 < len(orderNumber) {
		return orderNumber[i+1:]
	}
	return orderNumber
}
