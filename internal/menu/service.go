package menu

import (
	"context"
	"strings"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
)

// Fallback prices for items the menu table doesn't carry, so an
// incomplete menu degrades to sane defaults instead of free food.
const (
	fallbackBagelPrice    = 2.50
	fallbackModifierPrice = 0.50
)

var fallbackDrinkPrices = map[string]float64{
	"small":  3.00,
	"medium": 3.50,
	"large":  4.00,
}

// Service builds immutable menu snapshots for the dialogue engine.
type Service interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "menu repository required")
	}
	return &service{repo: repo}, nil
}

// Snapshot is a point-in-time read of the menu. It satisfies the
// engine's catalog interface; lookups never fail and never touch the
// database. Drink names are composite "type/size" keys.
type Snapshot struct {
	prices    map[string]float64
	modifiers map[string]float64
	soldOut   map[string]bool
}

func (s *service) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu")
	}

	snap := &Snapshot{
		prices:    make(map[string]float64),
		modifiers: make(map[string]float64),
		soldOut:   make(map[string]bool),
	}
	for i := range rows {
		row := &rows[i]
		name := strings.ToLower(row.Name)
		if row.Kind == "modifier" {
			snap.modifiers[name] = row.Price
		} else {
			snap.prices[row.Kind+"/"+name] = row.Price
		}
		if !row.InStock {
			snap.soldOut[row.Kind+"/"+baseName(name)] = true
		}
	}
	return snap, nil
}

// BasePrice resolves an item price, falling back to category defaults
// for anything the menu doesn't list.
func (s *Snapshot) BasePrice(category, name string) float64 {
	if p, ok := s.prices[category+"/"+strings.ToLower(name)]; ok {
		return p
	}
	if category == "drink" {
		if p, ok := fallbackDrinkPrices[sizeOf(name)]; ok {
			return p
		}
		return fallbackDrinkPrices["medium"]
	}
	return fallbackBagelPrice
}

func (s *Snapshot) ModifierPrice(name string) float64 {
	if p, ok := s.modifiers[strings.ToLower(name)]; ok {
		return p
	}
	return fallbackModifierPrice
}

// InStock is true unless the menu explicitly marks the item sold out.
// Unknown items are assumed available since they price by fallback.
func (s *Snapshot) InStock(category, name string) bool {
	return !s.soldOut[category+"/"+baseName(strings.ToLower(name))]
}

// baseName strips a "/size" suffix so a sold-out drink blocks every
// size.
func baseName(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return name
}

func sizeOf(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}
