package engine

import (
	"context"
	"io"
	"testing"

	"github.com/bagelworks/orderbot-backend/pkg/logger"
	"github.com/rs/zerolog"
)

type stubCatalog struct {
	out map[string]bool
}

func (s *stubCatalog) BasePrice(category, name string) float64 {
	switch category {
	case "bagel":
		return 2.50
	case "drink":
		switch name {
		case "latte/small":
			return 4.00
		case "latte/medium":
			return 4.75
		case "latte/large":
			return 5.50
		default:
			return 3.00
		}
	}
	return 0
}

func (s *stubCatalog) ModifierPrice(name string) float64 {
	prices := map[string]float64{
		"scallion cream cheese": 1.50,
		"cream cheese":          1.50,
		"butter":                0.75,
		"lox":                   5.00,
		"bacon":                 2.00,
		"egg":                   1.50,
		"avocado":               2.00,
	}
	if p, ok := prices[name]; ok {
		return p
	}
	return 0.50
}

func (s *stubCatalog) InStock(category, name string) bool {
	return !s.out[category+"/"+name]
}

type stubClassifier struct {
	intent Intent
	err    error
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ string, _ Snapshot) (Intent, error) {
	s.calls++
	if s.err != nil {
		return IntentUnknown, s.err
	}
	return s.intent, nil
}

var testPricing = PricingConfig{
	CityTaxRate:  0.045,
	StateTaxRate: 0.04,
	DeliveryFee:  2.99,
}

var testStore = StoreInfo{
	Name:    "The Bagel Shop",
	Address: "123 Main Street",
	Phone:   "555-0100",
	Hours:   "6am to 3pm, every day",
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "engine-test",
		Level:       zerolog.Disabled,
		Output:      io.Discard,
	})
}

func newTestOrchestrator(t *testing.T, catalog Catalog, classifier Classifier) *Orchestrator {
	t.Helper()
	if catalog == nil {
		catalog = &stubCatalog{}
	}
	if classifier == nil {
		classifier = &stubClassifier{}
	}

	greeting, err := NewGreetingHandler(testStore)
	if err != nil {
		t.Fatalf("greeting handler: %v", err)
	}
	delivery, err := NewDeliveryHandler(testStore, DeliveryOptions{})
	if err != nil {
		t.Fatalf("delivery handler: %v", err)
	}
	bagel, err := NewBagelHandler(catalog)
	if err != nil {
		t.Fatalf("bagel handler: %v", err)
	}
	drink, err := NewDrinkHandler(catalog)
	if err != nil {
		t.Fatalf("drink handler: %v", err)
	}
	checkout, err := NewCheckoutHandler(catalog, testPricing, testStore)
	if err != nil {
		t.Fatalf("checkout handler: %v", err)
	}

	registry, err := NewRegistry(greeting, delivery, bagel, drink, checkout)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	orch, err := NewOrchestrator(registry, classifier, testLogger())
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return orch
}

func turn(t *testing.T, orch *Orchestrator, state *OrderState, utterance string) string {
	t.Helper()
	reply, err := orch.Process(context.Background(), state, utterance)
	if err != nil {
		t.Fatalf("process %q: %v", utterance, err)
	}
	return reply
}
