package geo

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
	"github.com/bagelworks/orderbot-backend/pkg/maps"
	"github.com/rs/zerolog"
)

type stubSearcher struct {
	candidates []maps.Candidate
	err        error
	lastQuery  string
}

func (s *stubSearcher) SearchAddress(_ context.Context, query string) ([]maps.Candidate, error) {
	s.lastQuery = query
	return s.candidates, s.err
}

func geoLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "geo-test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestValidateAddressNormalizesFromCandidate(t *testing.T) {
	searcher := &stubSearcher{candidates: []maps.Candidate{{
		Street: "45 Court Street",
		City:   "Brooklyn",
		Zip:    "11201",
	}}}
	v, err := NewVerifier(searcher, geoLogger())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	d := &engine.DeliveryState{Street: "45 court st", City: "brooklyn", Zip: "11201"}
	if err := v.ValidateAddress(context.Background(), d); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if d.Street != "45 Court Street" {
		t.Fatalf("street not normalized: %q", d.Street)
	}
	if searcher.lastQuery != "45 court st, brooklyn 11201" {
		t.Fatalf("unexpected query %q", searcher.lastQuery)
	}
}

func TestValidateAddressRejectsUnknownAddress(t *testing.T) {
	v, err := NewVerifier(&stubSearcher{}, geoLogger())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	d := &engine.DeliveryState{Street: "1 nowhere lane", City: "atlantis", Zip: "00000"}
	if err := v.ValidateAddress(context.Background(), d); err == nil {
		t.Fatal("unknown address passed validation")
	}
}

func TestValidateAddressLookupFailureAcceptsAsGiven(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("quota exceeded")}
	v, err := NewVerifier(searcher, geoLogger())
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	d := &engine.DeliveryState{Street: "45 court street", City: "brooklyn", Zip: "11201"}
	if err := v.ValidateAddress(context.Background(), d); err != nil {
		t.Fatalf("lookup failure blocked the order: %v", err)
	}
	if d.Street != "45 court street" {
		t.Fatalf("address mutated on failed lookup: %q", d.Street)
	}
}

func TestZoneCheckerFromZips(t *testing.T) {
	check := ZoneCheckerFromZips([]string{"11201", " 11205 "})
	if check == nil {
		t.Fatal("expected checker for non-empty list")
	}
	if !check(context.Background(), "11201") {
		t.Fatal("11201 should be deliverable")
	}
	if !check(context.Background(), "11205") {
		t.Fatal("trimmed zip should be deliverable")
	}
	if check(context.Background(), "99999") {
		t.Fatal("99999 should be out of zone")
	}

	if ZoneCheckerFromZips(nil) != nil {
		t.Fatal("empty list should disable the checker")
	}
}
