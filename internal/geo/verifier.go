package geo

import (
	"context"
	"strings"

	"github.com/bagelworks/orderbot-backend/internal/engine"
	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
	"github.com/bagelworks/orderbot-backend/pkg/maps"
)

type addressSearcher interface {
	SearchAddress(ctx context.Context, query string) ([]maps.Candidate, error)
}

// Verifier checks collected delivery addresses against the places API
// and normalizes them to the canonical form Google returns.
type Verifier struct {
	client addressSearcher
	log    *logger.Logger
}

func NewVerifier(client addressSearcher, logg *logger.Logger) (*Verifier, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address search client required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Verifier{client: client, log: logg}, nil
}

// ValidateAddress resolves the collected street/city/zip. No candidate
// means the address doesn't exist as given. A lookup failure is not the
// customer's fault, so the address passes and a warning is logged.
func (v *Verifier) ValidateAddress(ctx context.Context, d *engine.DeliveryState) error {
	query := d.Street + ", " + d.City + " " + d.Zip
	candidates, err := v.client.SearchAddress(ctx, query)
	if err != nil {
		v.log.Warn(ctx, "address lookup failed, accepting as given: "+err.Error())
		return nil
	}
	if len(candidates) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address not found")
	}

	best := candidates[0]
	if best.Street != "" {
		d.Street = best.Street
	}
	if best.City != "" {
		d.City = best.City
	}
	if best.Zip != "" {
		d.Zip = best.Zip
	}
	return nil
}

// ZoneCheckerFromZips builds a zone checker from a fixed zip allowlist.
// An empty list means the shop delivers everywhere, so no checker.
func ZoneCheckerFromZips(zips []string) engine.ZoneChecker {
	if len(zips) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(zips))
	for _, z := range zips {
		if z = strings.TrimSpace(z); z != "" {
			allowed[z] = true
		}
	}
	return func(_ context.Context, zip string) bool {
		return allowed[zip]
	}
}
