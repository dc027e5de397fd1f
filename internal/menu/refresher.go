package menu

import (
	"context"
	"sync/atomic"
	"time"

	pkgerrors "github.com/bagelworks/orderbot-backend/pkg/errors"
	"github.com/bagelworks/orderbot-backend/pkg/logger"
)

// Refresher keeps a menu snapshot warm on an interval. Reads are
// lock-free; a failed refresh keeps serving the previous snapshot.
type Refresher struct {
	svc      Service
	log      *logger.Logger
	interval time.Duration

	current atomic.Pointer[Snapshot]
}

func NewRefresher(svc Service, logg *logger.Logger, interval time.Duration) (*Refresher, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "menu service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{svc: svc, log: logg, interval: interval}, nil
}

// Start loads the first snapshot synchronously, then refreshes in the
// background until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	snap, err := r.svc.Snapshot(ctx)
	if err != nil {
		return err
	}
	r.current.Store(snap)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := r.svc.Snapshot(ctx)
				if err != nil {
					r.log.Warn(ctx, "menu refresh failed: "+err.Error())
					continue
				}
				r.current.Store(snap)
			}
		}
	}()
	return nil
}

func (r *Refresher) snapshot() *Snapshot {
	if snap := r.current.Load(); snap != nil {
		return snap
	}
	// Before the first load everything prices by fallback.
	return &Snapshot{}
}

func (r *Refresher) BasePrice(category, name string) float64 {
	return r.snapshot().BasePrice(category, name)
}

func (r *Refresher) ModifierPrice(name string) float64 {
	return r.snapshot().ModifierPrice(name)
}

func (r *Refresher) InStock(category, name string) bool {
	return r.snapshot().InStock(category, name)
}
