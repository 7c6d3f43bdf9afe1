package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// DriftStore is the slice of the event repository the reconciler needs:
// a scan for events whose booked count disagrees with the sum of their
// active reservation quantities, and a compare-and-set repair.
type DriftStore interface {
	ListCounterDrift(ctx context.Context) ([]repository.CounterDrift, error)
	RepairBookedCount(ctx context.Context, id string, observed, reconciled uint32) (bool, error)
}

// Reconciler periodically audits every event's booked count against
// its active reservations and repairs divergence. Drift only appears
// when a reservation write was persisted but the paired counter update
// failed (a partial failure the engine reports as DriftError); under
// normal operation every pass finds nothing.
type Reconciler struct {
	store     DriftStore
	publisher Publisher
	interval  time.Duration
	now       func() time.Time
}

// NewReconciler constructs a Reconciler. publisher may be nil; detected
// drift is then only logged. A non-positive interval defaults to one
// minute.
func NewReconciler(store DriftStore, publisher Publisher, interval time.Duration) *Reconciler {
	if store == nil {
		panic("nil store passed to NewReconciler")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{
		store:     store,
		publisher: publisher,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes reconciliation passes until the context is canceled. It
// is meant to be started as a goroutine from main.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				log.Printf("reconciler: pass failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single audit pass and returns the number of
// events whose counter was repaired. Each repair is a compare-and-set
// on the observed value, so a counter that moved legitimately between
// scan and repair is left alone and picked up on the next pass.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	drifts, err := r.store.ListCounterDrift(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for _, d := range drifts {
		log.Printf("reconciler: event %s booked_count=%d active_sum=%d", d.EventID, d.BookedCount, d.ActiveSum)
		r.publishDrift(ctx, d)
		ok, err := r.store.RepairBookedCount(ctx, d.EventID, d.BookedCount, d.ActiveSum)
		if err != nil {
			log.Printf("reconciler: repair of event %s failed: %v", d.EventID, err)
			continue
		}
		if ok {
			repaired++
		}
	}
	return repaired, nil
}

func (r *Reconciler) publishDrift(ctx context.Context, d repository.CounterDrift) {
	if r.publisher == nil {
		return
	}
	ev := queue.CapacityDriftEvent{
		EventID:    d.EventID,
		Reason:     "booked count diverged from active reservation quantities",
		DetectedAt: r.now().Format(time.RFC3339),
	}
	if err := r.publisher.PublishCapacityDrift(ctx, ev); err != nil {
		log.Printf("reconciler: publish drift event failed: %v", err)
	}
}
