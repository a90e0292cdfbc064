// Package syncer keeps one slice of the local cache eventually consistent
// with the mirror. There is a single reconciliation primitive: a periodic
// diff-and-merge pass over the relevant remote slice. The live change
// channel is a latency optimization only — an event merely wakes the pass
// up early, it is never a second merge code path. Polling is the
// correctness backstop, so a dropped event or a dead channel costs at most
// one poll period of staleness.
package syncer

import (
	"context"
	"time"

	"github.com/obralink/obralink/internal/client/cache"
	"github.com/obralink/obralink/internal/client/remote"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
)

// Reconciler watches one (kind, filter) slice. Run blocks until ctx is
// cancelled; cancelling tears down the subscription and the poll ticker
// together — neither outlives the other.
type Reconciler struct {
	kind     entity.Kind
	filter   entity.Filter
	interval time.Duration
	store    cache.Store
	remote   remote.Client
	log      logging.Logger
}

func New(kind entity.Kind, filter entity.Filter, interval time.Duration,
	store cache.Store, rc remote.Client, log logging.Logger) *Reconciler {
	return &Reconciler{
		kind:     kind,
		filter:   filter,
		interval: interval,
		store:    store,
		remote:   rc,
		log:      log.With("module", "syncer", "kind", kind),
	}
}

// Run subscribes, runs an immediate first pass, then loops until ctx is
// cancelled. A broken channel downgrades to pure polling; resubscription is
// attempted on the next tick.
func (r *Reconciler) Run(ctx context.Context) {
	events := r.subscribe(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if events == nil {
				events = r.subscribe(ctx)
			}
			r.reconcile(ctx)

		case _, ok := <-events:
			if !ok {
				r.log.Warn(ctx, "change channel closed, polling continues")
				events = nil
				continue
			}
			// coalesce bursts into one pass
		drain:
			for {
				select {
				case _, ok := <-events:
					if !ok {
						events = nil
						break drain
					}
				default:
					break drain
				}
			}
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) subscribe(ctx context.Context) <-chan remote.Event {
	events, err := r.remote.Subscribe(ctx, r.kind, r.filter)
	if err != nil {
		r.log.Warn(ctx, "live channel unavailable, relying on polling", "error", err)
		return nil
	}
	return events
}

// reconcile pulls the remote slice and merges it entity by entity. Remote
// failure leaves the cache exactly as it was. Rows absent from the remote
// are left alone: remote deletions never delete locally, only the explicit
// delete operation removes cached rows.
func (r *Reconciler) reconcile(ctx context.Context) {
	set, err := r.remote.SelectWhere(ctx, r.kind, r.filter)
	if err != nil {
		r.log.Warn(ctx, "reconcile pass failed", "error", err)
		return
	}
	for _, e := range set {
		if err := r.store.Write(ctx, r.kind, e); err != nil {
			r.log.Error(ctx, "cache write failed during reconcile", "id", e.ID, "error", err)
		}
	}
}
