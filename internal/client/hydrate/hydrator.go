// Package hydrate implements the one-shot pull-and-merge of a tenant's full
// remote data set into the local cache, run when the tenant's identity is
// confirmed at login. A tenant may have created data on another device; a
// cold cache would otherwise start empty and silently diverge from the
// mirror.
package hydrate

import (
	"context"

	"github.com/obralink/obralink/internal/client/cache"
	"github.com/obralink/obralink/internal/client/remote"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
)

type Hydrator struct {
	store  cache.Store
	remote remote.Client
	log    logging.Logger
}

func New(store cache.Store, rc remote.Client, log logging.Logger) *Hydrator {
	return &Hydrator{store: store, remote: rc, log: log.With("module", "hydrate")}
}

// Hydrate pulls the tenant's account, records and messages and merges them
// into the cache. Each step is independently fallible and independently
// swallowed: partial hydration is accepted rather than failing the login,
// so Hydrate never returns an error. Cached data of other tenants is left
// byte-for-byte untouched.
func (h *Hydrator) Hydrate(ctx context.Context, tenantID string) {
	h.mergeAccount(ctx, tenantID)
	h.replaceTenantSlice(ctx, entity.Records, tenantID)
	h.replaceTenantSlice(ctx, entity.Messages, tenantID)
}

// mergeAccount fetches the account body for the tenant and replaces (or
// inserts) the cache's copy. The account id is the tenant id.
func (h *Hydrator) mergeAccount(ctx context.Context, tenantID string) {
	set, err := h.remote.SelectWhere(ctx, entity.Accounts, entity.Filter{ID: tenantID})
	if err != nil {
		h.log.Warn(ctx, "account fetch failed, keeping cached copy", "tenant", tenantID, "error", err)
		return
	}
	if len(set) == 0 {
		return
	}
	if err := h.store.Write(ctx, entity.Accounts, set[0]); err != nil {
		h.log.Error(ctx, "account merge failed", "tenant", tenantID, "error", err)
	}
}

// replaceTenantSlice partitions the cached set into "belongs to tenantID"
// and "other", discards only the former, and reassembles it with the
// freshly fetched remote slice.
func (h *Hydrator) replaceTenantSlice(ctx context.Context, kind entity.Kind, tenantID string) {
	fetched, err := h.remote.SelectWhere(ctx, kind, entity.Filter{CompanyID: tenantID})
	if err != nil {
		h.log.Warn(ctx, "hydration fetch failed, keeping cached slice",
			"kind", kind, "tenant", tenantID, "error", err)
		return
	}

	existing, err := h.store.Read(ctx, kind)
	if err != nil {
		h.log.Error(ctx, "cache read failed during hydration", "kind", kind, "error", err)
		return
	}

	_, others := entity.PartitionByCompany(existing, tenantID)
	if err := h.store.WriteAll(ctx, kind, append(others, fetched...)); err != nil {
		h.log.Error(ctx, "cache replace failed during hydration", "kind", kind, "error", err)
	}
}
