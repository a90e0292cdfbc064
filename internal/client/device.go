// Package client assembles the device-side sync layer: the local cache as
// the rendering source of truth, the fire-and-forget push to the mirror,
// login-time hydration, and the reconcilers that keep watched slices
// eventually consistent. The UI talks to Device only; no sync error ever
// surfaces to it as a user-visible failure.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/obralink/obralink/internal/client/cache"
	"github.com/obralink/obralink/internal/client/config"
	"github.com/obralink/obralink/internal/client/hydrate"
	"github.com/obralink/obralink/internal/client/push"
	"github.com/obralink/obralink/internal/client/remote"
	"github.com/obralink/obralink/internal/client/syncer"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
)

type Device struct {
	cfg      *config.Config
	store    cache.Store
	remote   remote.Client
	push     *push.Writer
	hydrator *hydrate.Hydrator
	log      logging.Logger
}

func NewDevice(cfg *config.Config, store cache.Store, rc remote.Client, log logging.Logger) *Device {
	return &Device{
		cfg:      cfg,
		store:    store,
		remote:   rc,
		push:     push.NewWriter(rc, log),
		hydrator: hydrate.New(store, rc, log),
		log:      log.With("module", "device"),
	}
}

// Register creates the tenant on the mirror, persists the session and
// hydrates (a fresh tenant's hydration is trivially empty).
func (d *Device) Register(ctx context.Context, username, password, companyName string) (*cache.Session, error) {
	res, err := d.remote.Register(ctx, username, password, companyName)
	if err != nil {
		return nil, err
	}
	return d.establishSession(ctx, res)
}

// Login confirms the tenant's identity against the mirror, persists the
// session descriptor and synchronously hydrates the cache. Hydration
// failures are swallowed inside the hydrator; only the credential exchange
// itself can fail the login.
func (d *Device) Login(ctx context.Context, username, password string) (*cache.Session, error) {
	res, err := d.remote.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return d.establishSession(ctx, res)
}

func (d *Device) establishSession(ctx context.Context, res *remote.LoginResult) (*cache.Session, error) {
	sess := &cache.Session{
		UserID:      res.UserID,
		CompanyID:   res.CompanyID,
		Role:        res.Role,
		AccessToken: res.AccessToken,
	}
	if err := d.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	d.hydrator.Hydrate(ctx, sess.CompanyID)
	return sess, nil
}

// Write commits the entity locally (synchronous, authoritative) and mirrors
// it asynchronously. The push can fail without the caller ever knowing;
// that is the design's local-wins contract.
func (d *Device) Write(ctx context.Context, kind entity.Kind, e entity.Entity) error {
	if err := d.store.Write(ctx, kind, e); err != nil {
		return err
	}
	d.push.Push(kind, e)
	return nil
}

// Patch applies a partial payload (e.g. a mark-read flag) by shallow merge
// and mirrors the merged result.
func (d *Device) Patch(ctx context.Context, kind entity.Kind, id string, fields entity.Body) (*entity.Entity, error) {
	current, err := d.store.ReadOne(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	patched := entity.Patch(*current, fields)
	if err := d.store.Write(ctx, kind, patched); err != nil {
		return nil, err
	}
	d.push.Push(kind, patched)
	return &patched, nil
}

// Delete removes the entity from both sides synchronously — the one remote
// call that is awaited. A remote failure is still swallowed: the local
// removal stands and the mirror row lingers until deleted again.
func (d *Device) Delete(ctx context.Context, kind entity.Kind, id string) error {
	if err := d.store.Delete(ctx, kind, id); err != nil {
		return err
	}
	if err := d.remote.DeleteWhere(ctx, kind, entity.Filter{ID: id}); err != nil {
		d.log.Warn(ctx, "mirror delete failed, local delete kept", "kind", kind, "id", id, "error", err)
	}
	return nil
}

func (d *Device) Read(ctx context.Context, kind entity.Kind) ([]entity.Entity, error) {
	return d.store.Read(ctx, kind)
}

func (d *Device) ReadOne(ctx context.Context, kind entity.Kind, id string) (*entity.Entity, error) {
	return d.store.ReadOne(ctx, kind, id)
}

func (d *Device) PDFDownloads(ctx context.Context, companyID string) (int, error) {
	return d.store.PDFDownloads(ctx, companyID)
}

func (d *Device) IncrementPDFDownloads(ctx context.Context, companyID string) (int, error) {
	return d.store.IncrementPDFDownloads(ctx, companyID)
}

// Sync starts the reconcilers for the logged-in session and blocks until
// ctx is cancelled. Tenant slices poll at the tenant interval; the
// platform-wide coupon and notification slices poll at the slower global
// interval. An admin session watches every kind unfiltered.
func (d *Device) Sync(ctx context.Context) error {
	sess, err := d.store.Session(ctx)
	if err != nil {
		return err
	}

	type slice struct {
		kind     entity.Kind
		filter   entity.Filter
		interval time.Duration
	}

	var slices []slice
	if sess.Role == "admin" {
		for _, k := range entity.Kinds() {
			slices = append(slices, slice{kind: k, interval: d.cfg.TenantPollInterval})
		}
	} else {
		slices = []slice{
			{kind: entity.Accounts, filter: entity.Filter{ID: sess.CompanyID}, interval: d.cfg.TenantPollInterval},
			{kind: entity.Records, filter: entity.Filter{CompanyID: sess.CompanyID}, interval: d.cfg.TenantPollInterval},
			{kind: entity.Messages, filter: entity.Filter{CompanyID: sess.CompanyID}, interval: d.cfg.TenantPollInterval},
			{kind: entity.Transactions, filter: entity.Filter{CompanyID: sess.CompanyID}, interval: d.cfg.TenantPollInterval},
			{kind: entity.Coupons, interval: d.cfg.GlobalPollInterval},
			{kind: entity.Notifications, interval: d.cfg.GlobalPollInterval},
		}
	}

	var wg sync.WaitGroup
	for _, s := range slices {
		r := syncer.New(s.kind, s.filter, s.interval, d.store, d.remote, d.log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}
	wg.Wait()
	return nil
}

// Close drains in-flight pushes.
func (d *Device) Close() {
	d.push.Wait()
}
