// Package cache implements the Local Cache Store: the durable, per-device
// table set that the UI renders from. Every successful Write is visible to
// the next Read; remote mirroring happens elsewhere and never blocks or
// rolls back a local mutation.
package cache

import (
	"context"

	"github.com/obralink/obralink/internal/entity"
)

// Store is the device-local source of truth, one logical table per entity
// kind. Implementations must be safe for use from multiple goroutines: the
// merge-and-store step for one call runs to completion before another can
// interleave.
//
// The store does no tenant filtering of its own — callers filter by company
// id after reading.
type Store interface {
	// Read returns the cached set for kind in insertion order.
	Read(ctx context.Context, kind entity.Kind) ([]entity.Entity, error)

	// ReadOne returns the cached entity with the given id, or
	// common.ErrNotFound.
	ReadOne(ctx context.Context, kind entity.Kind, id string) (*entity.Entity, error)

	// Write inserts the entity if its id is unseen, otherwise replaces the
	// existing entry wholesale (the merge policy's full-replace arm).
	Write(ctx context.Context, kind entity.Kind, e entity.Entity) error

	// WriteAll replaces the whole cached set for kind. Hydration uses it to
	// reassemble a kind after partition-and-replace.
	WriteAll(ctx context.Context, kind entity.Kind, set []entity.Entity) error

	// Delete removes the entity with the given id. Deleting an absent id is
	// a no-op.
	Delete(ctx context.Context, kind entity.Kind, id string) error

	// Session returns the persisted session descriptor, or
	// common.ErrNotFound when the device has never logged in.
	Session(ctx context.Context) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	ClearSession(ctx context.Context) error

	// PDFDownloads returns the export counter for a tenant.
	PDFDownloads(ctx context.Context, companyID string) (int, error)

	// IncrementPDFDownloads bumps the export counter and returns the new
	// value.
	IncrementPDFDownloads(ctx context.Context, companyID string) (int, error)
}

// Session is the persisted login descriptor: who this device belongs to and
// the access token for the mirror.
type Session struct {
	UserID      string `json:"userId"`
	CompanyID   string `json:"companyId"`
	Role        string `json:"role"`
	AccessToken string `json:"accessToken"`
}
