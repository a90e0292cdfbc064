// Package entities provides the mirror-side storage for the six
// synchronized kinds: one PostgreSQL table per kind, upsertable by id and
// selectable by equality on the indexed columns.
package entities

import (
	"context"

	"github.com/obralink/obralink/internal/entity"
)

// Repository is the storage contract the HTTP API serves from.
type Repository interface {
	// Upsert inserts or replaces the entity by id. Idempotent: replaying
	// the same entity leaves the table unchanged. Reports whether the row
	// was newly inserted so the caller can classify the change event.
	// Replacing a row owned by a different company is refused with
	// common.ErrCompanyMismatch; ownership is never reassigned.
	Upsert(ctx context.Context, kind entity.Kind, e entity.Entity) (inserted bool, err error)

	// SelectWhere returns rows matching the filter's equality predicates.
	SelectWhere(ctx context.Context, kind entity.Kind, f entity.Filter) ([]entity.Entity, error)

	// DeleteWhere removes matching rows and returns their ids, so delete
	// events can be published per row.
	DeleteWhere(ctx context.Context, kind entity.Kind, f entity.Filter) ([]string, error)
}
