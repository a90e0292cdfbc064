// Package remote implements the Remote Mirror Client: a thin HTTP/JSON
// client to the hosted mirror, exposing idempotent upsert-by-id, filtered
// select, filtered delete, and the live change-event channel.
//
// Failure philosophy (shared with every caller): the mirror is best-effort.
// Upsert failures are logged and swallowed by the Push Writer, select
// failures leave the cache as it was, and a dead event channel is covered
// by the reconciler's polling pass.
package remote

import (
	"context"

	"github.com/obralink/obralink/internal/entity"
)

// EventType classifies a change-event from the mirror.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is one change observed on a mirror table. For deletes the record
// carries only its id (and company id when known).
type Event struct {
	Type   EventType     `json:"eventType"`
	Record entity.Entity `json:"newRecord"`
}

// LoginResult is the mirror's answer to a successful login or registration.
type LoginResult struct {
	UserID      string `json:"userId"`
	CompanyID   string `json:"companyId"`
	Role        string `json:"role"`
	AccessToken string `json:"accessToken"`
}

// Client is the device's view of the mirror.
type Client interface {
	// Register creates a tenant account plus its credentials and logs in.
	Register(ctx context.Context, username, password, companyName string) (*LoginResult, error)

	// Login exchanges credentials for an access token.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// Upsert inserts or replaces the entity by id on the mirror.
	// Calling it twice with the same entity leaves the mirror unchanged.
	Upsert(ctx context.Context, kind entity.Kind, e entity.Entity) error

	// SelectWhere returns the mirror's slice matching the filter.
	SelectWhere(ctx context.Context, kind entity.Kind, f entity.Filter) ([]entity.Entity, error)

	// DeleteWhere removes matching rows from the mirror.
	DeleteWhere(ctx context.Context, kind entity.Kind, f entity.Filter) error

	// Subscribe opens the live change channel for one table slice. The
	// returned channel closes when ctx is cancelled or the stream breaks;
	// there is no delivery guarantee, polling remains the backstop.
	Subscribe(ctx context.Context, kind entity.Kind, f entity.Filter) (<-chan Event, error)

	// PresignPut returns a storage key and a presigned URL the device can
	// upload an archived quote PDF to.
	PresignPut(ctx context.Context) (key, url string, err error)

	// PresignGet returns a presigned download URL for an archived document.
	PresignGet(ctx context.Context, key string) (string, error)
}
