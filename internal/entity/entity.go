// Package entity defines the shape contract shared by all six synchronized
// kinds (accounts, records, messages, transactions, coupons, notifications)
// and the merge policy used whenever an incoming entity meets the cache.
package entity

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/obralink/obralink/internal/common"
)

// Kind names one synchronized table. The value doubles as the stable blob
// name in the local cache and the table name on the mirror.
type Kind string

const (
	Accounts      Kind = "accounts"
	Records       Kind = "records"
	Messages      Kind = "messages"
	Transactions  Kind = "transactions"
	Coupons       Kind = "coupons"
	Notifications Kind = "notifications"
)

// Kinds returns all synchronized kinds in a fixed order.
func Kinds() []Kind {
	return []Kind{Accounts, Records, Messages, Transactions, Coupons, Notifications}
}

// ParseKind validates a kind name coming off the wire.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", common.ErrUnknownKind
}

// TenantScoped reports whether entities of this kind carry an owning
// company id. Coupons and notifications are platform-wide.
func (k Kind) TenantScoped() bool {
	return k != Coupons && k != Notifications
}

// Body is the mutable field set of an entity. Every field is independently
// overwritable; the sync layer transports bodies without interpreting them.
type Body = map[string]any

// Entity is the common shape of all synchronized kinds: a globally unique
// id assigned at creation and never reassigned, an owning company id for
// tenant-scoped kinds (for accounts the id and the company id coincide),
// and an opaque body. There is deliberately no version or logical clock on
// the shape; see Merge for the consequences.
type Entity struct {
	ID        string
	CompanyID string
	Fields    Body
}

// New returns an entity with a freshly assigned id.
func New(companyID string, fields Body) Entity {
	return Entity{ID: uuid.NewString(), CompanyID: companyID, Fields: fields}
}

// Clone returns a deep-enough copy: the field map is copied one level deep,
// which matches the shallow-merge granularity of the merge policy.
func (e Entity) Clone() Entity {
	fields := make(Body, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return Entity{ID: e.ID, CompanyID: e.CompanyID, Fields: fields}
}

// On the wire an entity is a single flat JSON object: the reserved keys
// "id" and "companyId" plus the body fields.

const (
	keyID        = "id"
	keyCompanyID = "companyId"
)

func (e Entity) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		if k == keyID || k == keyCompanyID {
			continue
		}
		obj[k] = v
	}
	obj[keyID] = e.ID
	if e.CompanyID != "" {
		obj[keyCompanyID] = e.CompanyID
	}
	return json.Marshal(obj)
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if id, ok := obj[keyID].(string); ok {
		e.ID = id
	}
	if cid, ok := obj[keyCompanyID].(string); ok {
		e.CompanyID = cid
	}
	delete(obj, keyID)
	delete(obj, keyCompanyID)
	e.Fields = obj
	return nil
}
