package entity

// The merge policy is replace-by-id: when a complete record arrives it wins
// wholesale, when only a partial payload is known its fields are shallow
// merged over the existing body. There is no conflict detection — the
// policy cannot tell a stale remote snapshot from an authoritative update,
// so the later merge wins regardless of which write was actually newer.
// Safe under the single-designated-writer-per-entity workload; a known
// hazard for cross-role fields (admin toggling an account flag while the
// tenant edits unrelated fields).

// Upsert merges incoming into set by id: an unseen id is appended, a known
// id is replaced in place so the set keeps its order. At most one entity
// per id survives.
func Upsert(set []Entity, incoming Entity) []Entity {
	for i, e := range set {
		if e.ID == incoming.ID {
			set[i] = incoming
			return set
		}
	}
	return append(set, incoming)
}

// Patch shallow-merges the named fields over e's body and returns the
// result. Used for partial payloads such as a mark-read flag.
func Patch(e Entity, fields Body) Entity {
	out := e.Clone()
	for k, v := range fields {
		out.Fields[k] = v
	}
	return out
}

// PartitionByCompany splits set into the entities owned by companyID and
// everything else, preserving order. Hydration uses it to replace one
// tenant's slice of a kind without touching other tenants' cached rows.
func PartitionByCompany(set []Entity, companyID string) (own, others []Entity) {
	for _, e := range set {
		if e.CompanyID == companyID {
			own = append(own, e)
		} else {
			others = append(others, e)
		}
	}
	return own, others
}
