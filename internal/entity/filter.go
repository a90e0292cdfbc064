package entity

// Filter is the equality predicate supported by the mirror: any combination
// of id and owning company id. The zero value matches everything.
type Filter struct {
	ID        string
	CompanyID string
}

// Match reports whether e satisfies the filter.
func (f Filter) Match(e Entity) bool {
	if f.ID != "" && e.ID != f.ID {
		return false
	}
	if f.CompanyID != "" && e.CompanyID != f.CompanyID {
		return false
	}
	return true
}
