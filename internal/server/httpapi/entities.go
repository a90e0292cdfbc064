package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/server/auth"
	"github.com/obralink/obralink/internal/server/events"
	"github.com/obralink/obralink/internal/server/models"
)

func kindParam(req *http.Request) (entity.Kind, error) {
	return entity.ParseKind(chi.URLParam(req, "kind"))
}

func filterFromQuery(req *http.Request) entity.Filter {
	q := req.URL.Query()
	return entity.Filter{
		ID:        q.Get("id"),
		CompanyID: q.Get("companyId"),
	}
}

// scopeFilter narrows a tenant's filter to their own company on
// tenant-scoped kinds. Returns false when the requested filter reaches
// outside the caller's company.
func scopeFilter(claims *auth.Claims, kind entity.Kind, f entity.Filter) (entity.Filter, bool) {
	if claims.Role == models.RoleAdmin || !kind.TenantScoped() {
		return f, true
	}
	if f.CompanyID != "" && f.CompanyID != claims.CompanyID {
		return f, false
	}
	f.CompanyID = claims.CompanyID
	return f, true
}

func (r *Router) handleUpsert(w http.ResponseWriter, req *http.Request) {
	kind, err := kindParam(req)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown kind")
		return
	}

	var e entity.Entity
	if err := json.NewDecoder(req.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if e.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	claims := getClaims(req.Context())
	if claims.Role != models.RoleAdmin {
		if !kind.TenantScoped() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		if e.CompanyID == "" {
			e.CompanyID = claims.CompanyID
		} else if e.CompanyID != claims.CompanyID {
			writeError(w, http.StatusForbidden, "company mismatch")
			return
		}
	}

	inserted, err := r.entities.Upsert(req.Context(), kind, e)
	if err != nil {
		// the row exists and belongs to someone else; the payload check
		// above cannot catch this, only the store knows the current owner
		if errors.Is(err, common.ErrCompanyMismatch) {
			writeError(w, http.StatusForbidden, "company mismatch")
			return
		}
		r.log.Error(req.Context(), "upsert failed", "kind", kind, "id", e.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}

	evType := events.EventUpdate
	if inserted {
		evType = events.EventInsert
	}
	r.hub.Publish(kind, events.Event{Type: evType, Record: e})

	writeJSON(w, http.StatusOK, e)
}

func (r *Router) handleSelect(w http.ResponseWriter, req *http.Request) {
	kind, err := kindParam(req)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown kind")
		return
	}

	f, ok := scopeFilter(getClaims(req.Context()), kind, filterFromQuery(req))
	if !ok {
		writeError(w, http.StatusForbidden, "company mismatch")
		return
	}

	set, err := r.entities.SelectWhere(req.Context(), kind, f)
	if err != nil {
		r.log.Error(req.Context(), "select failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "select failed")
		return
	}
	if set == nil {
		set = []entity.Entity{}
	}
	writeJSON(w, http.StatusOK, set)
}

func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) {
	kind, err := kindParam(req)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown kind")
		return
	}

	f := filterFromQuery(req)
	if f.ID == "" && f.CompanyID == "" {
		writeError(w, http.StatusBadRequest, "filter is required")
		return
	}

	claims := getClaims(req.Context())
	if claims.Role != models.RoleAdmin && !kind.TenantScoped() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	f, ok := scopeFilter(claims, kind, f)
	if !ok {
		writeError(w, http.StatusForbidden, "company mismatch")
		return
	}

	ids, err := r.entities.DeleteWhere(req.Context(), kind, f)
	if err != nil {
		r.log.Error(req.Context(), "delete failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}

	for _, id := range ids {
		r.hub.Publish(kind, events.Event{
			Type:   events.EventDelete,
			Record: entity.Entity{ID: id, CompanyID: f.CompanyID},
		})
	}

	writeJSON(w, http.StatusOK, map[string][]string{"deleted": ids})
}
