package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/obralink/obralink/internal/server/models"
)

const keepAliveInterval = 15 * time.Second

// handleEvents streams change events for one kind as server-sent events.
// Tenants on tenant-scoped kinds only receive their own company's changes.
// The stream is best effort; devices reconcile periodically regardless.
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) {
	kind, err := kindParam(req)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown kind")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	claims := getClaims(req.Context())
	scope := ""
	if claims.Role != models.RoleAdmin && kind.TenantScoped() {
		scope = claims.CompanyID
	}

	ch, cancel := r.hub.Subscribe(kind, scope)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				r.log.Error(req.Context(), "failed to marshal event", "kind", kind, "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
