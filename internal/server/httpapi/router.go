// Package httpapi exposes the mirror over HTTP: auth, per-kind entity
// collections, the change-event stream and document presigning.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obralink/obralink/internal/logging"
	"github.com/obralink/obralink/internal/server/auth"
	"github.com/obralink/obralink/internal/server/events"
	"github.com/obralink/obralink/internal/server/repositories/entities"
)

type authService interface {
	Register(ctx context.Context, username, password, companyName string) (*auth.Result, error)
	Login(ctx context.Context, username, password string) (*auth.Result, error)
}

type documentSigner interface {
	GetPresignedPutUrl(ctx context.Context) (string, string, error)
	GetPresignedGetUrl(ctx context.Context, key string) (string, error)
}

type Router struct {
	auth      authService
	entities  entities.Repository
	documents documentSigner
	hub       *events.Hub
	secretKey []byte
	log       logging.Logger
}

func NewRouter(authSvc authService, entitiesRepo entities.Repository, documents documentSigner,
	hub *events.Hub, secretKey []byte, log logging.Logger) http.Handler {

	r := &Router{
		auth:      authSvc,
		entities:  entitiesRepo,
		documents: documents,
		hub:       hub,
		secretKey: secretKey,
		log:       log.With("module", "httpapi"),
	}

	mux := chi.NewRouter()

	mux.Get("/health", r.handleHealth)
	mux.Post("/api/v1/auth/register", r.handleRegister)
	mux.Post("/api/v1/auth/login", r.handleLogin)

	mux.Group(func(pr chi.Router) {
		pr.Use(r.authMiddleware)
		pr.Post("/api/v1/documents", r.handlePresignPut)
		pr.Get("/api/v1/documents", r.handlePresignGet)
		pr.Get("/api/v1/{kind}/events", r.handleEvents)
		pr.Post("/api/v1/{kind}", r.handleUpsert)
		pr.Get("/api/v1/{kind}", r.handleSelect)
		pr.Delete("/api/v1/{kind}", r.handleDelete)
	})

	return mux
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
