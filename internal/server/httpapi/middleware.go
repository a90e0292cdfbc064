package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/obralink/obralink/internal/server/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

func (r *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authz := req.Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(authz, "Bearer ")
		claims, err := auth.ParseToken(token, r.secretKey)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(req.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func getClaims(ctx context.Context) *auth.Claims {
	if v := ctx.Value(claimsContextKey); v != nil {
		if c, ok := v.(*auth.Claims); ok {
			return c
		}
	}
	return nil
}
