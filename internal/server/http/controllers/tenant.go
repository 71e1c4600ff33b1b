package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rzbill/docket/internal/indexing"
	"github.com/rzbill/docket/internal/namespace"
	"github.com/rzbill/docket/internal/runtime"
)

type tenantKey struct{}

// tenantResolver loads the {tenant} route parameter into the request context.
type tenantResolver struct {
	rt *runtime.Runtime
}

func (t *tenantResolver) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := t.rt.ResolveTenant(chi.URLParam(r, "tenant"))
		switch {
		case errors.Is(err, runtime.ErrTenantNotFound):
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		case errors.Is(err, namespace.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "invalid tenant name")
			return
		case errors.Is(err, runtime.ErrTooManyTenants):
			writeError(w, http.StatusConflict, "tenant limit reached")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to open tenant")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey{}, tenant)))
	})
}

// tenantFrom returns the tenant attached by the middleware.
func tenantFrom(r *http.Request) *indexing.Tenant {
	t, _ := r.Context().Value(tenantKey{}).(*indexing.Tenant)
	return t
}
