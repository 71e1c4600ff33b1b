package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rzbill/docket/internal/runtime"
)

// GeneralController handles endpoints that are not tenant-scoped.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes.
func (c *GeneralController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/healthz", c.handleHealth)
	r.Get("/v1/tenants", c.handleListTenants)
}

// handleHealth returns 200 OK with {"status": "ok"} if healthy, 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *GeneralController) handleListTenants(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	for _, t := range c.rt.Tenants() {
		names = append(names, t.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": names})
}
