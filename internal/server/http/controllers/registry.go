package controllers

import (
	"github.com/go-chi/chi/v5"
	"github.com/rzbill/docket/internal/runtime"
	"github.com/rzbill/docket/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general *GeneralController
	tasks   *TasksController
	indexes *IndexesController
	tenants *tenantResolver
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, logger log.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt),
		tasks:   NewTasksController(rt, logger),
		indexes: NewIndexesController(logger),
		tenants: &tenantResolver{rt: rt},
	}
}

// RegisterAllRoutes registers all controller routes on r. Tenant-scoped
// controllers are mounted under /v1/tenants/{tenant}.
func (c *ControllerRegistry) RegisterAllRoutes(r chi.Router) {
	c.general.RegisterRoutes(r)
	r.Route("/v1/tenants/{tenant}", func(r chi.Router) {
		r.Use(c.tenants.middleware)
		c.tasks.RegisterRoutes(r)
		c.indexes.RegisterRoutes(r)
	})
}
