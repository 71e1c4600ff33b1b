package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rzbill/docket/internal/runtime"
	"github.com/rzbill/docket/internal/tasks"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/pkg/log"
)

const defaultListLimit = 100

// TasksController exposes enqueue, debug enumeration, stats and on-demand
// drain for a tenant.
type TasksController struct {
	rt     *runtime.Runtime
	logger log.Logger
}

// NewTasksController creates a new tasks controller.
func NewTasksController(rt *runtime.Runtime, logger log.Logger) *TasksController {
	return &TasksController{rt: rt, logger: logger}
}

// RegisterRoutes registers task routes on a tenant-scoped router.
func (c *TasksController) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", c.handleList)
	r.Post("/tasks", c.handleEnqueue)
	r.Get("/tasks/stats", c.handleStats)
	r.Post("/drain", c.handleDrain)
}

// handleList streams pending records through the optional CEL filter.
func (c *TasksController) handleList(w http.ResponseWriter, r *http.Request) {
	t := tenantFrom(r)
	filter, err := tasks.CompileFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = defaultListLimit
	}

	tx := t.Table.Begin()
	defer tx.Rollback()
	list, err := tasks.CollectPending(c.rt.Queue().ListPendingForDebug(tx), filter, time.Now(), limit)
	if err != nil {
		c.logger.Error("list tasks failed", log.Tenant(t.Name), log.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, listResp{Tasks: list})
}

func (c *TasksController) handleStats(w http.ResponseWriter, r *http.Request) {
	t := tenantFrom(r)
	tx := t.Table.Begin()
	defer tx.Rollback()
	q := c.rt.Queue()
	has, err := q.HasTasks(tx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	n, err := q.ApproximateTaskCount(tx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResp{HasTasks: has, ApproximateCount: n, LastID: t.Table.LastID()})
}

func (c *TasksController) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	t := tenantFrom(r)
	var req enqueueReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	task, err := req.task()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var rowID uint64
	err = t.Table.Update(r.Context(), func(tx *tasktable.Tx) error {
		var err error
		rowID, err = c.rt.Queue().Enqueue(r.Context(), tx, task, time.Now())
		return err
	})
	if err != nil {
		c.logger.Error("enqueue failed", log.Tenant(t.Name), log.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to enqueue")
		return
	}
	writeJSON(w, http.StatusCreated, enqueueResp{ID: rowID})
}

func (c *TasksController) handleDrain(w http.ResponseWriter, r *http.Request) {
	t := tenantFrom(r)
	stats, err := c.rt.Worker().DrainTenant(r.Context(), t)
	if err != nil {
		c.logger.Warn("drain failed", log.Tenant(t.Name), log.Err(err))
		writeJSON(w, http.StatusInternalServerError, drainResp{CycleStats: stats, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, drainResp{CycleStats: stats})
}
