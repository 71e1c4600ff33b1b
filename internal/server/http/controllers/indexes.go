package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rzbill/docket/internal/indexing"
	"github.com/rzbill/docket/pkg/log"
)

// IndexesController manages a tenant's index definitions.
type IndexesController struct {
	logger log.Logger
}

// NewIndexesController creates a new indexes controller.
func NewIndexesController(logger log.Logger) *IndexesController {
	return &IndexesController{logger: logger}
}

// RegisterRoutes registers index routes on a tenant-scoped router.
func (c *IndexesController) RegisterRoutes(r chi.Router) {
	r.Get("/indexes", c.handleList)
	r.Post("/indexes", c.handleCreate)
	r.Delete("/indexes/{id}", c.handleDrop)
}

func (c *IndexesController) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"indexes": tenantFrom(r).Indexes.List()})
}

func (c *IndexesController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req indexCreateReq
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	def, err := tenantFrom(r).Indexes.Create(req.Name)
	if errors.Is(err, indexing.ErrIndexExists) {
		writeError(w, http.StatusConflict, "index already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create index")
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

// handleDrop removes the index and reports how many pending tasks went with it.
func (c *IndexesController) handleDrop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index id")
		return
	}
	t := tenantFrom(r)
	n, err := t.Indexes.Drop(r.Context(), int32(id))
	switch {
	case errors.Is(err, indexing.ErrIndexNotFound):
		writeError(w, http.StatusNotFound, "index not found")
	case errors.Is(err, indexing.ErrIndexBusy):
		writeError(w, http.StatusConflict, "index is locked")
	case err != nil:
		c.logger.Error("drop index failed", log.Tenant(t.Name), log.Int64("index", id), log.Err(err))
		writeError(w, http.StatusInternalServerError, "failed to drop index")
	default:
		writeJSON(w, http.StatusOK, dropResp{TasksRemoved: n})
	}
}
