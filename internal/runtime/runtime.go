package runtime

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	cfgpkg "github.com/rzbill/docket/internal/config"
	"github.com/rzbill/docket/internal/indexing"
	"github.com/rzbill/docket/internal/metrics"
	"github.com/rzbill/docket/internal/namespace"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"github.com/rzbill/docket/internal/tasks"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/pkg/log"
)

var (
	// ErrTenantNotFound is returned for unknown tenants when auto-create is off.
	ErrTenantNotFound = errors.New("runtime: tenant not found")
	// ErrTooManyTenants is returned when tenants.maxTenants would be exceeded.
	ErrTooManyTenants = errors.New("runtime: tenant limit reached")
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        log.Logger
	// Applier receives merged tasks; LogApplier when nil.
	Applier indexing.Applier
}

// Runtime wires storage, tenants, the task queue and the drain worker for a
// single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	logger log.Logger
	queue  *tasks.Queue
	rule   namespace.NameRule
	worker *indexing.Worker

	mu      sync.RWMutex
	tenants map[string]*indexing.Tenant
}

// Open initializes the underlying storage, reopens every known tenant and
// makes sure the default tenant exists.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg := opts.Config
	rule, err := namespace.NewNameRule(cfg.Tenants.NameRegex)
	if err != nil {
		return nil, err
	}

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       metrics.StorageHook{},
	})
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		db:      db,
		config:  cfg,
		logger:  logger.WithComponent("runtime"),
		queue:   tasks.New(tasks.Options{MergeBudget: cfg.Queue.MergeBudget, Logger: logger}),
		rule:    rule,
		tenants: make(map[string]*indexing.Tenant),
	}
	if err := rt.load(); err != nil {
		_ = db.Close()
		return nil, err
	}

	applier := opts.Applier
	if applier == nil {
		applier = indexing.LogApplier{Logger: logger.WithComponent("applier")}
	}
	rt.worker, err = indexing.NewWorker(indexing.WorkerOptions{
		Queue:             rt.queue,
		Tenants:           rt,
		Applier:           applier,
		Logger:            logger,
		Schedule:          cfg.Worker.Schedule,
		MaxBatchesPerKind: cfg.Worker.MaxBatchesPerKind,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return rt, nil
}

func (r *Runtime) load() error {
	metas, err := namespace.List(r.db)
	if err != nil {
		return err
	}
	for _, m := range metas {
		if _, err := r.openTenant(m.Name); err != nil {
			return err
		}
	}
	if name := r.config.Tenants.Default; name != "" {
		if _, err := r.EnsureTenant(name); err != nil {
			return err
		}
	}
	r.logger.Info("runtime opened", log.Int("tenants", len(r.tenants)))
	return nil
}

// Close closes underlying resources. Stop the worker first.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// EnsureTenant creates a tenant if absent and returns it.
func (r *Runtime) EnsureTenant(name string) (*indexing.Tenant, error) {
	if err := r.rule.Check(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tenants[name]; ok {
		return t, nil
	}
	if limit := r.config.Tenants.MaxTenants; limit > 0 && len(r.tenants) >= limit {
		return nil, ErrTooManyTenants
	}
	if _, err := namespace.EnsureNamespace(r.db, name); err != nil {
		return nil, err
	}
	return r.openTenantLocked(name)
}

// ResolveTenant returns an existing tenant, creating it when auto-create is on.
func (r *Runtime) ResolveTenant(name string) (*indexing.Tenant, error) {
	r.mu.RLock()
	t, ok := r.tenants[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	if !r.config.Tenants.AllowAutoCreate {
		return nil, ErrTenantNotFound
	}
	return r.EnsureTenant(name)
}

// Tenants returns every open tenant ordered by name.
func (r *Runtime) Tenants() []*indexing.Tenant {
	r.mu.RLock()
	out := make([]*indexing.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Runtime) openTenant(name string) (*indexing.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openTenantLocked(name)
}

func (r *Runtime) openTenantLocked(name string) (*indexing.Tenant, error) {
	table, err := tasktable.Open(r.db, name)
	if err != nil {
		return nil, err
	}
	reg, err := indexing.OpenRegistry(r.db, table, r.queue, r.logger)
	if err != nil {
		return nil, err
	}
	t := &indexing.Tenant{Name: name, Table: table, Indexes: reg}
	r.tenants[name] = t
	return t, nil
}

// Queue returns the task queue.
func (r *Runtime) Queue() *tasks.Queue { return r.queue }

// Worker returns the drain worker; it is not started by Open.
func (r *Runtime) Worker() *indexing.Worker { return r.worker }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the root logger.
func (r *Runtime) Logger() log.Logger { return r.logger }
