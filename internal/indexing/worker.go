package indexing

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rzbill/docket/internal/metrics"
	"github.com/rzbill/docket/internal/tasks"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/pkg/log"
)

// Tenant bundles what a drain cycle needs for one tenant.
type Tenant struct {
	Name    string
	Table   *tasktable.Table
	Indexes *Registry
}

// TenantSource lists the tenants to drain.
type TenantSource interface {
	Tenants() []*Tenant
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Queue   *tasks.Queue
	Tenants TenantSource
	Applier Applier
	Logger  log.Logger
	// Schedule is a cron spec; defaults to "@every 1s".
	Schedule string
	// MaxBatchesPerKind bounds dequeues per kind and tenant in one cycle.
	MaxBatchesPerKind int
}

// CycleStats summarizes a drain cycle.
type CycleStats struct {
	Batches   int `json:"batches"`
	Keys      int `json:"keys"`
	Conflicts int `json:"conflicts"`
}

func (s *CycleStats) add(o CycleStats) {
	s.Batches += o.Batches
	s.Keys += o.Keys
	s.Conflicts += o.Conflicts
}

// Worker runs drain cycles: dequeue a merged task per kind, apply it, then
// delete the consumed records, one transaction per batch.
type Worker struct {
	queue    *tasks.Queue
	tenants  TenantSource
	applier  Applier
	logger   log.Logger
	schedule string
	maxBatch int

	mu   sync.Mutex
	cron *cron.Cron
}

// NewWorker validates opts and returns a stopped Worker.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.Queue == nil || opts.Tenants == nil {
		return nil, errors.New("indexing: worker needs a queue and a tenant source")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Applier == nil {
		opts.Applier = LogApplier{Logger: opts.Logger}
	}
	if opts.Schedule == "" {
		opts.Schedule = "@every 1s"
	}
	if opts.MaxBatchesPerKind <= 0 {
		opts.MaxBatchesPerKind = 64
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, errors.Wrapf(err, "indexing: schedule %q", opts.Schedule)
	}
	return &Worker{
		queue:    opts.Queue,
		tenants:  opts.Tenants,
		applier:  opts.Applier,
		logger:   opts.Logger.WithComponent("worker"),
		schedule: opts.Schedule,
		maxBatch: opts.MaxBatchesPerKind,
	}, nil
}

// Start runs RunCycle on the schedule until Stop or ctx is done. Overlapping
// runs are skipped.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return errors.New("indexing: worker already started")
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{w.logger})))
	if _, err := c.AddFunc(w.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.RunCycle(ctx); err != nil {
			w.logger.Warn("drain cycle failed", log.Err(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	w.cron = c
	w.logger.Info("drain worker started", log.Str("schedule", w.schedule))
	return nil
}

// Stop halts scheduling and waits for a running cycle to finish or ctx to
// expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCycle drains every tenant once.
func (w *Worker) RunCycle(ctx context.Context) (CycleStats, error) {
	var (
		total CycleStats
		errs  []error
	)
	for _, t := range w.tenants.Tenants() {
		st, err := w.DrainTenant(ctx, t)
		total.add(st)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "tenant %s", t.Name))
		}
	}
	return total, joinErrors(errs)
}

// DrainTenant runs up to MaxBatchesPerKind batches per kind for t. A write
// conflict ends the kind for this cycle; the records stay for the next one.
func (w *Worker) DrainTenant(ctx context.Context, t *Tenant) (CycleStats, error) {
	logger := w.logger.With(log.Tenant(t.Name), log.Str("cycle", uuid.NewString()))
	var (
		stats CycleStats
		errs  []error
	)
	for _, kind := range tasks.Kinds {
		for i := 0; i < w.maxBatch; i++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			keys, ok, err := w.drainOnce(ctx, logger, t, kind)
			if tasks.IsConcurrency(err) {
				stats.Conflicts++
				logger.Debug("drain conflict, retrying next cycle", log.Str("kind", string(kind)), log.Err(err))
				break
			}
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "kind %s", kind))
				break
			}
			if !ok {
				break
			}
			stats.Batches++
			stats.Keys += keys
		}
	}
	return stats, joinErrors(errs)
}

// drainOnce processes one merged batch of kind in its own transaction.
func (w *Worker) drainOnce(ctx context.Context, logger log.Logger, t *Tenant, kind tasks.Kind) (int, bool, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.DrainCycleDuration.WithLabelValues(string(kind), status).Observe(time.Since(start).Seconds())
	}()

	tx := t.Table.Begin()
	seen := tasks.NewIDSet()
	task, ok, err := w.queue.TryDequeueMerged(ctx, tx, kind, t.Indexes.Busy(), t.Indexes.IDs(), seen)
	if err != nil {
		tx.Rollback()
		if tasks.IsConcurrency(err) {
			status = "conflict"
		}
		return 0, false, err
	}
	if !ok {
		// Commit keeps deletes of poisoned records.
		status = "empty"
		return 0, false, tx.Commit(ctx)
	}
	if err := w.applier.Apply(ctx, t.Name, task); err != nil {
		tx.Rollback()
		return 0, false, errors.Wrap(err, "apply")
	}
	if _, err := w.queue.DeleteTasks(ctx, tx, seen); err != nil {
		tx.Rollback()
		if tasks.IsConcurrency(err) {
			status = "conflict"
		}
		return 0, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	status = "ok"
	logger.Debug("drained batch",
		log.Str("kind", string(kind)),
		log.Int("records", len(seen)),
		log.Int("keys", task.NumberOfKeys()))
	return task.NumberOfKeys(), true, nil
}

func joinErrors(errs []error) error { return stderrors.Join(errs...) }

type cronLogger struct{ l log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kvFields(keysAndValues), log.Err(err))...)
}

func kvFields(kv []interface{}) []log.Field {
	fields := make([]log.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, log.Any(key, kv[i+1]))
	}
	return fields
}
