package indexing

import (
	"context"

	"github.com/rzbill/docket/internal/metrics"
	"github.com/rzbill/docket/internal/tasks"
	"github.com/rzbill/docket/pkg/log"
)

// Applier performs a merged task durably. The worker deletes the consumed
// records only after Apply returns nil, and within the same transaction.
type Applier interface {
	Apply(ctx context.Context, tenant string, t tasks.Task) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, tenant string, t tasks.Task) error

func (f ApplierFunc) Apply(ctx context.Context, tenant string, t tasks.Task) error {
	return f(ctx, tenant, t)
}

// LogApplier logs each merged task. It is the default when no index engine
// is attached.
type LogApplier struct {
	Logger log.Logger
}

func (a LogApplier) Apply(_ context.Context, tenant string, t tasks.Task) error {
	metrics.AppliedKeys.WithLabelValues(string(t.Kind())).Add(float64(t.NumberOfKeys()))
	if a.Logger != nil {
		a.Logger.Info("applied task",
			log.Tenant(tenant),
			log.Str("kind", string(t.Kind())),
			log.Int32("index", t.Index()),
			log.Int("keys", t.NumberOfKeys()))
	}
	return nil
}
