package transports

import (
	"context"
	"time"
)

// Task mirrors one pending task row as listed by the server.
type Task struct {
	ID      uint64    `json:"id"`
	Kind    string    `json:"kind"`
	IndexID int32     `json:"indexId"`
	AddedAt time.Time `json:"addedAt"`
	Corrupt bool      `json:"corrupt,omitempty"`
}

// EnqueueRequest describes a task to add.
type EnqueueRequest struct {
	Kind    string            `json:"kind"`
	IndexID *int32            `json:"indexId,omitempty"`
	Keys    []string          `json:"keys,omitempty"`
	Etags   map[string]uint64 `json:"etags,omitempty"`
}

// Stats is the per-tenant queue summary.
type Stats struct {
	HasTasks         bool   `json:"hasTasks"`
	ApproximateCount int64  `json:"approximateCount"`
	LastID           uint64 `json:"lastId"`
}

// DrainResult reports one manual drain cycle.
type DrainResult struct {
	Batches   int    `json:"batches"`
	Keys      int    `json:"keys"`
	Conflicts int    `json:"conflicts"`
	Error     string `json:"error,omitempty"`
}

// Index is a registered index definition.
type Index struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Transport abstracts how the CLI reaches a docket server.
type Transport interface {
	ListTasks(ctx context.Context, tenant, filter string, limit int) ([]Task, error)
	Stats(ctx context.Context, tenant string) (Stats, error)
	Enqueue(ctx context.Context, tenant string, req EnqueueRequest) (uint64, error)
	Drain(ctx context.Context, tenant string) (DrainResult, error)
	ListIndexes(ctx context.Context, tenant string) ([]Index, error)
	CreateIndex(ctx context.Context, tenant, name string) (Index, error)
	DropIndex(ctx context.Context, tenant string, id int32) (removed int, err error)
}
