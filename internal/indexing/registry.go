package indexing

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"github.com/rzbill/docket/internal/tasks"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/pkg/log"
)

var (
	ErrIndexNotFound = errors.New("indexing: index not found")
	ErrIndexExists   = errors.New("indexing: index already exists")
	ErrIndexBusy     = errors.New("indexing: index is locked")
)

// Def is a persisted index definition.
type Def struct {
	ID          int32  `json:"id"`
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Registry tracks one tenant's indexes. IDs feeds dequeue's valid set and
// Busy its skip set.
type Registry struct {
	db     *pebblestore.DB
	tenant string
	table  *tasktable.Table
	queue  *tasks.Queue
	logger log.Logger

	mu   sync.RWMutex
	defs map[int32]Def
	next int32
	busy *xsync.MapOf[int32, struct{}]
}

func defsPrefix(tenant string) []byte {
	return []byte(fmt.Sprintf("ns/%s/indexes/", tenant))
}

func defKey(tenant string, id int32) []byte {
	k := defsPrefix(tenant)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return append(k, b[:]...)
}

// OpenRegistry loads the tenant's index definitions.
func OpenRegistry(db *pebblestore.DB, table *tasktable.Table, queue *tasks.Queue, logger log.Logger) (*Registry, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	r := &Registry{
		db:     db,
		tenant: table.Tenant(),
		table:  table,
		queue:  queue,
		logger: logger.WithComponent("indexing").With(log.Tenant(table.Tenant())),
		defs:   make(map[int32]Def),
		next:   1,
		busy:   xsync.NewMapOf[int32, struct{}](),
	}
	it, err := db.NewIter(pebblestore.PrefixBounds(defsPrefix(r.tenant)))
	if err != nil {
		return nil, err
	}
	defer it.Close()
	for ok := it.First(); ok; ok = it.Next() {
		var d Def
		if err := json.Unmarshal(it.Value(), &d); err != nil {
			r.logger.Warn("skipping unreadable index definition", log.Err(err))
			continue
		}
		r.defs[d.ID] = d
		if d.ID >= r.next {
			r.next = d.ID + 1
		}
	}
	return r, it.Error()
}

// Create registers a new index named name.
func (r *Registry) Create(name string) (Def, error) {
	if name == "" {
		return Def{}, errors.New("indexing: index name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.defs {
		if d.Name == name {
			return Def{}, errors.Wrap(ErrIndexExists, name)
		}
	}
	d := Def{ID: r.next, Name: name, CreatedAtMs: time.Now().UnixMilli()}
	b, err := json.Marshal(d)
	if err != nil {
		return Def{}, err
	}
	if err := r.db.Set(defKey(r.tenant, d.ID), b); err != nil {
		return Def{}, errors.Wrap(err, "indexing: persist definition")
	}
	r.defs[d.ID] = d
	r.next++
	r.logger.Info("index created", log.Int32("index", d.ID), log.Str("name", name))
	return d, nil
}

// Get returns the definition for id.
func (r *Registry) Get(id int32) (Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// List returns definitions ordered by id.
func (r *Registry) List() []Def {
	r.mu.RLock()
	out := make([]Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns every existing index.
func (r *Registry) IDs() tasks.IndexSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := make(tasks.IndexSet, len(r.defs))
	for id := range r.defs {
		s[id] = struct{}{}
	}
	return s
}

// Busy returns the indexes currently locked.
func (r *Registry) Busy() tasks.IndexSet {
	s := make(tasks.IndexSet)
	r.busy.Range(func(id int32, _ struct{}) bool {
		s[id] = struct{}{}
		return true
	})
	return s
}

// Lock marks id busy so drain cycles pass over its tasks. It fails with
// ErrIndexBusy when id is already locked.
func (r *Registry) Lock(id int32) error {
	if _, loaded := r.busy.LoadOrStore(id, struct{}{}); loaded {
		return ErrIndexBusy
	}
	return nil
}

// Unlock clears a Lock.
func (r *Registry) Unlock(id int32) { r.busy.Delete(id) }

// Drop removes index id and its pending tasks, returning how many tasks were
// deleted. Tasks held by a concurrent drain are left behind as orphans; no
// later cycle returns them.
func (r *Registry) Drop(ctx context.Context, id int32) (int, error) {
	if _, ok := r.Get(id); !ok {
		return 0, ErrIndexNotFound
	}
	if err := r.Lock(id); err != nil {
		return 0, err
	}
	defer r.Unlock(id)

	r.mu.Lock()
	if err := r.db.Delete(defKey(r.tenant, id)); err != nil {
		r.mu.Unlock()
		return 0, errors.Wrap(err, "indexing: delete definition")
	}
	delete(r.defs, id)
	r.mu.Unlock()

	var removed int
	err := r.table.Update(ctx, func(tx *tasktable.Tx) error {
		var err error
		removed, err = r.queue.DeleteTasksForIndex(ctx, tx, id)
		return err
	})
	if err != nil {
		r.logger.Warn("index dropped but its tasks were not removed", log.Int32("index", id), log.Err(err))
		return 0, err
	}
	if removed > 0 {
		if err := r.table.CompactIndex(id); err != nil {
			r.logger.Warn("compacting dropped index span failed", log.Int32("index", id), log.Err(err))
		}
	}
	r.logger.Info("index dropped", log.Int32("index", id), log.Int("tasks_removed", removed))
	return removed, nil
}
