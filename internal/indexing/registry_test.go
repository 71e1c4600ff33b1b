package indexing

import (
	"context"
	"testing"
	"time"

	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"github.com/rzbill/docket/internal/tasks"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

type fixture struct {
	db    *pebblestore.DB
	table *tasktable.Table
	queue *tasks.Queue
	reg   *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	table, err := tasktable.Open(db, "acme")
	require.NoError(t, err)
	q := tasks.New(tasks.Options{})
	reg, err := OpenRegistry(db, table, q, nil)
	require.NoError(t, err)
	return &fixture{db: db, table: table, queue: q, reg: reg}
}

func (f *fixture) enqueue(t *testing.T, ts ...tasks.Task) {
	t.Helper()
	require.NoError(t, f.table.Update(ctx, func(tx *tasktable.Tx) error {
		for _, task := range ts {
			if _, err := f.queue.Enqueue(ctx, tx, task, time.Now()); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (f *fixture) pending(t *testing.T) []tasks.TaskMetadata {
	t.Helper()
	tx := f.table.Begin()
	defer tx.Rollback()
	out, err := tasks.CollectPending(f.queue.ListPendingForDebug(tx), tasks.Filter{}, time.Now(), 0)
	require.NoError(t, err)
	return out
}

func TestRegistryCreateListReopen(t *testing.T) {
	f := newFixture(t)
	a, err := f.reg.Create("users/by-name")
	require.NoError(t, err)
	b, err := f.reg.Create("orders/totals")
	require.NoError(t, err)
	assert.Equal(t, int32(1), a.ID)
	assert.Equal(t, int32(2), b.ID)

	_, err = f.reg.Create("users/by-name")
	assert.ErrorIs(t, err, ErrIndexExists)
	_, err = f.reg.Create("")
	assert.Error(t, err)

	assert.Equal(t, tasks.NewIndexSet(1, 2), f.reg.IDs())

	reopened, err := OpenRegistry(f.db, f.table, f.queue, nil)
	require.NoError(t, err)
	assert.Equal(t, f.reg.List(), reopened.List())
	c, err := reopened.Create("third")
	require.NoError(t, err)
	assert.Equal(t, int32(3), c.ID)
}

func TestRegistryDropRemovesTasks(t *testing.T) {
	f := newFixture(t)
	a, err := f.reg.Create("a")
	require.NoError(t, err)
	b, err := f.reg.Create("b")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.enqueue(t, tasks.NewReduce(a.ID, "k"))
	}
	f.enqueue(t, tasks.NewReduce(b.ID, "k"), tasks.NewRemoveFromIndex(b.ID, "d"))

	n, err := f.reg.Drop(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, ok := f.reg.Get(a.ID)
	assert.False(t, ok)
	assert.Empty(t, f.reg.Busy())

	left := f.pending(t)
	require.Len(t, left, 2)
	for _, md := range left {
		assert.Equal(t, b.ID, md.IndexID)
	}

	_, err = f.reg.Drop(ctx, a.ID)
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestRegistryLock(t *testing.T) {
	f := newFixture(t)
	d, err := f.reg.Create("a")
	require.NoError(t, err)

	require.NoError(t, f.reg.Lock(d.ID))
	assert.ErrorIs(t, f.reg.Lock(d.ID), ErrIndexBusy)
	assert.True(t, f.reg.Busy().Has(d.ID))
	_, err = f.reg.Drop(ctx, d.ID)
	assert.ErrorIs(t, err, ErrIndexBusy)

	f.reg.Unlock(d.ID)
	assert.False(t, f.reg.Busy().Has(d.ID))
}
