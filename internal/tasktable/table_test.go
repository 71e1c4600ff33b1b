package tasktable

import (
	"context"
	"errors"
	"testing"
	"time"

	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	require.NoError(t, err)
	return db
}

func openTestTable(t *testing.T) *Table {
	t.Helper()
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	tbl, err := Open(db, "tenant")
	require.NoError(t, err)
	return tbl
}

func insert(t *testing.T, tbl *Table, rows ...Row) []uint64 {
	t.Helper()
	var ids []uint64
	require.NoError(t, tbl.Update(context.Background(), func(tx *Tx) error {
		for _, r := range rows {
			rowID, err := tx.Insert(r)
			if err != nil {
				return err
			}
			ids = append(ids, rowID)
		}
		return nil
	}))
	return ids
}

// collect returns a function that drains a cursor, so callers can write
// collect(t)(tx.Scan()).
func collect(t *testing.T) func(Cursor, error) []Row {
	return func(c Cursor, err error) []Row {
		t.Helper()
		require.NoError(t, err)
		defer c.Close()
		var out []Row
		for c.Next() {
			out = append(out, c.Row())
		}
		require.NoError(t, c.Err())
		return out
	}
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	tbl := openTestTable(t)
	ids := insert(t, tbl,
		Row{Kind: "a", IndexID: 1, AddedAt: time.Now()},
		Row{Kind: "a", IndexID: 2, AddedAt: time.Now()},
		Row{Kind: "b", IndexID: 1, AddedAt: time.Now()},
	)
	assert.Equal(t, []uint64{1, 2, 3}, ids)

	tx := tbl.Begin()
	defer tx.Rollback()
	rows := collect(t)(tx.Scan())
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, ids[i], r.ID)
	}
	first, last, ok, err := tx.Bounds()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(3), last)
}

func TestBoundsEmpty(t *testing.T) {
	tbl := openTestTable(t)
	tx := tbl.Begin()
	defer tx.Rollback()
	_, _, ok, err := tx.Bounds()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUncommittedInsertInvisible(t *testing.T) {
	tbl := openTestTable(t)
	writer := tbl.Begin()
	defer writer.Rollback()
	_, err := writer.Insert(Row{Kind: "a", IndexID: 1})
	require.NoError(t, err)

	reader := tbl.Begin()
	defer reader.Rollback()
	assert.Empty(t, collect(t)(reader.Scan()))
	// the writer sees its own insert
	assert.Len(t, collect(t)(writer.Scan()), 1)
}

func TestGetAndDelete(t *testing.T) {
	tbl := openTestTable(t)
	ids := insert(t, tbl, Row{Kind: "a", IndexID: 4, Data: []byte("x")})
	ctx := context.Background()

	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		r, found, err := tx.Get(ids[0])
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte("x"), r.Data)
		return tx.Delete(r)
	}))

	tx := tbl.Begin()
	defer tx.Rollback()
	_, found, err := tx.Get(ids[0])
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, collect(t)(tx.SeekIndexPrefix(4)))
}

func TestSeekIndexIsApproximate(t *testing.T) {
	tbl := openTestTable(t)
	insert(t, tbl,
		Row{Kind: "remove-from-index", IndexID: 1},
		Row{Kind: "remove-from-index-legacy", IndexID: 1},
		Row{Kind: "reduce-index", IndexID: 1},
		Row{Kind: "remove-from-index", IndexID: 2},
	)
	tx := tbl.Begin()
	defer tx.Rollback()

	rows := collect(t)(tx.SeekIndex(1, "remove-from-index"))
	require.Len(t, rows, 2)
	kinds := []string{rows[0].Kind, rows[1].Kind}
	assert.ElementsMatch(t, []string{"remove-from-index", "remove-from-index-legacy"}, kinds)

	assert.Len(t, collect(t)(tx.SeekIndexPrefix(1)), 3)
	assert.Len(t, collect(t)(tx.SeekIndexPrefix(2)), 1)
	assert.Empty(t, collect(t)(tx.SeekIndexPrefix(3)))
}

func TestIdentityNotReusedAfterReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db := openTestDB(t, dir)
	tbl, err := Open(db, "tenant")
	require.NoError(t, err)
	ids := insert(t, tbl, Row{Kind: "a"}, Row{Kind: "a"})
	// delete the highest row, then roll back an insert to leave a gap
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		r, _, err := tx.Get(ids[1])
		if err != nil {
			return err
		}
		return tx.Delete(r)
	}))
	rolled := tbl.Begin()
	_, err = rolled.Insert(Row{Kind: "a"})
	require.NoError(t, err)
	rolled.Rollback()
	require.NoError(t, db.Close())

	db = openTestDB(t, dir)
	t.Cleanup(func() { _ = db.Close() })
	tbl, err = Open(db, "tenant")
	require.NoError(t, err)
	next := insert(t, tbl, Row{Kind: "a"})
	assert.Greater(t, next[0], ids[1])
}

func TestConcurrentDeleteConflicts(t *testing.T) {
	tbl := openTestTable(t)
	ids := insert(t, tbl, Row{Kind: "a", IndexID: 1})

	t1 := tbl.Begin()
	t2 := tbl.Begin()
	defer t2.Rollback()
	r1, _, err := t1.Get(ids[0])
	require.NoError(t, err)
	r2, _, err := t2.Get(ids[0])
	require.NoError(t, err)

	require.NoError(t, t1.Delete(r1))
	err = t2.Delete(r2)
	assert.True(t, errors.Is(err, ErrWriteConflict), "got %v", err)
	require.NoError(t, t1.Commit(context.Background()))
}

func TestCorruptRowSurfacedAndDeletable(t *testing.T) {
	tbl := openTestTable(t)
	ctx := context.Background()
	// write a raw garbage value directly under a row key
	require.NoError(t, tbl.db.Set(rowKey("tenant", 77), []byte{0xFF, 0x01}))

	var corrupt Row
	tx := tbl.Begin()
	rows := collect(t)(tx.Scan())
	tx.Rollback()
	require.Len(t, rows, 1)
	corrupt = rows[0]
	assert.True(t, corrupt.Corrupt)
	assert.Equal(t, uint64(77), corrupt.ID)

	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error { return tx.Delete(corrupt) }))
	tx = tbl.Begin()
	defer tx.Rollback()
	assert.Empty(t, collect(t)(tx.Scan()))
}

func TestCorruptRowReachableThroughIndex(t *testing.T) {
	tbl := openTestTable(t)
	// a readable index entry pointing at an unreadable row
	require.NoError(t, tbl.db.Set(indexKey("tenant", 3, "reduce-index", 77), nil))
	require.NoError(t, tbl.db.Set(rowKey("tenant", 77), []byte{0xFF, 0x01}))

	tx := tbl.Begin()
	defer tx.Rollback()
	for _, rows := range [][]Row{
		collect(t)(tx.SeekIndexPrefix(3)),
		collect(t)(tx.SeekIndex(3, "reduce-index")),
	} {
		require.Len(t, rows, 1)
		assert.Equal(t, uint64(77), rows[0].ID)
		assert.True(t, rows[0].Corrupt)
	}
}

func TestCompactIndexAfterBulkDelete(t *testing.T) {
	tbl := openTestTable(t)
	ctx := context.Background()
	insert(t, tbl,
		Row{Kind: "reduce-index", IndexID: 4, AddedAt: time.Now()},
		Row{Kind: "reduce-index", IndexID: 4, AddedAt: time.Now()},
		Row{Kind: "reduce-index", IndexID: 5, AddedAt: time.Now()},
	)
	require.NoError(t, tbl.Update(ctx, func(tx *Tx) error {
		for _, r := range collect(t)(tx.SeekIndexPrefix(4)) {
			if err := tx.Delete(r); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, tbl.CompactIndex(4))
	// an index with no entries compacts too
	require.NoError(t, tbl.CompactIndex(9))

	tx := tbl.Begin()
	defer tx.Rollback()
	assert.Empty(t, collect(t)(tx.SeekIndexPrefix(4)))
	assert.Len(t, collect(t)(tx.SeekIndexPrefix(5)), 1)
	assert.Len(t, collect(t)(tx.Scan()), 1)
}
