package tasktable

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"github.com/rzbill/docket/pkg/id"
)

// ErrWriteConflict is the table's write-conflict signal: another transaction
// touched the same row. It is distinct from every other storage failure.
var ErrWriteConflict = pebblestore.ErrWriteConflict

// Session is the transactional handle queue operations run against. *Tx
// implements it over Pebble; tabletest provides an in-memory fake.
type Session interface {
	// Insert stores a new row and returns its engine-assigned identity.
	Insert(row Row) (uint64, error)
	// Get is the identity point seek. found is false when the row is absent.
	Get(rowID uint64) (row Row, found bool, err error)
	// Delete removes a row previously read through this session.
	Delete(row Row) error
	// Scan walks rows in primary (identity) order.
	Scan() (Cursor, error)
	// SeekIndex walks the approximate (indexID, kind) range of the composite
	// index, in identity order. Callers must re-check Row.Kind.
	SeekIndex(indexID int32, kind string) (Cursor, error)
	// SeekIndexPrefix walks every row for indexID, in (kind, identity) order.
	SeekIndexPrefix(indexID int32) (Cursor, error)
	// Bounds returns the first and last identity in primary order.
	Bounds() (first, last uint64, ok bool, err error)
}

// Cursor is a forward-only iterator over rows.
type Cursor interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Table is one tenant's task table.
type Table struct {
	db     *pebblestore.DB
	tenant string
	seq    *id.Sequence
}

// Open restores the identity sequence for tenant and returns its table. The
// sequence resumes after the larger of the persisted mark and the last row.
func Open(db *pebblestore.DB, tenant string) (*Table, error) {
	seq := id.NewSequence(0)
	if b, err := db.Get(lastIDKey(tenant)); err == nil {
		if v, ok := id.FromKey(b); ok {
			seq.Observe(v)
		}
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return nil, err
	}

	it, err := db.NewIter(pebblestore.PrefixBounds(rowPrefix(tenant)))
	if err != nil {
		return nil, err
	}
	if it.Last() {
		if v, ok := id.FromKey(it.Key()); ok {
			seq.Observe(v)
		}
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	return &Table{db: db, tenant: tenant, seq: seq}, nil
}

// Tenant returns the tenant this table belongs to.
func (t *Table) Tenant() string { return t.tenant }

// LastID returns the highest identity handed out so far.
func (t *Table) LastID() uint64 { return t.seq.Last() }

// CompactIndex compacts the composite-index span of indexID, reclaiming the
// tombstones a bulk delete leaves there.
func (t *Table) CompactIndex(indexID int32) error {
	b := pebblestore.PrefixBounds(indexPrefix(t.tenant, indexID))
	return t.db.CompactRange(b.LowerBound, b.UpperBound)
}

// Begin starts a transaction against the table.
func (t *Table) Begin() *Tx {
	return &Tx{table: t, txn: t.db.Begin()}
}

// Update runs fn in a transaction, committing when fn returns nil.
func (t *Table) Update(ctx context.Context, fn func(*Tx) error) error {
	tx := t.Begin()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit(ctx)
}

// Tx is a transaction over one tenant's task table.
type Tx struct {
	table  *Table
	txn    *pebblestore.Txn
	marked bool
}

var _ Session = (*Tx)(nil)

// Commit applies the transaction.
func (tx *Tx) Commit(ctx context.Context) error { return tx.txn.Commit(ctx) }

// Rollback discards the transaction.
func (tx *Tx) Rollback() { tx.txn.Rollback() }

// Insert assigns the next identity and stores r with its index entry.
// Identities of rolled back inserts are not reused.
func (tx *Tx) Insert(r Row) (uint64, error) {
	r.ID = tx.table.seq.Next()
	r.Corrupt = false
	tenant := tx.table.tenant
	if err := tx.txn.Set(rowKey(tenant, r.ID), encodeRow(r)); err != nil {
		return 0, err
	}
	if err := tx.txn.Set(indexKey(tenant, r.IndexID, r.Kind, r.ID), nil); err != nil {
		return 0, err
	}
	tx.markOnCommit()
	return r.ID, nil
}

// markOnCommit persists the sequence high-water mark with the commit. The
// hook runs under the store's commit lock, so the mark never moves backwards.
func (tx *Tx) markOnCommit() {
	if tx.marked {
		return
	}
	tx.marked = true
	key := lastIDKey(tx.table.tenant)
	seq := tx.table.seq
	tx.txn.OnCommit(func(b *pebble.Batch) error {
		return b.Set(key, id.Key(seq.Last()), nil)
	})
}

func (tx *Tx) Get(rowID uint64) (Row, bool, error) {
	v, err := tx.txn.Get(rowKey(tx.table.tenant, rowID))
	if errors.Is(err, pebble.ErrNotFound) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, err
	}
	return rowFromValue(rowID, v), true, nil
}

// Delete removes r and its index entry. Corrupt rows carry no usable index
// columns, so only the row itself is removed; index cursors skip entries
// whose row is gone.
func (tx *Tx) Delete(r Row) error {
	tenant := tx.table.tenant
	if err := tx.txn.Delete(rowKey(tenant, r.ID)); err != nil {
		return err
	}
	if r.Corrupt {
		return nil
	}
	return tx.txn.Delete(indexKey(tenant, r.IndexID, r.Kind, r.ID))
}

func (tx *Tx) Scan() (Cursor, error) {
	it, err := tx.txn.NewIter(pebblestore.PrefixBounds(rowPrefix(tx.table.tenant)))
	if err != nil {
		return nil, err
	}
	return &rowCursor{it: it}, nil
}

func (tx *Tx) SeekIndex(indexID int32, kind string) (Cursor, error) {
	return tx.indexCursor(indexRangePrefix(tx.table.tenant, indexID, kind))
}

func (tx *Tx) SeekIndexPrefix(indexID int32) (Cursor, error) {
	return tx.indexCursor(indexPrefix(tx.table.tenant, indexID))
}

func (tx *Tx) indexCursor(prefix []byte) (Cursor, error) {
	it, err := tx.txn.NewIter(pebblestore.PrefixBounds(prefix))
	if err != nil {
		return nil, err
	}
	return &indexCursor{tx: tx, it: it}, nil
}

func (tx *Tx) Bounds() (uint64, uint64, bool, error) {
	it, err := tx.txn.NewIter(pebblestore.PrefixBounds(rowPrefix(tx.table.tenant)))
	if err != nil {
		return 0, 0, false, err
	}
	defer it.Close()
	if !it.First() {
		return 0, 0, false, it.Error()
	}
	first, _ := id.FromKey(it.Key())
	if !it.Last() {
		return 0, 0, false, it.Error()
	}
	last, _ := id.FromKey(it.Key())
	return first, last, true, nil
}
