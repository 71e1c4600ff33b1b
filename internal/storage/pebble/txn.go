package pebblestore

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble"
)

var (
	// ErrWriteConflict is returned when a transaction writes a key that another
	// live transaction has claimed, or that a transaction committed after this
	// one began has already written.
	ErrWriteConflict = errors.New("pebble: write conflict")
	// ErrTxnDone is returned by operations on a committed or rolled back Txn.
	ErrTxnDone = errors.New("pebble: transaction already finished")
)

// pruneEvery bounds how often commit scans lastWrite for stale entries.
const pruneEvery = 256

// Txn is an optimistic read-write transaction. Reads see committed data plus
// the transaction's own writes. Conflicts are row-level and detected when a
// write is issued, not at commit.
type Txn struct {
	db     *DB
	id     uint64
	start  uint64
	batch  *pebble.Batch
	claims map[string]struct{}
	hooks  []func(*pebble.Batch) error
	done   bool
}

// Begin starts a new transaction. The caller must Commit or Rollback it.
func (db *DB) Begin() *Txn {
	db.commitMu.Lock()
	id := db.txnSeq.Add(1)
	start := db.commitSeq.Load()
	db.live.Store(id, start)
	db.commitMu.Unlock()
	return &Txn{
		db:     db,
		id:     id,
		start:  start,
		batch:  db.inner.NewIndexedBatch(),
		claims: make(map[string]struct{}),
	}
}

// Update runs fn inside a transaction and commits it when fn returns nil.
func (db *DB) Update(ctx context.Context, fn func(*Txn) error) error {
	txn := db.Begin()
	if err := fn(txn); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit(ctx)
}

// Get returns a copy of the value for key, or pebble.ErrNotFound.
func (t *Txn) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	val, closer, err := t.batch.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// NewIter returns an iterator over committed data merged with this
// transaction's writes as of the call. Later writes are not observed by it.
func (t *Txn) NewIter(opts *pebble.IterOptions) (*pebble.Iterator, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	return t.batch.NewIter(opts)
}

// Set claims key and stages a write.
func (t *Txn) Set(key, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if err := t.claim(key); err != nil {
		return err
	}
	return t.batch.Set(key, value, nil)
}

// Delete claims key and stages a deletion.
func (t *Txn) Delete(key []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if err := t.claim(key); err != nil {
		return err
	}
	return t.batch.Delete(key, nil)
}

// OnCommit registers fn to run under the commit lock right before the batch
// is applied. fn may stage further writes into the batch without claiming
// their keys, which suits high-water marks that every writer touches.
func (t *Txn) OnCommit(fn func(*pebble.Batch) error) {
	t.hooks = append(t.hooks, fn)
}

// Commit applies the staged writes atomically and releases all claims.
func (t *Txn) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	defer t.batch.Close()

	db := t.db
	db.commitMu.Lock()
	defer db.commitMu.Unlock()
	defer db.finishLocked(t)

	if t.batch.Empty() && len(t.hooks) == 0 {
		return nil
	}
	for _, hook := range t.hooks {
		if err := hook(t.batch); err != nil {
			return err
		}
	}
	if err := db.CommitBatch(ctx, t.batch); err != nil {
		return err
	}
	seq := db.commitSeq.Add(1)
	for k := range t.claims {
		db.lastWrite.Store(k, seq)
	}
	return nil
}

// Rollback discards staged writes and releases claims. It is a no-op on a
// finished transaction.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.db.commitMu.Lock()
	t.db.finishLocked(t)
	t.db.commitMu.Unlock()
	_ = t.batch.Close()
}

func (t *Txn) claim(key []byte) error {
	k := string(key)
	if _, ok := t.claims[k]; ok {
		return nil
	}
	owner, loaded := t.db.owners.LoadOrStore(k, t.id)
	if loaded && owner != t.id {
		return ErrWriteConflict
	}
	if seq, ok := t.db.lastWrite.Load(k); ok && seq > t.start {
		t.db.owners.Delete(k)
		return ErrWriteConflict
	}
	t.claims[k] = struct{}{}
	return nil
}

// finishLocked releases t's claims and prunes stale write records. lastWrite
// entries are stored before claims are released, so a concurrent claimer
// always observes one or the other.
func (db *DB) finishLocked(t *Txn) {
	for k := range t.claims {
		db.owners.Delete(k)
	}
	db.live.Delete(t.id)

	if db.live.Size() == 0 {
		db.lastWrite.Clear()
		return
	}
	if db.commitSeq.Load()%pruneEvery != 0 {
		return
	}
	oldest := db.commitSeq.Load()
	db.live.Range(func(_ uint64, start uint64) bool {
		if start < oldest {
			oldest = start
		}
		return true
	})
	db.lastWrite.Range(func(k string, seq uint64) bool {
		if seq <= oldest {
			db.lastWrite.Delete(k)
		}
		return true
	})
}
