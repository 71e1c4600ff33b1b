// Package tabletest provides an in-memory tasktable.Session for tests, with
// hooks to inject write conflicts and storage failures.
package tabletest

import (
	"sort"
	"sync"

	"github.com/rzbill/docket/internal/tasktable"
)

// Memory is an in-memory Session. Writes apply immediately; there is no
// transaction isolation. Primary scans iterate a snapshot taken at Scan,
// index cursors re-check each row (matching the Pebble table).
//
// A corrupt row planted with Put keeps its IndexID and Kind as the index
// entry it was written under, so index cursors find it the way the Pebble
// table does. Reads surface it with only ID, Data and Corrupt set.
type Memory struct {
	mu   sync.Mutex
	rows map[uint64]tasktable.Row
	last uint64

	// DeleteErr, when set, is consulted before each delete; a non-nil result
	// is returned instead of deleting.
	DeleteErr func(row tasktable.Row) error
	// InsertErr, ScanErr and GetErr are returned by the matching operations.
	InsertErr error
	ScanErr   error
	GetErr    error

	// Deletes counts successful deletes.
	Deletes int
}

var _ tasktable.Session = (*Memory)(nil)

// New returns an empty Memory session.
func New() *Memory {
	return &Memory{rows: make(map[uint64]tasktable.Row)}
}

// Put stores row under its own ID, bypassing identity assignment. Used to
// plant corrupt or hand-crafted records.
func (m *Memory) Put(row tasktable.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID] = row
	if row.ID > m.last {
		m.last = row.ID
	}
}

// Len returns the number of stored rows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// Has reports whether rowID is stored.
func (m *Memory) Has(rowID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[rowID]
	return ok
}

func (m *Memory) Insert(row tasktable.Row) (uint64, error) {
	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last++
	row.ID = m.last
	row.Corrupt = false
	m.rows[row.ID] = row
	return row.ID, nil
}

func (m *Memory) Get(rowID uint64) (tasktable.Row, bool, error) {
	if m.GetErr != nil {
		return tasktable.Row{}, false, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[rowID]
	return surface(r), ok, nil
}

func (m *Memory) Delete(row tasktable.Row) error {
	if m.DeleteErr != nil {
		if err := m.DeleteErr(row); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[row.ID]; ok {
		m.Deletes++
	}
	delete(m.rows, row.ID)
	return nil
}

func (m *Memory) Scan() (tasktable.Cursor, error) {
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	return &cursor{rows: m.sorted(func(tasktable.Row) bool { return true }, false)}, nil
}

func (m *Memory) SeekIndex(indexID int32, kind string) (tasktable.Cursor, error) {
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	key := truncateKind(kind)
	rows := m.sorted(func(r tasktable.Row) bool {
		return r.IndexID == indexID && truncateKind(r.Kind) == key
	}, false)
	return &cursor{rows: rows, live: m}, nil
}

func (m *Memory) SeekIndexPrefix(indexID int32) (tasktable.Cursor, error) {
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	rows := m.sorted(func(r tasktable.Row) bool {
		return r.IndexID == indexID
	}, true)
	return &cursor{rows: rows, live: m}, nil
}

func (m *Memory) Bounds() (uint64, uint64, bool, error) {
	rows := m.sorted(func(tasktable.Row) bool { return true }, false)
	if len(rows) == 0 {
		return 0, 0, false, nil
	}
	return rows[0].ID, rows[len(rows)-1].ID, true, nil
}

// sorted snapshots matching rows by identity, or by (kind key, identity).
func (m *Memory) sorted(keep func(tasktable.Row) bool, byKind bool) []tasktable.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tasktable.Row, 0, len(m.rows))
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if byKind {
			ki, kj := truncateKind(out[i].Kind), truncateKind(out[j].Kind)
			if ki != kj {
				return ki < kj
			}
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// surface strips what an unreadable column block would not yield.
func surface(r tasktable.Row) tasktable.Row {
	if !r.Corrupt {
		return r
	}
	return tasktable.Row{ID: r.ID, Data: r.Data, Corrupt: true}
}

func truncateKind(kind string) string {
	if len(kind) > tasktable.KindKeyWidth {
		return kind[:tasktable.KindKeyWidth]
	}
	return kind
}

type cursor struct {
	rows []tasktable.Row
	pos  int
	cur  tasktable.Row
	// live, when set, makes the cursor skip rows deleted after the snapshot.
	live *Memory
}

func (c *cursor) Next() bool {
	for c.pos < len(c.rows) {
		r := c.rows[c.pos]
		c.pos++
		if c.live != nil && !c.live.Has(r.ID) {
			continue
		}
		c.cur = surface(r)
		return true
	}
	return false
}

func (c *cursor) Row() tasktable.Row { return c.cur }
func (c *cursor) Err() error         { return nil }
func (c *cursor) Close() error       { return nil }
