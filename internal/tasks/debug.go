package tasks

import (
	"iter"
	"time"

	"github.com/pkg/errors"
	"github.com/rzbill/docket/internal/tasktable"
)

// TaskMetadata describes a pending record without its payload.
type TaskMetadata struct {
	ID      uint64    `json:"id"`
	Kind    string    `json:"kind"`
	IndexID int32     `json:"indexId"`
	AddedAt time.Time `json:"addedAt"`
	// Corrupt marks a record whose columns could not be read; it will be
	// deleted by the next dequeue that meets it.
	Corrupt bool `json:"corrupt,omitempty"`
}

// ListPendingForDebug walks every record in identity order. The walk reads
// a snapshot taken when iteration starts and never mutates the table.
func (q *Queue) ListPendingForDebug(s tasktable.Session) iter.Seq2[TaskMetadata, error] {
	return func(yield func(TaskMetadata, error) bool) {
		cur, err := s.Scan()
		if err != nil {
			yield(TaskMetadata{}, errors.Wrap(err, "tasks: scan"))
			return
		}
		defer cur.Close()
		for cur.Next() {
			row := cur.Row()
			md := TaskMetadata{ID: row.ID, Kind: row.Kind, IndexID: row.IndexID, AddedAt: row.AddedAt}
			if row.Corrupt {
				md = TaskMetadata{ID: row.ID, IndexID: NoIndex, Corrupt: true}
			}
			if !yield(md, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(TaskMetadata{}, errors.Wrap(err, "tasks: scan"))
		}
	}
}

// CollectPending gathers up to limit records matching f. limit <= 0 means
// no limit.
func CollectPending(seq iter.Seq2[TaskMetadata, error], f Filter, now time.Time, limit int) ([]TaskMetadata, error) {
	out := []TaskMetadata{}
	for md, err := range seq {
		if err != nil {
			return out, err
		}
		if !f.Match(md, now) {
			continue
		}
		out = append(out, md)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
