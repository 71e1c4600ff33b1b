package tasks

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rzbill/docket/internal/metrics"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/pkg/log"
)

// DefaultMergeBudget bounds the cost a single dequeue coalesces.
const DefaultMergeBudget = 5 * 1024

// Options configures a Queue.
type Options struct {
	// MergeBudget is the cumulative NumberOfKeys after which merging stops.
	MergeBudget int
	Logger      log.Logger
}

// Queue implements the task queue operations. It holds no table state; every
// call runs against the session it is given.
type Queue struct {
	budget int
	logger log.Logger
}

// New returns a Queue with defaults applied.
func New(opts Options) *Queue {
	if opts.MergeBudget <= 0 {
		opts.MergeBudget = DefaultMergeBudget
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	return &Queue{budget: opts.MergeBudget, logger: opts.Logger.WithComponent("tasks")}
}

// MergeBudget returns the configured merge budget.
func (q *Queue) MergeBudget() int { return q.budget }

// Enqueue stores t and returns its identity. The record is visible once the
// session's transaction commits.
func (q *Queue) Enqueue(ctx context.Context, s tasktable.Session, t Task, addedAt time.Time) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.Index() < 0 {
		return 0, errors.Wrapf(ErrNoIndex, "%s index %d", t.Kind(), t.Index())
	}
	data, err := Encode(t)
	if err != nil {
		return 0, err
	}
	rowID, err := s.Insert(tasktable.Row{
		Kind:    string(t.Kind()),
		IndexID: t.Index(),
		AddedAt: addedAt,
		Data:    data,
	})
	if err != nil {
		return 0, errors.Wrap(err, "tasks: enqueue")
	}
	metrics.TasksEnqueued.WithLabelValues(string(t.Kind())).Inc()
	return rowID, nil
}

// HasTasks reports whether any record exists.
func (q *Queue) HasTasks(s tasktable.Session) (bool, error) {
	cur, err := s.Scan()
	if err != nil {
		return false, errors.Wrap(err, "tasks: scan")
	}
	defer cur.Close()
	if cur.Next() {
		return true, nil
	}
	return false, cur.Err()
}

// ApproximateTaskCount returns last identity - first identity + 1, or 0 when
// empty. Deleted records inside the span are still counted, so the result
// is an upper bound meant for monitoring only.
func (q *Queue) ApproximateTaskCount(s tasktable.Session) (int64, error) {
	first, last, ok, err := s.Bounds()
	if err != nil {
		return 0, errors.Wrap(err, "tasks: bounds")
	}
	if !ok {
		return 0, nil
	}
	return int64(last-first) + 1, nil
}

// DeleteTasks removes every identity in ids. Missing records are ignored.
// Deletions are independent: on error, the ones already issued stay issued.
// A write conflict is returned as a *ConcurrencyError.
func (q *Queue) DeleteTasks(ctx context.Context, s tasktable.Session, ids IDSet) (int, error) {
	deleted := 0
	for _, rowID := range ids.Sorted() {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		row, found, err := s.Get(rowID)
		if err != nil {
			return deleted, errors.Wrapf(err, "tasks: get %d", rowID)
		}
		if !found {
			continue
		}
		if err := s.Delete(row); err != nil {
			return deleted, q.deleteError("delete", rowID, err)
		}
		deleted++
	}
	metrics.TasksDeleted.WithLabelValues("consumed").Add(float64(deleted))
	return deleted, nil
}

// DeleteTasksForIndex removes every record targeting indexID and returns how
// many were removed. Rows held by a concurrent writer are skipped, so the
// count may be lower than the number of records that existed.
func (q *Queue) DeleteTasksForIndex(ctx context.Context, s tasktable.Session, indexID int32) (int, error) {
	cur, err := s.SeekIndexPrefix(indexID)
	if err != nil {
		return 0, errors.Wrap(err, "tasks: seek index")
	}
	defer cur.Close()

	count := 0
	for cur.Next() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		row := cur.Row()
		if err := s.Delete(row); err != nil {
			if errors.Is(err, tasktable.ErrWriteConflict) {
				metrics.WriteConflicts.WithLabelValues("delete_for_index").Inc()
				q.logger.Debug("skipping task held by a concurrent writer",
					log.Uint64("id", row.ID), log.Int32("index", indexID))
				continue
			}
			return count, errors.Wrapf(err, "tasks: delete %d", row.ID)
		}
		count++
	}
	if err := cur.Err(); err != nil {
		return count, errors.Wrap(err, "tasks: seek index")
	}
	metrics.TasksDeleted.WithLabelValues("index_teardown").Add(float64(count))
	return count, nil
}

func (q *Queue) deleteError(op string, rowID uint64, err error) error {
	if errors.Is(err, tasktable.ErrWriteConflict) {
		metrics.WriteConflicts.WithLabelValues(op).Inc()
		q.logger.Warn("failed to delete task", log.Uint64("id", rowID), log.Err(err))
		return &ConcurrencyError{Op: op, ID: rowID, Err: err}
	}
	return errors.Wrapf(err, "tasks: %s %d", op, rowID)
}
