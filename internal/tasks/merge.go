package tasks

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rzbill/docket/internal/metrics"
	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/pkg/log"
)

// TryDequeueMerged returns the oldest eligible task of kind, merged with
// compatible pending tasks up to the merge budget. It returns false when no
// record qualifies.
//
// Records targeting an index in skip, already in seen, or whose index is
// missing from valid are passed over and left untouched. The identities of
// the returned seed and everything merged into it are added to seen; none of
// them are deleted. The caller deletes seen with DeleteTasks after the work
// has been applied. Poisoned records met on the way are deleted.
func (q *Queue) TryDequeueMerged(ctx context.Context, s tasktable.Session, kind Kind, skip, valid IndexSet, seen IDSet) (Task, bool, error) {
	if seen == nil {
		return nil, false, errors.New("tasks: seen set is nil")
	}
	cur, err := s.Scan()
	if err != nil {
		return nil, false, errors.Wrap(err, "tasks: scan")
	}
	defer cur.Close()

	for cur.Next() {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		row := cur.Row()
		if !row.Corrupt && row.Kind != string(kind) {
			continue
		}
		t, ok, err := q.load(s, row)
		if err != nil {
			return nil, false, err
		}
		if !ok || !q.eligible(row.ID, t, skip, valid, seen) {
			continue
		}

		seen.Add(row.ID)
		q.logger.Debug("fetched task", log.Uint64("id", row.ID), log.Str("kind", string(kind)))
		if err := q.mergeSimilar(ctx, s, row.ID, t, skip, valid, seen); err != nil {
			return nil, false, err
		}
		return t, true, nil
	}
	if err := cur.Err(); err != nil {
		return nil, false, errors.Wrap(err, "tasks: scan")
	}
	return nil, false, nil
}

// ConcreteTask is satisfied only by the pointer task types, whose Kind is
// defined on a nil receiver.
type ConcreteTask interface {
	Task
	*RemoveFromIndexTask | *ReduceTask | *TouchReferencesTask
}

// DequeueMerged is TryDequeueMerged with the kind taken from T.
func DequeueMerged[T ConcreteTask](ctx context.Context, q *Queue, s tasktable.Session, skip, valid IndexSet, seen IDSet) (T, bool, error) {
	var zero T
	t, ok, err := q.TryDequeueMerged(ctx, s, zero.Kind(), skip, valid, seen)
	if err != nil || !ok {
		return zero, false, err
	}
	return t.(T), true, nil
}

// mergeSimilar folds compatible records into seed until the running cost
// reaches the budget. Scoped kinds walk the (index, kind) range, which is
// approximate, so each row's kind is checked again.
func (q *Queue) mergeSimilar(ctx context.Context, s tasktable.Session, seedID uint64, seed Task, skip, valid IndexSet, seen IDSet) error {
	kind := string(seed.Kind())
	var (
		cur tasktable.Cursor
		err error
	)
	if seed.SeparateTasksByIndex() {
		cur, err = s.SeekIndex(seed.Index(), kind)
	} else {
		cur, err = s.Scan()
	}
	if err != nil {
		return errors.Wrap(err, "tasks: merge scan")
	}
	defer cur.Close()

	total := seed.NumberOfKeys()
	for cur.Next() {
		if total >= q.budget {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		row := cur.Row()
		if !row.Corrupt && row.Kind != kind {
			continue
		}
		t, ok, err := q.load(s, row)
		if err != nil {
			return err
		}
		if !ok || !q.eligible(row.ID, t, skip, valid, seen) {
			continue
		}
		if err := seed.Merge(t); err != nil {
			return errors.Wrapf(err, "tasks: merge %d into %d", row.ID, seedID)
		}
		total += t.NumberOfKeys()
		seen.Add(row.ID)
		metrics.TasksMerged.WithLabelValues(kind).Inc()
		q.logger.Debug("merged task", log.Uint64("id", row.ID), log.Uint64("into", seedID))
	}
	if err := cur.Err(); err != nil {
		return errors.Wrap(err, "tasks: merge scan")
	}
	return nil
}

// load decodes row. A poisoned row is deleted and reported as not ok.
func (q *Queue) load(s tasktable.Session, row tasktable.Row) (Task, bool, error) {
	var (
		t   Task
		err error
	)
	if row.Corrupt {
		err = &PoisonedError{Err: errCorruptRow}
	} else {
		t, err = Decode(Kind(row.Kind), row.Data)
	}
	if err == nil {
		return t, true, nil
	}

	var pe *PoisonedError
	if !errors.As(err, &pe) {
		return nil, false, err
	}
	pe.ID = row.ID
	q.logger.Error("could not decode task, deleting it",
		log.Uint64("id", row.ID), log.Str("kind", row.Kind), log.Err(pe))
	if err := s.Delete(row); err != nil {
		return nil, false, q.deleteError("delete_poisoned", row.ID, err)
	}
	label := row.Kind
	if label == "" {
		label = "unknown"
	}
	metrics.TasksPoisoned.WithLabelValues(label).Inc()
	return nil, false, nil
}

// eligible applies the skip, dedup and orphan filters in that order.
func (q *Queue) eligible(rowID uint64, t Task, skip, valid IndexSet, seen IDSet) bool {
	if skip.Has(t.Index()) {
		q.logger.Debug("skipping task for locked index",
			log.Uint64("id", rowID), log.Int32("index", t.Index()))
		return false
	}
	if seen.Has(rowID) {
		return false
	}
	if !valid.Has(t.Index()) {
		q.logger.Debug("skipping task for non existing index",
			log.Uint64("id", rowID), log.Int32("index", t.Index()))
		return false
	}
	return true
}
