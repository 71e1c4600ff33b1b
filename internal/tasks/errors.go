package tasks

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rzbill/docket/internal/tasktable"
)

var (
	// ErrPoisoned matches every *PoisonedError.
	ErrPoisoned = errors.New("tasks: poisoned record")
	// ErrConcurrency matches every *ConcurrencyError. The caller should retry
	// its whole transaction.
	ErrConcurrency = errors.New("tasks: concurrency conflict")

	// ErrNoIndex is returned by Enqueue for a task whose Index is negative.
	ErrNoIndex = errors.New("tasks: task is not tied to an index")

	errCorruptRow = errors.New("unreadable column block")
)

// PoisonedError reports a record whose payload cannot be decoded into a
// known task. Poisoned records are deleted where they are found.
type PoisonedError struct {
	ID   uint64
	Kind string
	Err  error
}

func (e *PoisonedError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("tasks: poisoned %s record: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("tasks: poisoned %s record %d: %v", e.Kind, e.ID, e.Err)
}

func (e *PoisonedError) Unwrap() error { return e.Err }

func (e *PoisonedError) Is(target error) bool { return target == ErrPoisoned }

// ConcurrencyError is the typed, recoverable form of a table write conflict
// on a delete that the caller expected to own.
type ConcurrencyError struct {
	Op  string
	ID  uint64
	Err error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("tasks: %s task %d: concurrency conflict: %v", e.Op, e.ID, e.Err)
}

func (e *ConcurrencyError) Unwrap() error { return e.Err }

func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrency }

// IsConcurrency reports whether err is a concurrency conflict (typed, or the
// raw table signal).
func IsConcurrency(err error) bool {
	return errors.Is(err, ErrConcurrency) || errors.Is(err, tasktable.ErrWriteConflict)
}
