package tasks

import (
	"sort"

	"github.com/pkg/errors"
)

// Kind names a task variant. It is stored with every record so scans can
// match kinds without decoding the payload.
type Kind string

const (
	KindRemoveFromIndex Kind = "remove-from-index"
	KindReduceIndex     Kind = "reduce-index"
	KindTouchReferences Kind = "touch-references"
)

// Kinds lists every known kind in drain order.
var Kinds = []Kind{KindRemoveFromIndex, KindReduceIndex, KindTouchReferences}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRemoveFromIndex, KindReduceIndex, KindTouchReferences:
		return k, nil
	default:
		return "", errors.Errorf("tasks: unknown kind %q", s)
	}
}

// ErrKindMismatch is returned by Merge when the two tasks differ in kind.
var ErrKindMismatch = errors.New("tasks: cannot merge tasks of different kinds")

// NoIndex marks a row whose index is unknown, such as a corrupt row in a
// debug listing. Enqueue rejects it.
const NoIndex int32 = -1

// Task is a unit of deferred index-maintenance work. The set of
// implementations is closed: RemoveFromIndexTask, ReduceTask and
// TouchReferencesTask.
type Task interface {
	Kind() Kind
	// Index is the index the task affects.
	Index() int32
	// NumberOfKeys estimates the work size; it bounds merging.
	NumberOfKeys() int
	// SeparateTasksByIndex restricts merge candidates to the same Index.
	SeparateTasksByIndex() bool
	// Merge folds other into the receiver. other must have the same Kind.
	Merge(other Task) error

	sealed()
}

// KeySet is a set of document or reduce keys.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts keys into the set.
func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the keys in ascending order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
