package tasks

// RemoveFromIndexTask removes documents from one index.
type RemoveFromIndexTask struct {
	IndexID int32
	Keys    KeySet
}

// NewRemoveFromIndex builds a RemoveFromIndexTask for keys.
func NewRemoveFromIndex(indexID int32, keys ...string) *RemoveFromIndexTask {
	return &RemoveFromIndexTask{IndexID: indexID, Keys: NewKeySet(keys...)}
}

func (*RemoveFromIndexTask) Kind() Kind { return KindRemoveFromIndex }
func (t *RemoveFromIndexTask) Index() int32 { return t.IndexID }
func (t *RemoveFromIndexTask) NumberOfKeys() int { return len(t.Keys) }
func (*RemoveFromIndexTask) SeparateTasksByIndex() bool { return true }
func (*RemoveFromIndexTask) sealed() {}

func (t *RemoveFromIndexTask) Merge(other Task) error {
	o, ok := other.(*RemoveFromIndexTask)
	if !ok {
		return ErrKindMismatch
	}
	if t.Keys == nil {
		t.Keys = make(KeySet, len(o.Keys))
	}
	for k := range o.Keys {
		t.Keys[k] = struct{}{}
	}
	return nil
}

// ReduceTask re-reduces a set of reduce keys in one map/reduce index.
type ReduceTask struct {
	IndexID    int32
	ReduceKeys KeySet
}

// NewReduce builds a ReduceTask for reduceKeys.
func NewReduce(indexID int32, reduceKeys ...string) *ReduceTask {
	return &ReduceTask{IndexID: indexID, ReduceKeys: NewKeySet(reduceKeys...)}
}

func (*ReduceTask) Kind() Kind { return KindReduceIndex }
func (t *ReduceTask) Index() int32 { return t.IndexID }
func (t *ReduceTask) NumberOfKeys() int { return len(t.ReduceKeys) }
func (*ReduceTask) SeparateTasksByIndex() bool { return true }
func (*ReduceTask) sealed() {}

func (t *ReduceTask) Merge(other Task) error {
	o, ok := other.(*ReduceTask)
	if !ok {
		return ErrKindMismatch
	}
	if t.ReduceKeys == nil {
		t.ReduceKeys = make(KeySet, len(o.ReduceKeys))
	}
	for k := range o.ReduceKeys {
		t.ReduceKeys[k] = struct{}{}
	}
	return nil
}

// TouchReferencesTask marks referenced documents whose dependents need
// re-indexing. Etags holds the highest etag seen per document key. Tasks of
// this kind merge across indexes.
type TouchReferencesTask struct {
	IndexID int32
	Etags   map[string]uint64
}

// NewTouchReferences builds an empty TouchReferencesTask; use Touch to add keys.
func NewTouchReferences(indexID int32) *TouchReferencesTask {
	return &TouchReferencesTask{IndexID: indexID, Etags: make(map[string]uint64)}
}

// Touch records etag for key, keeping the larger of the old and new value.
func (t *TouchReferencesTask) Touch(key string, etag uint64) {
	if t.Etags == nil {
		t.Etags = make(map[string]uint64)
	}
	if cur, ok := t.Etags[key]; !ok || etag > cur {
		t.Etags[key] = etag
	}
}

func (*TouchReferencesTask) Kind() Kind { return KindTouchReferences }
func (t *TouchReferencesTask) Index() int32 { return t.IndexID }
func (t *TouchReferencesTask) NumberOfKeys() int { return len(t.Etags) }
func (*TouchReferencesTask) SeparateTasksByIndex() bool { return false }
func (*TouchReferencesTask) sealed() {}

func (t *TouchReferencesTask) Merge(other Task) error {
	o, ok := other.(*TouchReferencesTask)
	if !ok {
		return ErrKindMismatch
	}
	for k, etag := range o.Etags {
		t.Touch(k, etag)
	}
	return nil
}
