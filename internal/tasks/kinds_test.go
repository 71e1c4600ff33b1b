package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeUnion(t *testing.T) {
	a := NewRemoveFromIndex(1, "a", "b")
	require.NoError(t, a.Merge(NewRemoveFromIndex(1, "b", "c")))
	assert.Equal(t, []string{"a", "b", "c"}, a.Keys.Sorted())
	assert.Equal(t, 3, a.NumberOfKeys())

	r := NewReduce(2, "x")
	require.NoError(t, r.Merge(NewReduce(2, "y")))
	assert.Equal(t, 2, r.NumberOfKeys())
}

func TestTouchReferencesKeepsMaxEtag(t *testing.T) {
	a := NewTouchReferences(1)
	a.Touch("users/1", 5)
	b := NewTouchReferences(2)
	b.Touch("users/1", 9)
	b.Touch("users/2", 1)
	c := NewTouchReferences(3)
	c.Touch("users/1", 2)

	require.NoError(t, a.Merge(b))
	require.NoError(t, a.Merge(c))
	assert.Equal(t, map[string]uint64{"users/1": 9, "users/2": 1}, a.Etags)
	assert.Equal(t, int32(1), a.Index())
	assert.False(t, a.SeparateTasksByIndex())
}

func TestMergeKindMismatch(t *testing.T) {
	a := NewRemoveFromIndex(1, "a")
	err := a.Merge(NewReduce(1, "b"))
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.Equal(t, []string{"a"}, a.Keys.Sorted())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("nope")
	assert.Error(t, err)
}
