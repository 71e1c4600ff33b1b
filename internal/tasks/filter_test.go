package tasks

import (
	"testing"
	"time"

	"github.com/rzbill/docket/internal/tasktable"
	"github.com/rzbill/docket/internal/tasktable/tabletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFilter(t *testing.T) {
	now := time.UnixMilli(10_000)
	md := TaskMetadata{ID: 4, Kind: string(KindReduceIndex), IndexID: 2, AddedAt: time.UnixMilli(4_000)}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{`kind == "reduce-index"`, true},
		{`kind == "remove-from-index"`, false},
		{"index_id == 2 && id > 3", true},
		{"age_ms >= 6000", true},
		{"age_ms > 6000", false},
		{"inserted_at_ms < now_ms", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(md, now))
		})
	}
}

func TestCompileFilterErrors(t *testing.T) {
	for _, expr := range []string{"kind ==", "unknown_var == 1", "id + 1"} {
		_, err := CompileFilter(expr)
		assert.Error(t, err, expr)
	}
}

func TestListPendingForDebug(t *testing.T) {
	q := New(Options{})
	s := tabletest.New()

	var got []TaskMetadata
	for md, err := range q.ListPendingForDebug(s) {
		require.NoError(t, err)
		got = append(got, md)
	}
	assert.Empty(t, got)

	added := time.UnixMilli(1_000).UTC()
	_, err := q.Enqueue(ctx, s, NewReduce(3, "a"), added)
	require.NoError(t, err)
	s.Put(tasktable.Row{ID: 9, Corrupt: true})
	_, err = q.Enqueue(ctx, s, NewRemoveFromIndex(4, "b"), added)
	require.NoError(t, err)

	for md, err := range q.ListPendingForDebug(s) {
		require.NoError(t, err)
		got = append(got, md)
	}
	assert.Equal(t, []TaskMetadata{
		{ID: 1, Kind: string(KindReduceIndex), IndexID: 3, AddedAt: added},
		{ID: 9, IndexID: NoIndex, Corrupt: true},
		{ID: 10, Kind: string(KindRemoveFromIndex), IndexID: 4, AddedAt: added},
	}, got)
	assert.Equal(t, 3, s.Len(), "enumeration never deletes")

	f, err := CompileFilter("index_id == 4")
	require.NoError(t, err)
	matched, err := CollectPending(q.ListPendingForDebug(s), f, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, uint64(10), matched[0].ID)

	limited, err := CollectPending(q.ListPendingForDebug(s), Filter{}, time.Now(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
