package tasks

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeDecodeKinds(t *testing.T) {
	touch := NewTouchReferences(NoIndex)
	touch.Touch("users/1", 10)
	touch.Touch("users/2", 3)

	tests := []struct {
		name string
		task Task
	}{
		{"remove", NewRemoveFromIndex(3, "a", "b")},
		{"reduce", NewReduce(-7, "r1")},
		{"touch", touch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.task)
			require.NoError(t, err)
			got, err := Decode(tt.task.Kind(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.task, got)
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(NewReduce(1, "x", "y", "z"))
	require.NoError(t, err)
	b, err := Encode(NewReduce(1, "z", "y", "x"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodePoisoned(t *testing.T) {
	good, err := Encode(NewRemoveFromIndex(1, "a"))
	require.NoError(t, err)

	flipped := append([]byte(nil), good...)
	flipped[2] ^= 0xFF

	tests := []struct {
		name string
		kind Kind
		data []byte
	}{
		{"empty", KindRemoveFromIndex, nil},
		{"short", KindRemoveFromIndex, []byte{1, 2}},
		{"checksum", KindRemoveFromIndex, flipped},
		{"unknown kind", Kind("compact-index"), good},
		{"missing index", KindRemoveFromIndex, frame(nil)},
		{"bad wire type", KindReduceIndex, frame(protowire.AppendTag(nil, fieldKey, protowire.VarintType))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.kind, tt.data)
			var pe *PoisonedError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.ErrorIs(t, err, ErrPoisoned)
			assert.Equal(t, string(tt.kind), pe.Kind)
		})
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, fieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(4))
	b = protowire.AppendTag(b, 99, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)
	b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
	b = protowire.AppendString(b, "doc")

	got, err := Decode(KindRemoveFromIndex, frame(b))
	require.NoError(t, err)
	assert.Equal(t, NewRemoveFromIndex(4, "doc"), got)
}

// frame appends the checksum trailer the way Encode does.
func frame(body []byte) []byte {
	out := append([]byte(nil), body...)
	sum := crcOf(body)
	return append(out, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))
}
