package tasktable

import (
	"errors"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Row is one persisted task record. Kind, IndexID and AddedAt are stored as
// separate columns so scans can filter without decoding Data.
type Row struct {
	ID      uint64
	Kind    string
	IndexID int32
	AddedAt time.Time
	// Data is the serialized task, opaque to the table.
	Data []byte
	// Corrupt is set when the column block could not be parsed. Only ID and
	// the raw value (in Data) are meaningful then.
	Corrupt bool
}

// Column numbers of the row encoding
const (
	colKind    protowire.Number = 1
	colIndexID protowire.Number = 2
	colAddedAt protowire.Number = 3
	colData    protowire.Number = 4
)

var errTruncatedRow = errors.New("tasktable: truncated row")

func encodeRow(r Row) []byte {
	b := make([]byte, 0, len(r.Kind)+len(r.Data)+24)
	b = protowire.AppendTag(b, colKind, protowire.BytesType)
	b = protowire.AppendString(b, r.Kind)
	b = protowire.AppendTag(b, colIndexID, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(r.IndexID)))
	b = protowire.AppendTag(b, colAddedAt, protowire.VarintType)
	var nanos int64
	if !r.AddedAt.IsZero() {
		nanos = r.AddedAt.UnixNano()
	}
	b = protowire.AppendVarint(b, uint64(nanos))
	b = protowire.AppendTag(b, colData, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Data)
	return b
}

// decodeRow parses a column block. Unknown columns are skipped.
func decodeRow(rowID uint64, b []byte) (Row, error) {
	r := Row{ID: rowID}
	var sawKind bool
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Row{}, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == colKind && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return Row{}, protowire.ParseError(m)
			}
			r.Kind, sawKind, n = v, true, m
		case num == colIndexID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return Row{}, protowire.ParseError(m)
			}
			r.IndexID, n = int32(protowire.DecodeZigZag(v)), m
		case num == colAddedAt && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return Row{}, protowire.ParseError(m)
			}
			if v != 0 {
				r.AddedAt = time.Unix(0, int64(v)).UTC()
			}
			n = m
		case num == colData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return Row{}, protowire.ParseError(m)
			}
			r.Data, n = append([]byte(nil), v...), m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Row{}, protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	if !sawKind {
		return Row{}, errTruncatedRow
	}
	return r, nil
}

// rowFromValue decodes a stored value, flagging unparsable values as corrupt.
func rowFromValue(rowID uint64, value []byte) Row {
	r, err := decodeRow(rowID, value)
	if err != nil {
		return Row{ID: rowID, Data: append([]byte(nil), value...), Corrupt: true}
	}
	return r
}
