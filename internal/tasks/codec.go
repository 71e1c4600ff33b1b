package tasks

import (
	"encoding/binary"
	"hash/crc32"
	"sort"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Task payload: fields | crc32c(fields) (4B BE)
//
// Fields are protobuf wire format so new fields can be added without
// breaking old readers; unknown field numbers are skipped.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func crcOf(b []byte) uint32 { return crc32.Checksum(b, castagnoli) }

const (
	fieldIndex protowire.Number = 1
	fieldKey   protowire.Number = 2
	fieldTouch protowire.Number = 3

	touchKey  protowire.Number = 1
	touchEtag protowire.Number = 2
)

var (
	errShortPayload = errors.New("payload shorter than checksum")
	errChecksum     = errors.New("payload checksum mismatch")
	errMissingIndex = errors.New("missing index field")
)

// Encode serializes t into its framed payload.
func Encode(t Task) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldIndex, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(t.Index())))

	switch t.Kind() {
	case KindRemoveFromIndex:
		b = appendKeys(b, t.(*RemoveFromIndexTask).Keys)
	case KindReduceIndex:
		b = appendKeys(b, t.(*ReduceTask).ReduceKeys)
	case KindTouchReferences:
		etags := t.(*TouchReferencesTask).Etags
		keys := make([]string, 0, len(etags))
		for k := range etags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var inner []byte
			inner = protowire.AppendTag(inner, touchKey, protowire.BytesType)
			inner = protowire.AppendString(inner, k)
			inner = protowire.AppendTag(inner, touchEtag, protowire.VarintType)
			inner = protowire.AppendVarint(inner, etags[k])
			b = protowire.AppendTag(b, fieldTouch, protowire.BytesType)
			b = protowire.AppendBytes(b, inner)
		}
	default:
		return nil, errors.Errorf("tasks: cannot encode kind %q", t.Kind())
	}

	var cb [4]byte
	binary.BigEndian.PutUint32(cb[:], crcOf(b))
	return append(b, cb[:]...), nil
}

func appendKeys(b []byte, keys KeySet) []byte {
	for _, k := range keys.Sorted() {
		b = protowire.AppendTag(b, fieldKey, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	return b
}

// Decode parses a payload written by Encode for kind. Any failure is a
// *PoisonedError.
func Decode(kind Kind, data []byte) (Task, error) {
	t, err := decode(kind, data)
	if err != nil {
		return nil, &PoisonedError{Kind: string(kind), Err: err}
	}
	return t, nil
}

func decode(kind Kind, data []byte) (Task, error) {
	if len(data) < 4 {
		return nil, errShortPayload
	}
	body := data[:len(data)-4]
	if crcOf(body) != binary.BigEndian.Uint32(data[len(data)-4:]) {
		return nil, errChecksum
	}

	switch kind {
	case KindRemoveFromIndex, KindReduceIndex, KindTouchReferences:
	default:
		return nil, errors.Errorf("unknown kind %q", kind)
	}

	var (
		index    int32
		hasIndex bool
	)
	keys := KeySet{}
	etags := map[string]uint64{}
	err := readFields(body, func(f field) error {
		switch {
		case f.num == fieldIndex && f.typ == protowire.VarintType:
			index, hasIndex = int32(protowire.DecodeZigZag(f.varint)), true
		case f.num == fieldKey && f.typ == protowire.BytesType:
			keys.Add(string(f.bytes))
		case f.num == fieldTouch && f.typ == protowire.BytesType:
			k, etag, err := decodeTouch(f.bytes)
			if err != nil {
				return err
			}
			if cur, ok := etags[k]; !ok || etag > cur {
				etags[k] = etag
			}
		case f.num == fieldIndex, f.num == fieldKey, f.num == fieldTouch:
			return errors.Errorf("field %d: unexpected wire type %d", f.num, f.typ)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !hasIndex {
		return nil, errMissingIndex
	}

	switch kind {
	case KindRemoveFromIndex:
		return &RemoveFromIndexTask{IndexID: index, Keys: keys}, nil
	case KindReduceIndex:
		return &ReduceTask{IndexID: index, ReduceKeys: keys}, nil
	default:
		return &TouchReferencesTask{IndexID: index, Etags: etags}, nil
	}
}

func decodeTouch(b []byte) (string, uint64, error) {
	var (
		key  string
		etag uint64
	)
	err := readFields(b, func(f field) error {
		switch {
		case f.num == touchKey && f.typ == protowire.BytesType:
			key = string(f.bytes)
		case f.num == touchEtag && f.typ == protowire.VarintType:
			etag = f.varint
		}
		return nil
	})
	return key, etag, err
}

type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// readFields walks a protowire message and calls fn for each field. Varint
// and length-delimited values are decoded into the field; other wire types
// are consumed and passed with no value.
func readFields(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
