package id

import (
	"encoding/binary"
	"sync"
)

// Sequence hands out monotonically increasing uint64 identities. Zero is never
// returned, and a value is never handed out twice for the lifetime of the
// Sequence, even when the caller later discards it.
type Sequence struct {
	mu   sync.Mutex
	last uint64
}

// NewSequence creates a Sequence whose next value is last+1.
func NewSequence(last uint64) *Sequence { return &Sequence{last: last} }

// Next returns a new identity.
func (s *Sequence) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Last returns the highest identity handed out (or observed) so far.
func (s *Sequence) Last() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Observe raises the high-water mark to v if v is larger. Used when restoring
// from persisted state that may be ahead of the recorded mark.
func (s *Sequence) Observe(v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v > s.last {
		s.last = v
	}
}

// Key encodes v as 8 bytes big-endian so byte order matches numeric order.
func Key(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// FromKey decodes an 8-byte big-endian identity. ok is false when b is short.
func FromKey(b []byte) (v uint64, ok bool) {
	if len(b) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b[len(b)-8:]), true
}
