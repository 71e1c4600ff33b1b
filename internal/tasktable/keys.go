package tasktable

import (
	"encoding/binary"
	"fmt"

	"github.com/rzbill/docket/pkg/id"
)

// Key prefixes for the task table
const (
	prefixRow     = "row/"      // Row columns by identity
	prefixByIndex = "by_index/" // Composite (index_id, kind) index
	keyLastID     = "meta/last_id"
)

// KindKeyWidth is the number of kind-name bytes stored in composite index
// keys. Longer names are truncated, so an (index_id, kind) range may contain
// rows of other kinds sharing the prefix.
const KindKeyWidth = 16

// tablePrefix returns the base prefix for a tenant's task table.
// Format: ns/{tenant}/tasks/
func tablePrefix(tenant string) string {
	return fmt.Sprintf("ns/%s/tasks/", tenant)
}

// rowPrefix returns the prefix for primary-order scans.
// Format: ns/{tenant}/tasks/row/
func rowPrefix(tenant string) []byte {
	return []byte(tablePrefix(tenant) + prefixRow)
}

// rowKey returns the primary key of a row.
// Format: ns/{tenant}/tasks/row/{id:8B}
func rowKey(tenant string, rowID uint64) []byte {
	return append(rowPrefix(tenant), id.Key(rowID)...)
}

// indexPrefix returns the composite index prefix for one index id.
// Format: ns/{tenant}/tasks/by_index/{index_id:4B}
func indexPrefix(tenant string, indexID int32) []byte {
	p := tablePrefix(tenant) + prefixByIndex
	key := make([]byte, len(p)+4)
	copy(key, p)
	binary.BigEndian.PutUint32(key[len(p):], encodeIndexID(indexID))
	return key
}

// indexRangePrefix returns the approximate (index_id, kind) range prefix.
// Format: ns/{tenant}/tasks/by_index/{index_id:4B}{kind:16B}
func indexRangePrefix(tenant string, indexID int32, kind string) []byte {
	k := kindKey(kind)
	return append(indexPrefix(tenant, indexID), k[:]...)
}

// indexKey returns the composite index entry for a row.
// Format: ns/{tenant}/tasks/by_index/{index_id:4B}{kind:16B}{id:8B}
func indexKey(tenant string, indexID int32, kind string, rowID uint64) []byte {
	return append(indexRangePrefix(tenant, indexID, kind), id.Key(rowID)...)
}

// lastIDKey stores the identity high-water mark.
// Format: ns/{tenant}/tasks/meta/last_id
func lastIDKey(tenant string) []byte {
	return []byte(tablePrefix(tenant) + keyLastID)
}

// encodeIndexID flips the sign bit so negative ids sort before positive ones.
func encodeIndexID(v int32) uint32 {
	return uint32(v) ^ (1 << 31)
}

// kindKey truncates or zero-pads kind to KindKeyWidth bytes.
func kindKey(kind string) [KindKeyWidth]byte {
	var k [KindKeyWidth]byte
	copy(k[:], kind)
	return k
}
