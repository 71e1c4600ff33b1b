// Package namespace keeps the registry of tenants (databases). Each tenant
// owns its own task table and index registry.
package namespace

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
)

// Meta holds tenant metadata.
type Meta struct {
	Name        string `json:"name"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

var (
	// ErrInvalidName is returned for names that do not match the name rule.
	ErrInvalidName = errors.New("namespace: invalid name")

	nsMetaPrefix = []byte("nsmeta/")
)

// NameRule validates tenant names against an anchored pattern.
type NameRule struct{ re *regexp.Regexp }

// NewNameRule compiles pattern; the whole name must match.
func NewNameRule(pattern string) (NameRule, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return NameRule{}, err
	}
	return NameRule{re: re}, nil
}

// Check returns ErrInvalidName when name does not match.
func (r NameRule) Check(name string) error {
	if name == "" || (r.re != nil && !r.re.MatchString(name)) {
		return ErrInvalidName
	}
	return nil
}

// nsMetaKey builds metadata key for a namespace.
func nsMetaKey(ns string) []byte {
	k := make([]byte, 0, len(nsMetaPrefix)+len(ns))
	k = append(k, nsMetaPrefix...)
	k = append(k, ns...)
	return k
}

// EnsureNamespace creates a tenant meta record if absent, returning the
// effective meta. Idempotent: returns existing if already present.
func EnsureNamespace(db *pebblestore.DB, name string) (Meta, error) {
	if m, ok, err := Get(db, name); err != nil || ok {
		return m, err
	}
	m := Meta{Name: name, CreatedAtMs: time.Now().UnixMilli()}
	bytes, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := db.Set(nsMetaKey(name), bytes); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Get loads a tenant's meta. An unreadable record is reported as absent so
// EnsureNamespace rewrites it.
func Get(db *pebblestore.DB, name string) (Meta, bool, error) {
	b, err := db.Get(nsMetaKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil || m.Name != name {
		return Meta{}, false, nil
	}
	return m, true, nil
}

// List returns every tenant in name order.
func List(db *pebblestore.DB) ([]Meta, error) {
	it, err := db.NewIter(pebblestore.PrefixBounds(nsMetaPrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []Meta
	for ok := it.First(); ok; ok = it.Next() {
		var m Meta
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, it.Error()
}
