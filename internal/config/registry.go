package config

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/demosdemon/skuwatch/pkg/data"
)

const DefaultStoresFile = "input/stores.json"

var (
	ErrMissingField = errors.New("missing required field")
	ErrDuplicate    = errors.New("duplicate store_id")
	ErrUnsafeValue  = errors.New("value is not usable as a path segment")
)

// Registry is the ordered set of stores configured for a run.
type Registry struct {
	entries []data.StoreEntry
	index   map[string]int
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns the stores in file order.
func (r *Registry) Entries() []data.StoreEntry {
	if r == nil {
		return nil
	}
	rv := make([]data.StoreEntry, len(r.entries))
	copy(rv, r.entries)
	return rv
}

// Has reports whether storeID is configured.
func (r *Registry) Has(storeID string) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[storeID]
	return ok
}

func LoadRegistry(path string) (*Registry, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, Error{Step: "opening store registry", File: path, Index: -1, Err: err}
	}
	defer func() { _ = fp.Close() }()

	return ReadRegistry(path, fp)
}

// ReadRegistry parses either a JSON array of store objects or an object
// holding that array under "stores".
func ReadRegistry(name string, r io.Reader) (*Registry, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, Error{Step: "reading store registry", File: name, Index: -1, Err: err}
	}

	if !gjson.ValidBytes(body) {
		return nil, Error{Step: "parsing store registry", File: name, Index: -1, Err: errors.New("invalid JSON")}
	}

	root := gjson.ParseBytes(body)
	if root.IsObject() {
		root = root.Get("stores")
		// a missing key is an error, not an empty registry
		if !root.Exists() {
			return nil, Error{Step: "parsing store registry", File: name, Index: -1, Err: errors.Wrap(ErrMissingField, "stores")}
		}
	}
	if !root.IsArray() {
		return nil, Error{Step: "parsing store registry", File: name, Index: -1, Err: errors.New("expected a list of stores")}
	}

	reg := &Registry{index: make(map[string]int)}
	for idx, v := range root.Array() {
		entry, err := readEntry(v)
		if err != nil {
			return nil, Error{Step: "validating store", File: name, Index: idx, Err: err}
		}

		if prev, ok := reg.index[entry.StoreID]; ok {
			return nil, Error{
				Step:  "validating store",
				File:  name,
				Index: idx,
				Err:   errors.Wrapf(ErrDuplicate, "%q first seen at record %d", entry.StoreID, prev),
			}
		}

		reg.index[entry.StoreID] = len(reg.entries)
		reg.entries = append(reg.entries, entry)
	}

	return reg, nil
}

func readEntry(v gjson.Result) (data.StoreEntry, error) {
	var entry data.StoreEntry
	if !v.IsObject() {
		return entry, errors.New("expected an object")
	}

	var err error
	if entry.StoreID, err = field(v, "store_id"); err != nil {
		return entry, err
	}
	if entry.StoreSlug, err = field(v, "store_slug"); err != nil {
		return entry, err
	}
	return entry, nil
}

func field(v gjson.Result, key string) (string, error) {
	f := v.Get(key)
	var s string
	switch f.Type {
	case gjson.String:
		s = strings.TrimSpace(f.Str)
	case gjson.Number:
		s = f.Raw
	}

	if s == "" {
		return "", errors.Wrap(ErrMissingField, key)
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return "", errors.Wrapf(ErrUnsafeValue, "%s %q", key, s)
	}
	return s, nil
}
