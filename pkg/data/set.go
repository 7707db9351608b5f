package data

import (
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
)

// Set keeps records ordered by store id then sku. Adding a record whose
// key is already present replaces the earlier one.
type Set struct {
	set *treeset.Set
}

func (set *Set) Init() *Set {
	set.set = treeset.NewWith(KeyComparator)
	return set
}

func (set *Set) Len() int {
	return set.set.Size()
}

func (set *Set) Add(records ...*Record) {
	for _, r := range records {
		// treeset keeps the first equal key, so drop it first
		set.set.Remove(r)
		set.set.Add(r)
	}
}

// Each calls fn for every record in canonical order until fn fails.
func (set *Set) Each(fn func(r *Record) error) error {
	it := set.set.Iterator()
	for it.Next() {
		if err := fn(it.Value().(*Record)); err != nil {
			return err
		}
	}
	return nil
}

func (set *Set) Values() []*Record {
	rv := make([]*Record, 0, set.Len())
	_ = set.Each(func(r *Record) error {
		rv = append(rv, r)
		return nil
	})
	return rv
}

func KeyComparator(a, b interface{}) int {
	v1 := a.(*Record)
	v2 := b.(*Record)

	if c := strings.Compare(v1.StoreID, v2.StoreID); c != 0 {
		return c
	}
	return strings.Compare(v1.SKU, v2.SKU)
}
