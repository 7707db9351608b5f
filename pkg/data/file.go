package data

import (
	"io"

	"github.com/pkg/errors"
)

// Truncater is implemented by *os.File.
type Truncater interface {
	Truncate(size int64) error
}

// Reorder rewrites a JSON Lines snapshot in place in canonical order,
// collapsing duplicate keys, and returns the number of records kept. When
// the result is shorter than the input, rw must also be a Truncater.
func Reorder(rw io.ReadWriteSeeker) (int, error) {
	size, err := rw.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	records, err := ReadAll(rw)
	if err != nil {
		return 0, errors.Wrap(err, "error reading records")
	}
	s := new(Set).Init()
	s.Add(records...)

	if _, err := rw.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	w := NewWriter(rw)
	if err := w.WriteSet(s); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}

	end, err := rw.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if end < size {
		t, ok := rw.(Truncater)
		if !ok {
			return 0, errors.Errorf("cannot truncate %d stale bytes", size-end)
		}
		if err := t.Truncate(end); err != nil {
			return 0, err
		}
	}

	return s.Len(), nil
}
