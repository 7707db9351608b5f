package data

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Writer encodes records as JSON Lines. Output is buffered; call Flush
// when done.
type Writer struct {
	buf   *bufio.Writer
	enc   *json.Encoder
	count int
}

func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{buf: buf, enc: json.NewEncoder(buf)}
}

func (w *Writer) Write(record *Record) error {
	if err := w.enc.Encode(record); err != nil {
		return errors.Wrapf(err, "error encoding record %s", record.Key())
	}
	w.count++
	return nil
}

// WriteSet writes s in canonical order.
func (w *Writer) WriteSet(s *Set) error {
	return s.Each(w.Write)
}

// Count is the number of records written so far.
func (w *Writer) Count() int {
	return w.count
}

func (w *Writer) Flush() error {
	return w.buf.Flush()
}
