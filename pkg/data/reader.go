package data

import (
	"encoding/json"
	"io"
)

func NewReader(r io.Reader) *Reader {
	return &Reader{decoder: json.NewDecoder(r)}
}

// Reader scans a JSON Lines stream of records.
type Reader struct {
	decoder *json.Decoder
	error   error
	record  *Record
}

func (r *Reader) Scan() bool {
	if r.error != nil || !r.decoder.More() {
		return false
	}
	r.record = new(Record)
	r.error = r.decoder.Decode(r.record)
	return r.error == nil
}

func (r *Reader) Err() error {
	return r.error
}

func (r *Reader) Record() *Record {
	return r.record
}

// ReadAll collects every record in r.
func ReadAll(r io.Reader) ([]*Record, error) {
	var rv []*Record
	rd := NewReader(r)
	for rd.Scan() {
		rv = append(rv, rd.Record())
	}
	return rv, rd.Err()
}
