package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/pkg/data"
	"github.com/demosdemon/skuwatch/pkg/log"
)

const (
	// RunIDFormat names the per-run file inside a store directory.
	RunIDFormat = "20060102T150405Z"
	LatestName  = "latest.jsonl"
	ext         = ".jsonl"
)

var ErrOrphanRecord = errors.New("record does not belong to the store being written")

// Error is a failed snapshot write.
type Error struct {
	Path string
	Err  error
}

func (e Error) Error() string {
	return fmt.Sprintf("error writing snapshot %q: %v", e.Path, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Systemic reports whether the failure will repeat for every store, such
// as a full or read-only disk.
func (e Error) Systemic() bool {
	return errors.Is(e.Err, syscall.ENOSPC) ||
		errors.Is(e.Err, syscall.EROFS) ||
		errors.Is(e.Err, syscall.EDQUOT)
}

// Writer persists one snapshot per store per run under Dir:
//
//	<Dir>/<store_id>/<RunAt>.jsonl  written once, never replaced
//	<Dir>/<store_id>/latest.jsonl   replaced every run
type Writer struct {
	log.Logger
	Dir   string
	RunAt time.Time
}

func New(dir string, runAt time.Time, logger log.Logger) *Writer {
	if logger == nil {
		logger = log.Discard
	}
	return &Writer{Logger: logger, Dir: dir, RunAt: runAt.UTC()}
}

func (w *Writer) RunID() string {
	return w.RunAt.UTC().Format(RunIDFormat)
}

// Path returns the per-run snapshot file for storeID.
func (w *Writer) Path(storeID string) string {
	return filepath.Join(w.Dir, storeID, w.RunID()+ext)
}

func (w *Writer) LatestPath(storeID string) string {
	return filepath.Join(w.Dir, storeID, LatestName)
}

// Write stores records for store in canonical order and returns the
// per-run file path. Every record must carry store's id.
func (w *Writer) Write(store data.StoreEntry, records []*data.Record) (string, error) {
	output := w.Path(store.StoreID)

	s := new(data.Set).Init()
	for _, r := range records {
		if r.StoreID != store.StoreID {
			return "", Error{Path: output, Err: errors.Wrapf(ErrOrphanRecord, "store_id %q sku %q", r.StoreID, r.SKU)}
		}
		s.Add(r)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o777); err != nil {
		return "", Error{Path: output, Err: err}
	}

	w.Debugf("writing %d records to %q", s.Len(), output)
	fp, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return "", Error{Path: output, Err: err}
	}
	if err := writeSet(fp, s); err != nil {
		_ = os.Remove(output)
		return "", Error{Path: output, Err: err}
	}

	latest := w.LatestPath(store.StoreID)
	if err := w.replaceLatest(latest, s); err != nil {
		return "", Error{Path: latest, Err: err}
	}

	w.Infof("wrote %d records to %q", s.Len(), output)
	return output, nil
}

func (w *Writer) replaceLatest(latest string, s *data.Set) error {
	tmp, err := os.CreateTemp(filepath.Dir(latest), "."+LatestName+".*")
	if err != nil {
		return err
	}
	if err := writeSet(tmp, s); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), latest); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// writeSet writes and closes fp.
func writeSet(fp *os.File, s *data.Set) (err error) {
	defer func() {
		if cErr := fp.Close(); err == nil {
			err = cErr
		}
	}()

	w := data.NewWriter(fp)
	if err := w.WriteSet(s); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return fp.Sync()
}
