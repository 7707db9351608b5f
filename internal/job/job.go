package job

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/internal/snapshot"
	"github.com/demosdemon/skuwatch/pkg/data"
	"github.com/demosdemon/skuwatch/pkg/log"
	"github.com/demosdemon/skuwatch/pkg/walmart"
)

const (
	StageFetch = "fetch"
	StageParse = "parse"
	StageWrite = "write"
)

// Failure records which store failed, where and why.
type Failure struct {
	Store data.StoreEntry
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("store %s failed to %s: %v", f.Store.StoreID, f.Stage, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Locator resolves the page a store is fetched from.
type Locator interface {
	StoreURL(store data.StoreEntry) (string, error)
}

// Registry reports which stores are configured for the run.
type Registry interface {
	Has(storeID string) bool
}

// Job fetches, extracts and writes the snapshot for a single store.
type Job struct {
	log.Logger
	Store    data.StoreEntry
	Registry Registry
	Fetcher  walmart.Fetcher
	Locator  Locator
	Writer   *snapshot.Writer
	DryRun   bool
}

// Do returns the written snapshot path. Errors are *Failure values.
func (j *Job) Do(ctx context.Context) (string, error) {
	j.Infof("processing store_id=%s store_slug=%s", j.Store.StoreID, j.Store.StoreSlug)

	if j.DryRun {
		u, err := j.Locator.StoreURL(j.Store)
		if err != nil {
			return "", j.fail(StageFetch, err)
		}
		j.Warnf("dry run enabled; would have fetched %s", u)
		return "", nil
	}

	page, err := j.Fetcher.Fetch(ctx, j.Store)
	if err != nil {
		return "", j.fail(StageFetch, err)
	}
	j.Debugf("fetched %s (%d bytes, status %d)", page.URL, len(page.Body), page.Status)

	records, err := walmart.Extract(page)
	if err != nil {
		return "", j.fail(StageParse, err)
	}
	j.Debugf("extracted %d records", len(records))

	if j.Registry != nil {
		for _, r := range records {
			if !j.Registry.Has(r.StoreID) {
				return "", j.fail(StageWrite, errors.Wrapf(snapshot.ErrOrphanRecord, "store_id %q is not configured", r.StoreID))
			}
		}
	}

	p, err := j.Writer.Write(j.Store, records)
	if err != nil {
		return "", j.fail(StageWrite, err)
	}

	j.Infof("wrote %d records to %s", len(records), p)
	return p, nil
}

func (j *Job) fail(stage string, err error) *Failure {
	f := &Failure{Store: j.Store, Stage: stage, Err: err}
	j.Errorf("%v", f)
	return f
}
