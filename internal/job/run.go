package job

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/internal/config"
	"github.com/demosdemon/skuwatch/internal/snapshot"
	"github.com/demosdemon/skuwatch/pkg/data"
	"github.com/demosdemon/skuwatch/pkg/log"
	"github.com/demosdemon/skuwatch/pkg/walmart"
)

// Report summarizes a run. Failures are per-store and never fatal.
type Report struct {
	RunID     string
	Stores    int
	Processed int
	Written   []string
	Failures  []*Failure
	Aborted   bool
}

// Err aggregates the per-store failures, or returns nil.
func (r *Report) Err() error {
	var err *multierror.Error
	for _, f := range r.Failures {
		err = multierror.Append(err, f)
	}
	return err.ErrorOrNil()
}

// Runner processes stores one at a time in registry order.
type Runner struct {
	log.Logger
	Fetcher walmart.Fetcher
	Locator Locator
	Writer  *snapshot.Writer
	Policy  config.FailurePolicy
	DryRun  bool

	// Registry, when set, rejects records for stores it does not hold.
	Registry Registry
}

// Run processes every store. The returned error is fatal: the context was
// cancelled or the snapshot directory cannot be written at all. The report
// is always returned.
func (r *Runner) Run(ctx context.Context, stores []data.StoreEntry) (*Report, error) {
	report := &Report{RunID: r.Writer.RunID(), Stores: len(stores)}
	if len(stores) == 0 {
		r.Infof("no stores configured; nothing to do")
		return report, nil
	}

	r.Infof("run %s: %d stores, failure policy %s", report.RunID, len(stores), r.policy())
	for _, store := range stores {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrap(err, "run interrupted")
		}

		j := &Job{
			Logger:   log.WithPrefix(r.Logger, fmt.Sprintf("[%s] ", store.StoreID)),
			Store:    store,
			Registry: r.Registry,
			Fetcher:  r.Fetcher,
			Locator:  r.Locator,
			Writer:   r.Writer,
			DryRun:   r.DryRun,
		}

		p, err := j.Do(ctx)
		report.Processed++
		if err == nil {
			if p != "" {
				report.Written = append(report.Written, p)
			}
			continue
		}

		if fatal := r.fatal(ctx, err); fatal != nil {
			return report, fatal
		}

		report.Failures = append(report.Failures, err.(*Failure))
		if r.policy() == config.Abort {
			r.Warnf("aborting after store %s failed; %d stores skipped", store.StoreID, len(stores)-report.Processed)
			report.Aborted = true
			break
		}
	}

	r.Infof("run %s: %d processed, %d written, %d failed", report.RunID, report.Processed, len(report.Written), len(report.Failures))
	return report, nil
}

func (r *Runner) fatal(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, "run interrupted")
	}

	var se snapshot.Error
	if errors.As(err, &se) && se.Systemic() {
		return err
	}
	return nil
}

func (r *Runner) policy() config.FailurePolicy {
	if r.Policy == "" {
		return config.Continue
	}
	return r.Policy
}
