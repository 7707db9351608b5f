package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/demosdemon/skuwatch/internal/config"
	"github.com/demosdemon/skuwatch/internal/job"
	"github.com/demosdemon/skuwatch/internal/snapshot"
	"github.com/demosdemon/skuwatch/pkg/log"
	"github.com/demosdemon/skuwatch/pkg/walmart"
)

func NewScrapeCommand() *cobra.Command {
	o := new(options)
	cmd := &cobra.Command{
		Use:           "scrape",
		Short:         "Fetch every configured store and write SKU snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.load(cmd)
			if err != nil {
				return fatal(cmd, nil, err)
			}

			report, err := scrape(cmd.Context(), e)
			if err != nil {
				return fatal(cmd, e.logger, err)
			}

			if err := report.Err(); err != nil {
				logFailures(e.logger, err)
				return &ExitError{Code: ExitFailures, Err: err}
			}
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}

// scrape runs every store once. The browser, when used, lives for the
// whole run.
func scrape(ctx context.Context, e *env) (*job.Report, error) {
	rt := e.runtime

	opts := append(rt.ClientOptions(), walmart.WithLogger(log.WithPrefix(e.logger, "[walmart] ")))
	client := walmart.New(opts...)

	var fetcher walmart.Fetcher = client
	if rt.Fetch.Engine == config.EngineBrowser && !rt.DryRun && e.registry.Len() > 0 {
		b, err := walmart.NewBrowser(ctx, client)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := b.Close(); err != nil {
				e.logger.Warnf("error closing browser: %v", err)
			}
		}()
		fetcher = b
	}

	runner := &job.Runner{
		Logger:  e.logger,
		Fetcher: fetcher,
		Locator: client,
		Writer:  snapshot.New(rt.SnapshotsDir, time.Now(), e.logger),
		Policy:  rt.FailurePolicy,
		DryRun:  rt.DryRun,

		Registry: e.registry,
	}
	return runner.Run(ctx, e.registry.Entries())
}
