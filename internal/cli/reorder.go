package cli

import (
	"fmt"
	"os"

	"github.com/demosdemon/multierrgroup"
	"github.com/spf13/cobra"

	"github.com/demosdemon/skuwatch/pkg/data"
	"github.com/demosdemon/skuwatch/pkg/log"
)

type reorderError struct {
	path string
	err  error
}

func (e reorderError) Error() string {
	return fmt.Sprintf("error reordering `%s`: %v", e.path, e.err)
}

func (e reorderError) Unwrap() error {
	return e.err
}

func NewReorderCommand() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           "reorder <snapshot.jsonl>...",
		Short:         "Rewrite snapshot files in place in canonical (store_id, sku) order",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return fatal(cmd, nil, err)
			}
			logger := log.NewLogger(level, cmd.ErrOrStderr(), "")

			var g multierrgroup.Group
			for _, path := range args {
				path := path
				g.Go(func() error {
					return reorder(log.WithPrefix(logger, fmt.Sprintf("[%s] ", path)), path)
				})
			}

			if err := g.Wait(); err != nil {
				logFailures(logger, err)
				return &ExitError{Code: ExitFailures, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "error, warn, info, debug or trace")
	return cmd
}

func reorder(logger log.Logger, path string) error {
	fp, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return reorderError{path, err}
	}
	defer func() { _ = fp.Close() }()

	n, err := data.Reorder(fp)
	if err != nil {
		return reorderError{path, err}
	}
	if err := fp.Sync(); err != nil {
		return reorderError{path, err}
	}

	logger.Infof("%d records in canonical order", n)
	return nil
}
