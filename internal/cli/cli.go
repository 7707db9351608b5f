// Package cli builds the scrape and run_local_and_push commands and maps
// their outcome to a process exit code.
package cli

import (
	"context"
	"fmt"

	"github.com/hashicorp/errwrap"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/demosdemon/skuwatch/internal/config"
	"github.com/demosdemon/skuwatch/pkg/log"
)

const (
	ExitOK       = 0
	ExitFailures = 1
	ExitFatal    = 2
)

// ExitError carries the exit code a command finished with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Execute runs cmd with args and returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}

	// flag and argument errors
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	return ExitFatal
}

type options struct {
	configFile    string
	storesFile    string
	snapshotsDir  string
	logLevel      string
	engine        string
	baseURL       string
	failurePolicy string
	dryRun        bool
}

func (o *options) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.configFile, "config", "c", config.DefaultRuntimeFile, "runtime settings file; a .local sibling overrides it")
	flags.StringVar(&o.storesFile, "stores", config.DefaultStoresFile, "store registry (JSON)")
	flags.StringVar(&o.snapshotsDir, "snapshots", config.DefaultSnapshotsDir, "snapshot output directory")
	flags.StringVar(&o.logLevel, "log-level", "info", "error, warn, info, debug or trace")
	flags.StringVar(&o.engine, "engine", string(config.EngineBrowser), "page fetcher: browser or http")
	flags.StringVar(&o.baseURL, "base-url", "", "site to fetch store pages from")
	flags.StringVar(&o.failurePolicy, "failure-policy", string(config.Continue), "continue or abort after a store fails")
	flags.BoolVar(&o.dryRun, "dry-run", false, "log the pages that would be fetched and write nothing")
}

type env struct {
	logger   log.Logger
	runtime  *config.Runtime
	registry *config.Registry
}

// load reads the settings file, applies flags the user set explicitly and
// loads the store registry. Every error is a config.Error.
func (o *options) load(cmd *cobra.Command) (*env, error) {
	level, err := log.ParseLevel(o.logLevel)
	if err != nil {
		return nil, config.Error{Step: "parsing flags", Index: -1, Err: err}
	}
	logger := log.NewLogger(level, cmd.ErrOrStderr(), "")

	rt, err := config.LoadRuntime(o.configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("stores") {
		rt.StoresFile = o.storesFile
	}
	if flags.Changed("snapshots") {
		rt.SnapshotsDir = o.snapshotsDir
	}
	if flags.Changed("engine") {
		rt.Fetch.Engine = config.Engine(o.engine)
	}
	if flags.Changed("base-url") {
		rt.Fetch.BaseURL = o.baseURL
	}
	if flags.Changed("failure-policy") {
		rt.FailurePolicy = config.FailurePolicy(o.failurePolicy)
	}
	if flags.Changed("dry-run") {
		rt.DryRun = o.dryRun
	}

	if err := rt.Validate(); err != nil {
		return nil, err
	}

	reg, err := config.LoadRegistry(rt.StoresFile)
	if err != nil {
		return nil, err
	}
	logger.Infof("loaded %d stores from %s", reg.Len(), rt.StoresFile)

	return &env{logger: logger, runtime: rt, registry: reg}, nil
}

func fatal(cmd *cobra.Command, logger log.Logger, err error) error {
	if logger != nil {
		logger.Errorf("fatal error: %v", err)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "fatal error: %v\n", err)
	}
	return &ExitError{Code: ExitFatal, Err: err}
}

func logFailures(logger log.Logger, err error) {
	if err, ok := err.(errwrap.Wrapper); ok {
		errs := err.WrappedErrors()
		logger.Errorf("%d errors occurred:", len(errs))
		for _, err := range errs {
			logger.Errorf("* %v", err)
		}
		return
	}
	logger.Errorf("%v", err)
}
