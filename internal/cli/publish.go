package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/demosdemon/skuwatch/internal/config"
	"github.com/demosdemon/skuwatch/internal/job"
	"github.com/demosdemon/skuwatch/internal/vcs"
	"github.com/demosdemon/skuwatch/pkg/log"
	"github.com/demosdemon/skuwatch/pkg/secrets"
	"github.com/demosdemon/skuwatch/pkg/secrets/awsparamstore"
)

func NewPublishCommand() *cobra.Command {
	o := new(options)
	cmd := &cobra.Command{
		Use:           "run_local_and_push",
		Short:         "Scrape every configured store, then commit and push changed snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := o.load(cmd)
			if err != nil {
				return fatal(cmd, nil, err)
			}

			report, err := scrape(ctx, e)
			if err != nil {
				return fatal(cmd, e.logger, err)
			}
			if err := report.Err(); err != nil {
				logFailures(e.logger, err)
				e.logger.Warnf("publishing anyway; %d of %d stores failed", len(report.Failures), report.Stores)
			}

			dir, err := relativeDir(e.runtime.Publish.Repository, e.runtime.SnapshotsDir)
			if err != nil {
				return fatal(cmd, e.logger, err)
			}

			if e.runtime.DryRun {
				e.logger.Warnf("dry run enabled; would have published %s/", dir)
				return nil
			}

			pub, err := newPublisher(ctx, e)
			if err != nil {
				return fatal(cmd, e.logger, err)
			}
			if c, ok := pub.(io.Closer); ok {
				defer func() { _ = c.Close() }()
			}

			p := &job.Publish{
				Logger:  log.WithPrefix(e.logger, "[publish] "),
				VCS:     pub,
				Dir:     dir,
				Message: e.runtime.Publish.Message,
			}
			results, err := p.Do(ctx)
			if err != nil {
				return fatal(cmd, e.logger, err)
			}
			for _, res := range results {
				e.logger.Debugf("%s", res)
			}
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}

// relativeDir returns dir relative to the repository root in slash form.
func relativeDir(repo, dir string) (string, error) {
	absRepo, err := filepath.Abs(repo)
	if err != nil {
		return "", config.Error{Step: "resolving publish.repository", Index: -1, Err: err}
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", config.Error{Step: "resolving snapshots_dir", Index: -1, Err: err}
	}

	rel, err := filepath.Rel(absRepo, absDir)
	if err == nil && (rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		err = errors.Errorf("%q is outside repository %q", dir, repo)
	}
	if err != nil {
		return "", config.Error{Step: "resolving snapshots_dir", Index: -1, Err: err}
	}
	return filepath.ToSlash(rel), nil
}

func newPublisher(ctx context.Context, e *env) (vcs.Publisher, error) {
	p := e.runtime.Publish
	logger := log.WithPrefix(e.logger, "[git] ")

	if p.Driver == config.DriverCLI {
		return &vcs.CLI{
			Logger:      logger,
			Dir:         p.Repository,
			Remote:      p.Remote,
			Branch:      p.Branch,
			AuthorName:  p.Author.Name,
			AuthorEmail: p.Author.Email,
		}, nil
	}

	opts := []vcs.GitOption{
		vcs.WithLogger(logger),
		vcs.WithRemote(p.Remote),
		vcs.WithBranch(p.Branch),
		vcs.WithAuthor(p.Author.Name, p.Author.Email),
	}

	auth, err := pushAuth(ctx, e.runtime)
	if err != nil {
		return nil, err
	}
	if auth != nil {
		opts = append(opts, vcs.WithAuth(auth))
	}

	return vcs.OpenGit(p.Repository, opts...)
}

// pushAuth resolves publish.auth into HTTP basic auth. Secrets stored in
// SSM are only looked up when a `!secret` path is configured.
func pushAuth(ctx context.Context, rt *config.Runtime) (transport.AuthMethod, error) {
	a := rt.Publish.Auth
	if a.Username.IsZero() && a.Password.IsZero() {
		return nil, nil
	}

	var resolver secrets.Resolver
	if a.Username.NeedsResolver() || a.Password.NeedsResolver() {
		sess, err := session.NewSession()
		if err != nil {
			return nil, config.Error{Step: "creating aws session", Index: -1, Err: err}
		}
		resolver = awsparamstore.New(sess, rt.Publish.AWSRegion)
	}

	username, err := a.Username.Resolve(ctx, resolver)
	if err != nil {
		return nil, config.Error{Step: "resolving publish.auth.username", Index: -1, Err: err}
	}
	password, err := a.Password.Resolve(ctx, resolver)
	if err != nil {
		return nil, config.Error{Step: "resolving publish.auth.password", Index: -1, Err: err}
	}

	return &githttp.BasicAuth{Username: username, Password: password}, nil
}
