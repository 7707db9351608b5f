package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/pkg/errors"

	"github.com/demosdemon/skuwatch/pkg/log"
)

// ErrDetachedHead is returned by Push when no branch is configured and
// HEAD is not a branch.
var ErrDetachedHead = errors.New("HEAD is detached; set a branch to push")

type GitOption func(g *Git)

func WithRemote(remote string) GitOption {
	return func(g *Git) {
		g.remote = remote
	}
}

func WithBranch(branch string) GitOption {
	return func(g *Git) {
		g.branch = branch
	}
}

func WithAuthor(name, email string) GitOption {
	return func(g *Git) {
		g.authorName = name
		g.authorEmail = email
	}
}

func WithAuth(auth transport.AuthMethod) GitOption {
	return func(g *Git) {
		g.auth = auth
	}
}

func WithLogger(logger log.Logger) GitOption {
	return func(g *Git) {
		g.Logger = logger
	}
}

// Git drives a repository in-process with go-git.
type Git struct {
	log.Logger

	path        string
	remote      string
	branch      string
	authorName  string
	authorEmail string
	auth        transport.AuthMethod

	storage *filesystem.Storage
	repo    *git.Repository
}

func OpenGit(path string, options ...GitOption) (*Git, error) {
	g := &Git{
		Logger: log.Discard,
		path:   path,
		remote: git.DefaultRemoteName,
	}
	for _, opt := range options {
		opt(g)
	}

	worktree := osfs.New(path)
	dot := worktree
	if _, err := worktree.Stat(git.GitDirName); err == nil {
		dot, err = worktree.Chroot(git.GitDirName)
		if err != nil {
			return nil, &Error{Step: StepOpen, Repo: path, Err: err}
		}
	}

	g.storage = filesystem.NewStorageWithOptions(
		dot,
		cache.NewObjectLRUDefault(),
		filesystem.Options{},
	)

	repo, err := git.Open(g.storage, worktree)
	if err != nil {
		_ = g.storage.Close()
		return nil, &Error{Step: StepOpen, Repo: path, Err: err}
	}
	g.repo = repo

	return g, nil
}

func (g *Git) Close() error {
	return g.storage.Close()
}

func (g *Git) Changed(ctx context.Context, paths ...string) ([]string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return nil, &Error{Step: StepStatus, Repo: g.path, Err: err}
	}

	status, err := wt.Status()
	if err != nil {
		return nil, &Error{Step: StepStatus, Repo: g.path, Err: err}
	}

	paths = cleanPaths(paths)
	changed := make([]string, 0)
	for file, s := range status {
		if s.Staging == git.Unmodified && s.Worktree == git.Unmodified {
			continue
		}
		if under(file, paths) {
			changed = append(changed, file)
		}
	}

	g.Debugf("%d changed files under %v", len(changed), paths)
	return sorted(changed), ctx.Err()
}

func (g *Git) Stage(ctx context.Context, paths ...string) (Result, error) {
	res := Result{Step: StepStage, Paths: cleanPaths(paths)}

	wt, err := g.repo.Worktree()
	if err != nil {
		return res, &Error{Step: StepStage, Repo: g.path, Err: err}
	}

	for _, p := range res.Paths {
		if err := ctx.Err(); err != nil {
			return res, &Error{Step: StepStage, Repo: g.path, Err: err}
		}

		g.Infof("+ add %s", p)
		if _, statErr := os.Lstat(filepath.Join(g.path, filepath.FromSlash(p))); os.IsNotExist(statErr) {
			_, err = wt.Remove(p)
		} else {
			err = wt.AddWithOptions(&git.AddOptions{Path: p})
		}
		if err != nil {
			return res, &Error{Step: StepStage, Repo: g.path, Command: "add " + p, Err: err}
		}
	}

	return res, nil
}

func (g *Git) Commit(ctx context.Context, message string) (Result, error) {
	res := Result{Step: StepCommit}
	if err := ctx.Err(); err != nil {
		return res, &Error{Step: StepCommit, Repo: g.path, Err: err}
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return res, &Error{Step: StepCommit, Repo: g.path, Err: err}
	}

	opts := &git.CommitOptions{}
	if g.authorName != "" || g.authorEmail != "" {
		opts.Author = &object.Signature{
			Name:  g.authorName,
			Email: g.authorEmail,
			When:  time.Now(),
		}
	}

	g.Infof("+ commit -m %q", message)
	hash, err := wt.Commit(message, opts)
	if err != nil {
		return res, &Error{Step: StepCommit, Repo: g.path, Command: "commit", Err: err}
	}

	res.Hash = hash.String()
	return res, nil
}

func (g *Git) Push(ctx context.Context) (Result, error) {
	res := Result{Step: StepPush}

	spec, err := g.pushRefSpec()
	if err != nil {
		return res, &Error{Step: StepPush, Repo: g.path, Command: "push " + g.remote, Err: err}
	}

	opts := &git.PushOptions{
		RemoteName: g.remote,
		Auth:       g.auth,
		RefSpecs:   []config.RefSpec{spec},
	}

	g.Infof("+ push %s %s", g.remote, spec)
	err = g.repo.PushContext(ctx, opts)
	if err == git.NoErrAlreadyUpToDate {
		res.UpToDate = true
		return res, nil
	}
	if err != nil {
		return res, &Error{Step: StepPush, Repo: g.path, Command: "push " + g.remote, Err: err}
	}

	return res, nil
}

// pushRefSpec pushes the configured branch, or else only the checked out
// branch. go-git pushes every local branch when no refspec is given.
func (g *Git) pushRefSpec() (config.RefSpec, error) {
	if g.branch != "" {
		return config.RefSpec(fmt.Sprintf("refs/heads/%[1]s:refs/heads/%[1]s", g.branch)), nil
	}

	head, err := g.repo.Head()
	if err != nil {
		return "", err
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return config.RefSpec(fmt.Sprintf("%[1]s:%[1]s", head.Name())), nil
}
