// Package vcs publishes snapshot changes to a version-control remote.
//
// Every step returns a Result describing what happened. Failures are
// returned as *Error and are never retried.
package vcs

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	StepOpen   = "open"
	StepStatus = "status"
	StepStage  = "stage"
	StepCommit = "commit"
	StepPush   = "push"
)

// Publisher is implemented by *Git (go-git) and *CLI (the git binary).
type Publisher interface {
	// Changed lists files under paths that differ from HEAD, including
	// untracked files.
	Changed(ctx context.Context, paths ...string) ([]string, error)
	Stage(ctx context.Context, paths ...string) (Result, error)
	Commit(ctx context.Context, message string) (Result, error)
	Push(ctx context.Context) (Result, error)
}

type Result struct {
	Step     string
	Paths    []string
	Hash     string
	Output   string
	UpToDate bool
}

func (r Result) String() string {
	switch {
	case r.Hash != "":
		return fmt.Sprintf("%s: %s", r.Step, r.Hash)
	case r.UpToDate:
		return fmt.Sprintf("%s: up to date", r.Step)
	case len(r.Paths) > 0:
		return fmt.Sprintf("%s: %d paths", r.Step, len(r.Paths))
	default:
		return r.Step
	}
}

type Error struct {
	Step    string
	Repo    string
	Command string
	Output  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("vcs error step:%q repo:%q", e.Step, e.Repo)
	if e.Command != "" {
		msg += fmt.Sprintf(" command:%q", e.Command)
	}
	msg += fmt.Sprintf(" error:%v", e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// cleanPaths turns paths into slash separated paths relative to the
// repository root.
func cleanPaths(paths []string) []string {
	rv := make([]string, 0, len(paths))
	for _, p := range paths {
		p = path.Clean(filepath.ToSlash(p))
		p = strings.TrimPrefix(p, "./")
		rv = append(rv, p)
	}
	return rv
}

func under(file string, paths []string) bool {
	for _, p := range paths {
		if p == "." || file == p || strings.HasPrefix(file, p+"/") {
			return true
		}
	}
	return false
}

func sorted(files []string) []string {
	sort.Strings(files)
	return files
}
