package vcs

import (
	"context"
	"os/exec"
	"strings"

	"github.com/demosdemon/skuwatch/pkg/log"
)

// CLI drives a repository through the git binary so that the operator's
// credential helpers and hooks apply. Errors carry the command output.
type CLI struct {
	log.Logger

	Dir         string
	Remote      string
	Branch      string
	AuthorName  string
	AuthorEmail string
	Binary      string
}

func (c *CLI) Changed(ctx context.Context, paths ...string) ([]string, error) {
	args := append([]string{"status", "--porcelain", "--untracked-files=all", "--"}, cleanPaths(paths)...)
	out, err := c.run(ctx, StepStatus, args...)
	if err != nil {
		return nil, err
	}

	paths = cleanPaths(paths)
	changed := make([]string, 0)
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		file := line[3:]
		if idx := strings.Index(file, " -> "); idx >= 0 {
			file = file[idx+4:]
		}
		file = strings.Trim(file, `"`)
		if under(file, paths) {
			changed = append(changed, file)
		}
	}
	return sorted(changed), nil
}

func (c *CLI) Stage(ctx context.Context, paths ...string) (Result, error) {
	res := Result{Step: StepStage, Paths: cleanPaths(paths)}
	out, err := c.run(ctx, StepStage, append([]string{"add", "--all", "--"}, res.Paths...)...)
	res.Output = out
	return res, err
}

func (c *CLI) Commit(ctx context.Context, message string) (Result, error) {
	res := Result{Step: StepCommit}

	var args []string
	if c.AuthorName != "" {
		args = append(args, "-c", "user.name="+c.AuthorName)
	}
	if c.AuthorEmail != "" {
		args = append(args, "-c", "user.email="+c.AuthorEmail)
	}
	args = append(args, "commit", "-m", message)

	out, err := c.run(ctx, StepCommit, args...)
	res.Output = out
	if err != nil {
		return res, err
	}

	hash, err := c.run(ctx, StepCommit, "rev-parse", "HEAD")
	if err != nil {
		return res, err
	}
	res.Hash = strings.TrimSpace(hash)
	return res, nil
}

func (c *CLI) Push(ctx context.Context) (Result, error) {
	res := Result{Step: StepPush}

	remote := c.Remote
	if remote == "" {
		remote = "origin"
	}
	ref := "HEAD"
	if c.Branch != "" {
		ref = "HEAD:refs/heads/" + c.Branch
	}

	out, err := c.run(ctx, StepPush, "push", remote, ref)
	res.Output = out
	res.UpToDate = strings.Contains(out, "Everything up-to-date")
	return res, err
}

func (c *CLI) run(ctx context.Context, step string, args ...string) (string, error) {
	bin := c.Binary
	if bin == "" {
		bin = "git"
	}

	line := bin + " " + strings.Join(args, " ")
	c.logger().Infof("+ %s", line)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), &Error{
			Step:    step,
			Repo:    c.Dir,
			Command: line,
			Output:  string(out),
			Err:     err,
		}
	}

	c.logger().Debugf("%s", out)
	return string(out), nil
}

func (c *CLI) logger() log.Logger {
	if c.Logger == nil {
		return log.Discard
	}
	return c.Logger
}
