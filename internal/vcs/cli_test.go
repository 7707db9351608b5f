package vcs

import (
	"context"
	"os/exec"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestCLIPublish(t *testing.T) {
	requireGit(t)
	ctx := context.Background()

	remote := t.TempDir()
	gitCmd(t, remote, "init", "--bare", "-q")

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "remote", "add", "origin", remote)

	c := &CLI{
		Dir:         dir,
		AuthorName:  "skuwatch",
		AuthorEmail: "skuwatch@example.com",
	}

	writeFile(t, dir, "snapshots/123/latest.jsonl", "{}\n")
	writeFile(t, dir, "notes.txt", "x\n")

	changed, err := c.Changed(ctx, "snapshots")
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshots/123/latest.jsonl"}, changed)

	_, err = c.Stage(ctx, "snapshots")
	require.NoError(t, err)

	res, err := c.Commit(ctx, "update snapshots")
	require.NoError(t, err)
	assert.Len(t, res.Hash, 40)

	res, err = c.Push(ctx)
	require.NoError(t, err)
	assert.False(t, res.UpToDate)

	res, err = c.Push(ctx)
	require.NoError(t, err)
	assert.True(t, res.UpToDate)

	changed, err = c.Changed(ctx, "snapshots")
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestCLIErrorCarriesOutput(t *testing.T) {
	requireGit(t)

	c := &CLI{Dir: t.TempDir()}
	_, err := c.Changed(context.Background(), "snapshots")
	require.Error(t, err)

	var vErr *Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, StepStatus, vErr.Step)
	assert.Contains(t, vErr.Command, "git status")
	assert.NotEmpty(t, vErr.Output)
}
