package vcs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/runner"
)

func TestRepositoryRoot(t *testing.T) {
	f := runner.NewFake()
	f.Stub("/home/user/repo\n", "git", "rev-parse", "--show-toplevel")

	g := NewGit(f)
	root, err := g.RepositoryRoot(context.Background(), "/home/user/repo/sub/dir")
	require.NoError(t, err)
	require.Equal(t, "/home/user/repo", root)
}

func TestRepositoryRootOutsideRepo(t *testing.T) {
	f := runner.NewFake()
	f.StubError(errors.New("fatal: not a git repository"), "git", "rev-parse", "--show-toplevel")

	g := NewGit(f)
	_, err := g.RepositoryRoot(context.Background(), "/tmp")
	require.Error(t, err)
	require.Equal(t, apperr.KindExternal, apperr.KindOf(err))
}

func TestCurrentBranch(t *testing.T) {
	f := runner.NewFake()
	f.Stub("feature/login\n", "git", "rev-parse", "--abbrev-ref", "HEAD")

	g := NewGit(f)
	branch, err := g.CurrentBranch(context.Background(), "/repo")
	require.NoError(t, err)
	require.Equal(t, "feature/login", branch)
}

func TestCurrentBranchDetached(t *testing.T) {
	f := runner.NewFake()
	f.Stub("HEAD\n", "git", "rev-parse", "--abbrev-ref", "HEAD")

	g := NewGit(f)
	branch, err := g.CurrentBranch(context.Background(), "/repo")
	require.NoError(t, err)
	require.Empty(t, branch)
}

func TestDefaultBranch(t *testing.T) {
	f := runner.NewFake()
	f.Stub("origin/main\n", "git", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")

	g := NewGit(f)
	branch, err := g.DefaultBranch(context.Background(), "/repo")
	require.NoError(t, err)
	require.Equal(t, "main", branch)
}

func TestDefaultBranchMissingSymref(t *testing.T) {
	f := runner.NewFake()
	f.StubError(errors.New("fatal: ref refs/remotes/origin/HEAD is not a symbolic ref"),
		"git", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")

	g := NewGit(f)
	branch, err := g.DefaultBranch(context.Background(), "/repo")
	require.NoError(t, err)
	require.Empty(t, branch)
}

func TestBranchExists(t *testing.T) {
	f := runner.NewFake()
	f.Stub("", "git", "show-ref", "--verify", "--quiet", "refs/heads/main")

	g := NewGit(f)
	ok, err := g.BranchExists(context.Background(), "/repo", "main")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.BranchExists(context.Background(), "/repo", "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoteBranchExists(t *testing.T) {
	f := runner.NewFake()
	f.Stub("abc123\trefs/heads/main\n", "git", "ls-remote", "--heads", "https://example.com/r.git", "refs/heads/main")
	f.Stub("", "git", "ls-remote", "--heads", "https://example.com/r.git", "refs/heads/missing")

	g := NewGit(f)
	ok, err := g.RemoteBranchExists(context.Background(), "https://example.com/r.git", "main")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.RemoteBranchExists(context.Background(), "https://example.com/r.git", "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddWorktreeNewBranch(t *testing.T) {
	f := runner.NewFake()
	f.Stub("", "git", "worktree", "add", "-b", "ai/task-1", "/trees/ai-task-1", "main")

	g := NewGit(f)
	err := g.AddWorktreeNewBranch(context.Background(), "/repo", "/trees/ai-task-1", "ai/task-1", "main")
	require.NoError(t, err)
	require.Contains(t, f.Calls, "git worktree add -b ai/task-1 /trees/ai-task-1 main")
}

func TestCloneFailureCarriesStderr(t *testing.T) {
	f := runner.NewFake()
	f.StubError(errors.New("fatal: repository not found"), "git", "clone", "https://example.com/bad.git", "/dest")

	g := NewGit(f)
	err := g.Clone(context.Background(), "https://example.com/bad.git", "/dest")
	require.Error(t, err)
	require.Contains(t, err.Error(), "repository not found")
}

func TestIsTracked(t *testing.T) {
	f := runner.NewFake()
	f.Stub("main.go\n", "git", "ls-files", "--error-unmatch", "--", "main.go")

	g := NewGit(f)
	ok, err := g.IsTracked(context.Background(), "/repo", "main.go")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.IsTracked(context.Background(), "/repo", "new.go")
	require.NoError(t, err)
	require.False(t, ok)
}
