package workspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/diff"
	"github.com/codefionn/workspaced/internal/runner"
	"github.com/codefionn/workspaced/internal/vcs"
)

// The tests below run against a real git binary.

func requireGit(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping end-to-end git test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func mustGit(t *testing.T, run runner.Runner, dir string, args ...string) {
	t.Helper()
	res, err := run.Run(context.Background(), dir, "git", args...)
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), res.Stderr)
}

// initRepo creates a repository on branch main with one committed file.
func initRepo(t *testing.T, run runner.Runner, content string) string {
	t.Helper()
	repo := filepath.Join(t.TempDir(), "repo")
	require.NoError(t, os.MkdirAll(repo, 0755))

	mustGit(t, run, repo, "init")
	mustGit(t, run, repo, "checkout", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(repo, "notes.txt"), []byte(content), 0644))
	mustGit(t, run, repo, "add", ".")
	mustGit(t, run, repo, "-c", "user.name=test", "-c", "user.email=test@example.com",
		"commit", "-m", "initial")
	return repo
}

func newGitManager(t *testing.T, run runner.Runner) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "workspaces.json"))
	require.NoError(t, err)
	worktrees := filepath.Join(dir, "trees")
	require.NoError(t, os.MkdirAll(worktrees, 0755))
	return NewManager(vcs.NewGit(run), store, filepath.Join(dir, "repos"), worktrees)
}

func TestCreateFromLocalRepoEndToEnd(t *testing.T) {
	requireGit(t)

	run := runner.New()
	repo := initRepo(t, run, "alpha\nbeta\n")
	m := newGitManager(t, run)

	ws, err := m.Create(context.Background(), CreateInput{RepoPath: repo})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ai-task-\d+$`), ws.BranchName)
	assert.Equal(t, "main", ws.BaseBranch)

	info, err := os.Stat(ws.WorktreePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// A freshly attached worktree has no changes.
	engine := diff.NewEngine(vcs.NewGit(run))
	changes, err := engine.FileChanges(context.Background(), ws.WorktreePath)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestSingleLineChangeYieldsOneHunkEndToEnd(t *testing.T) {
	requireGit(t)

	run := runner.New()
	repo := initRepo(t, run, "alpha\nbeta\ngamma\n")
	m := newGitManager(t, run)

	ws, err := m.Create(context.Background(), CreateInput{RepoPath: repo})
	require.NoError(t, err)

	path := filepath.Join(ws.WorktreePath, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("alpha\nbeta\ngamma\ndelta\n"), 0644))

	engine := diff.NewEngine(vcs.NewGit(run))

	changes, err := engine.FileChanges(context.Background(), ws.WorktreePath)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "notes.txt", changes[0].Path)
	assert.Equal(t, 1, changes[0].LinesAdded)
	assert.Equal(t, 0, changes[0].LinesRemoved)

	hunks, err := engine.FileHunks(context.Background(), ws.WorktreePath, "notes.txt")
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	var added, removed int
	for _, line := range hunks[0].Lines {
		switch {
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	assert.Equal(t, 1, added)
	assert.Zero(t, removed)
	assert.Contains(t, hunks[0].Lines, "+delta")
}
