package diff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/runner"
)

func treeFor(t *testing.T, tracked, status string) []*TreeNode {
	t.Helper()
	f := runner.NewFake()
	f.Stub(tracked, "git", "ls-files")
	f.Stub(status, "git", "status", "--porcelain")

	tree, err := newEngine(f).FileTree(context.Background(), "/wt")
	require.NoError(t, err)
	return tree
}

func TestFileTreeBuildsDirectoriesFromPaths(t *testing.T) {
	tree := treeFor(t, "cmd/app/main.go\ninternal/diff/diff.go\ninternal/diff/tree.go\nREADME.md\n", "")

	require.Len(t, tree, 3)
	require.Equal(t, "cmd", tree[0].Name)
	require.Equal(t, NodeDirectory, tree[0].Kind)
	require.Equal(t, "internal", tree[1].Name)
	require.Equal(t, "README.md", tree[2].Name)
	require.Equal(t, NodeFile, tree[2].Kind)

	internal := tree[1]
	require.Len(t, internal.Children, 1)
	diffDir := internal.Children[0]
	require.Equal(t, "internal/diff", diffDir.Path)
	require.Equal(t, NodeDirectory, diffDir.Kind)
	require.Len(t, diffDir.Children, 2)
	require.Equal(t, "internal/diff/diff.go", diffDir.Children[0].Path)
	require.Equal(t, NodeFile, diffDir.Children[0].Kind)
}

func TestFileTreeUnionsUntracked(t *testing.T) {
	tree := treeFor(t, "main.go\n", " M main.go\n?? scratch/notes.txt\n")

	require.Len(t, tree, 2)
	require.Equal(t, "scratch", tree[0].Name)
	require.Equal(t, NodeDirectory, tree[0].Kind)
	require.Equal(t, "scratch/notes.txt", tree[0].Children[0].Path)
	require.Equal(t, "main.go", tree[1].Name)
}

func TestFileTreeUntrackedDirectoryEntry(t *testing.T) {
	tree := treeFor(t, "main.go\n", "?? newdir/\n")

	require.Len(t, tree, 2)
	require.Equal(t, "newdir", tree[0].Name)
	require.Equal(t, NodeDirectory, tree[0].Kind)
	require.Empty(t, tree[0].Children)
}

func TestFileTreeOrderIndependent(t *testing.T) {
	a := treeFor(t, "pkg/a.go\npkg/sub/b.go\ntop.go\n", "")
	b := treeFor(t, "top.go\npkg/sub/b.go\npkg/a.go\n", "")
	require.Equal(t, a, b)

	// Exactly one directory node per shared segment.
	require.Len(t, a, 2)
	pkg := a[0]
	require.Equal(t, "pkg", pkg.Name)
	require.Len(t, pkg.Children, 2)
	require.Equal(t, "sub", pkg.Children[0].Name)
}

func TestFileTreeDuplicateInsertIsIdempotent(t *testing.T) {
	tree := treeFor(t, "main.go\n", "?? main.go\n")
	require.Len(t, tree, 1)
	require.Equal(t, "main.go", tree[0].Name)
}
