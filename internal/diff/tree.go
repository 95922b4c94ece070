package diff

import (
	"context"
	"sort"
	"strings"
)

// NodeKind distinguishes file tree nodes.
type NodeKind string

const (
	NodeFile      NodeKind = "file"
	NodeDirectory NodeKind = "directory"
)

// TreeNode is one node of the worktree file tree.
type TreeNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Kind     NodeKind    `json:"kind"`
	Children []*TreeNode `json:"children,omitempty"`
}

// FileTree unions tracked files with untracked status entries and builds
// a trie rooted at the worktree root. Directory nodes exist only as a
// byproduct of the files beneath them; an empty directory is invisible.
// The returned slice is the root's children, directories first, sorted
// by name.
func (e *Engine) FileTree(ctx context.Context, worktree string) ([]*TreeNode, error) {
	tracked, err := e.git.LsFiles(ctx, worktree)
	if err != nil {
		return nil, err
	}
	status, err := e.git.StatusPorcelain(ctx, worktree)
	if err != nil {
		return nil, err
	}

	root := &TreeNode{Kind: NodeDirectory}
	for _, path := range splitLines(tracked) {
		insertPath(root, path)
	}
	for _, line := range splitLines(status) {
		if !strings.HasPrefix(line, "??") {
			continue
		}
		path := strings.TrimSpace(line[2:])
		insertPath(root, path)
	}

	sortTree(root)
	return root.Children, nil
}

// insertPath walks the path segments, creating missing intermediate
// directory nodes, and creates the final segment as a file node. A path
// with a trailing slash (git's shorthand for a whole untracked
// directory) only creates directory nodes.
func insertPath(root *TreeNode, path string) {
	dirOnly := strings.HasSuffix(path, "/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return
	}

	node := root
	prefix := ""
	for i, segment := range segments {
		prefix = joinPath(prefix, segment)
		last := i == len(segments)-1

		child := findChild(node, segment)
		if child == nil {
			kind := NodeDirectory
			if last && !dirOnly {
				kind = NodeFile
			}
			child = &TreeNode{Name: segment, Path: prefix, Kind: kind}
			node.Children = append(node.Children, child)
		}
		node = child
	}
}

func findChild(node *TreeNode, name string) *TreeNode {
	for _, child := range node.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "/" + segment
}

func sortTree(node *TreeNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.Kind != b.Kind {
			return a.Kind == NodeDirectory
		}
		return a.Name < b.Name
	})
	for _, child := range node.Children {
		sortTree(child)
	}
}
