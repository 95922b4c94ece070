// Package vcs provides a version control system abstraction layer.
// It defines the operations the daemon needs from the underlying VCS
// client: repository resolution, cloning, branch probes, worktree
// attachment, and the raw listings the diff engine parses.
package vcs

import "context"

// VCS represents a version control system.
type VCS interface {
	// RepositoryRoot returns the root directory of the repository
	// containing dir. Returns an error if dir is not inside a repository.
	RepositoryRoot(ctx context.Context, dir string) (string, error)

	// Clone clones url into dest.
	Clone(ctx context.Context, url, dest string) error

	// CurrentBranch returns the checked-out branch in repo, or an empty
	// string on a detached HEAD.
	CurrentBranch(ctx context.Context, repo string) (string, error)

	// DefaultBranch returns the remote's default branch for repo, or an
	// empty string when no remote default is recorded.
	DefaultBranch(ctx context.Context, repo string) (string, error)

	// BranchExists reports whether a local branch exists in repo.
	BranchExists(ctx context.Context, repo, branch string) (bool, error)

	// RemoteBranchExists reports whether branch exists among the heads of
	// the remote at url, without cloning.
	RemoteBranchExists(ctx context.Context, url, branch string) (bool, error)

	// AddWorktree attaches a worktree at path for an existing branch.
	AddWorktree(ctx context.Context, repo, path, branch string) error

	// AddWorktreeNewBranch creates branch from base and attaches a
	// worktree at path in one step.
	AddWorktreeNewBranch(ctx context.Context, repo, path, branch, base string) error

	// DiffNumstat returns the raw numeric-stat diff of the working tree
	// against HEAD.
	DiffNumstat(ctx context.Context, dir string) (string, error)

	// DiffNameStatus returns the raw name-status listing of the working
	// tree against HEAD.
	DiffNameStatus(ctx context.Context, dir string) (string, error)

	// StatusPorcelain returns the raw porcelain status listing.
	StatusPorcelain(ctx context.Context, dir string) (string, error)

	// LsFiles returns the raw recursive listing of tracked files.
	LsFiles(ctx context.Context, dir string) (string, error)

	// DiffFile returns the raw unified diff scoped to one path.
	DiffFile(ctx context.Context, dir, path string) (string, error)

	// IsTracked reports whether path is known to the index in dir.
	IsTracked(ctx context.Context, dir, path string) (bool, error)
}
