package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/runner"
)

// Git implements the VCS interface for Git repositories by shelling out
// to the git client through a runner.
type Git struct {
	run runner.Runner
}

// NewGit creates a Git VCS backed by the given runner.
func NewGit(run runner.Runner) *Git {
	return &Git{run: run}
}

// RepositoryRoot returns the root directory of the Git repository
// containing dir.
func (g *Git) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	res, err := g.run.Run(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "not in a git repository", err).WithDetail(res.Stderr)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Clone clones url into dest.
func (g *Git) Clone(ctx context.Context, url, dest string) error {
	res, err := g.run.Run(ctx, "", "git", "clone", url, dest)
	if err != nil {
		return apperr.Wrap(apperr.KindExternal, fmt.Sprintf("failed to clone %s", url), err).WithDetail(res.Stderr)
	}
	return nil
}

// CurrentBranch returns the checked-out branch in repo.
// Returns an empty string on a detached HEAD.
func (g *Git) CurrentBranch(ctx context.Context, repo string) (string, error) {
	res, err := g.run.Run(ctx, repo, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "failed to resolve current branch", err).WithDetail(res.Stderr)
	}
	branch := strings.TrimSpace(res.Stdout)
	if branch == "HEAD" {
		// Detached HEAD.
		return "", nil
	}
	return branch, nil
}

// DefaultBranch returns the remote's default branch, resolved from the
// origin HEAD symref. Returns an empty string when origin has no
// recorded default (e.g. a purely local repository).
func (g *Git) DefaultBranch(ctx context.Context, repo string) (string, error) {
	res, err := g.run.Run(ctx, repo, "git", "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		return "", nil
	}
	ref := strings.TrimSpace(res.Stdout)
	return strings.TrimPrefix(ref, "origin/"), nil
}

// BranchExists reports whether a local branch exists in repo.
func (g *Git) BranchExists(ctx context.Context, repo, branch string) (bool, error) {
	res, err := g.run.Run(ctx, repo, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err != nil {
		if res.ExitCode == 1 {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindExternal, "failed to probe local branch", err).WithDetail(res.Stderr)
	}
	return true, nil
}

// RemoteBranchExists lists the remote's heads and checks for the named
// ref without cloning.
func (g *Git) RemoteBranchExists(ctx context.Context, url, branch string) (bool, error) {
	res, err := g.run.Run(ctx, "", "git", "ls-remote", "--heads", url, "refs/heads/"+branch)
	if err != nil {
		return false, apperr.Wrap(apperr.KindExternal, fmt.Sprintf("failed to list heads of %s", url), err).WithDetail(res.Stderr)
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

// AddWorktree attaches a worktree at path for an existing branch.
func (g *Git) AddWorktree(ctx context.Context, repo, path, branch string) error {
	res, err := g.run.Run(ctx, repo, "git", "worktree", "add", path, branch)
	if err != nil {
		return apperr.Wrap(apperr.KindExternal, "failed to attach worktree", err).WithDetail(res.Stderr)
	}
	return nil
}

// AddWorktreeNewBranch creates branch from base and attaches a worktree
// at path in one step.
func (g *Git) AddWorktreeNewBranch(ctx context.Context, repo, path, branch, base string) error {
	res, err := g.run.Run(ctx, repo, "git", "worktree", "add", "-b", branch, path, base)
	if err != nil {
		return apperr.Wrap(apperr.KindExternal, "failed to create worktree", err).WithDetail(res.Stderr)
	}
	return nil
}

// DiffNumstat returns the raw numeric-stat diff against HEAD.
func (g *Git) DiffNumstat(ctx context.Context, dir string) (string, error) {
	res, err := g.run.Run(ctx, dir, "git", "diff", "HEAD", "--numstat")
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "git diff --numstat failed", err).WithDetail(res.Stderr)
	}
	return res.Stdout, nil
}

// DiffNameStatus returns the raw name-status listing against HEAD.
func (g *Git) DiffNameStatus(ctx context.Context, dir string) (string, error) {
	res, err := g.run.Run(ctx, dir, "git", "diff", "HEAD", "--name-status")
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "git diff --name-status failed", err).WithDetail(res.Stderr)
	}
	return res.Stdout, nil
}

// StatusPorcelain returns the raw porcelain status listing.
func (g *Git) StatusPorcelain(ctx context.Context, dir string) (string, error) {
	res, err := g.run.Run(ctx, dir, "git", "status", "--porcelain")
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "git status failed", err).WithDetail(res.Stderr)
	}
	return res.Stdout, nil
}

// LsFiles returns the raw recursive listing of tracked files.
func (g *Git) LsFiles(ctx context.Context, dir string) (string, error) {
	res, err := g.run.Run(ctx, dir, "git", "ls-files")
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, "git ls-files failed", err).WithDetail(res.Stderr)
	}
	return res.Stdout, nil
}

// DiffFile returns the raw unified diff scoped to one path.
func (g *Git) DiffFile(ctx context.Context, dir, path string) (string, error) {
	res, err := g.run.Run(ctx, dir, "git", "diff", "HEAD", "--", path)
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, fmt.Sprintf("git diff failed for %s", path), err).WithDetail(res.Stderr)
	}
	return res.Stdout, nil
}

// IsTracked reports whether path is known to the index in dir.
func (g *Git) IsTracked(ctx context.Context, dir, path string) (bool, error) {
	res, err := g.run.Run(ctx, dir, "git", "ls-files", "--error-unmatch", "--", path)
	if err != nil {
		if res.ExitCode == 1 {
			return false, nil
		}
		return false, apperr.Wrap(apperr.KindExternal, "git ls-files failed", err).WithDetail(res.Stderr)
	}
	return true, nil
}
