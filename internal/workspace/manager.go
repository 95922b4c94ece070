package workspace

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/logger"
	"github.com/codefionn/workspaced/internal/vcs"
)

// CreateInput describes a workspace creation request. Exactly one of
// RepoPath/RepoURL is required; the rest is optional.
type CreateInput struct {
	RepoPath   string `json:"repoPath,omitempty"`
	RepoURL    string `json:"repoUrl,omitempty"`
	Name       string `json:"name,omitempty"`
	Branch     string `json:"branch,omitempty"`
	BaseBranch string `json:"baseBranch,omitempty"`
}

// BranchProbe describes a branch existence check.
type BranchProbe struct {
	RepoPath string `json:"repoPath,omitempty"`
	RepoURL  string `json:"repoUrl,omitempty"`
	Branch   string `json:"branch"`
}

// Manager creates and locates worktree-backed workspaces.
type Manager struct {
	git          vcs.VCS
	store        *Store
	reposDir     string
	worktreesDir string
}

// NewManager creates a Manager. reposDir receives clones of remote
// repositories; worktreesDir receives the worktree directories.
func NewManager(git vcs.VCS, store *Store, reposDir, worktreesDir string) *Manager {
	return &Manager{
		git:          git,
		store:        store,
		reposDir:     reposDir,
		worktreesDir: worktreesDir,
	}
}

// Create provisions a workspace: clone if needed, resolve the repo root
// and base branch, create or attach the branch with a new worktree, and
// register the record. Version-control failures are surfaced with the
// tool's stderr; nothing is retried.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*Workspace, error) {
	if input.RepoPath == "" && input.RepoURL == "" {
		return nil, apperr.New(apperr.KindValidation, "either repoPath or repoUrl is required")
	}

	repoPath := input.RepoPath
	if input.RepoURL != "" {
		dest := filepath.Join(m.reposDir, cloneDirName(input.RepoURL))
		if err := m.git.Clone(ctx, input.RepoURL, dest); err != nil {
			return nil, err
		}
		repoPath = dest
	}

	repoRoot, err := m.git.RepositoryRoot(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	base, err := m.resolveBaseBranch(ctx, repoRoot, input.BaseBranch)
	if err != nil {
		return nil, err
	}

	requested := input.Branch
	if requested == "" {
		requested = fmt.Sprintf("ai/task-%d", time.Now().Unix())
	}
	branch := Slugify(requested)
	if branch == "" {
		return nil, apperr.Newf(apperr.KindValidation, "branch name %q has no usable characters", input.Branch)
	}

	worktreePath := filepath.Join(m.worktreesDir, fmt.Sprintf("%s-%s", branch, randomSuffix()))

	exists, err := m.git.BranchExists(ctx, repoRoot, branch)
	if err != nil {
		return nil, err
	}
	if exists {
		err = m.git.AddWorktree(ctx, repoRoot, worktreePath, branch)
	} else {
		err = m.git.AddWorktreeNewBranch(ctx, repoRoot, worktreePath, branch, base)
	}
	if err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = branch
	}

	ws := &Workspace{
		ID:           GenerateID(worktreePath),
		Name:         name,
		BranchName:   branch,
		BaseBranch:   base,
		RepoRootPath: repoRoot,
		WorktreePath: worktreePath,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.Create(ws); err != nil {
		return nil, err
	}

	logger.Info("Created workspace %s (branch %s) at %s", ws.ID, ws.BranchName, ws.WorktreePath)
	return ws, nil
}

// BranchExists probes branch existence without committing to workspace
// creation. "Not found" is a recoverable answer, not a fault.
func (m *Manager) BranchExists(ctx context.Context, probe BranchProbe) (bool, error) {
	if probe.Branch == "" {
		return false, apperr.New(apperr.KindValidation, "branch is required")
	}
	if probe.RepoURL != "" {
		return m.git.RemoteBranchExists(ctx, probe.RepoURL, probe.Branch)
	}
	if probe.RepoPath == "" {
		return false, apperr.New(apperr.KindValidation, "either repoPath or repoUrl is required")
	}
	repoRoot, err := m.git.RepositoryRoot(ctx, probe.RepoPath)
	if err != nil {
		return false, err
	}
	return m.git.BranchExists(ctx, repoRoot, probe.Branch)
}

// resolveBaseBranch picks the explicit override, else the remote default
// branch, else the currently checked-out branch.
func (m *Manager) resolveBaseBranch(ctx context.Context, repoRoot, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if def, err := m.git.DefaultBranch(ctx, repoRoot); err == nil && def != "" {
		return def, nil
	}
	current, err := m.git.CurrentBranch(ctx, repoRoot)
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", apperr.New(apperr.KindValidation, "repository has no usable base branch (detached HEAD and no remote default)")
	}
	return current, nil
}

// cloneDirName builds a collision-resistant folder name for a clone:
// slug of the repository name plus a random numeric suffix.
func cloneDirName(repoURL string) string {
	name := strings.TrimSuffix(filepath.Base(repoURL), ".git")
	slug := Slugify(name)
	if slug == "" {
		slug = "repo"
	}
	return fmt.Sprintf("%s-%s", slug, randomSuffix())
}

// randomSuffix returns a random 4-digit numeric suffix.
func randomSuffix() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("%04d", time.Now().UnixNano()%10000)
	}
	return fmt.Sprintf("%04d", binary.BigEndian.Uint32(buf[:])%10000)
}
