// Package workspace manages the lifecycle of isolated agent workspaces:
// one workspace owns exactly one git worktree checked out to exactly one
// branch, registered in a durable on-disk document.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// Workspace is the durable record of one worktree. Immutable after
// creation.
type Workspace struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	BranchName   string    `json:"branchName"`
	BaseBranch   string    `json:"baseBranch"`
	RepoRootPath string    `json:"repoRootPath"`
	WorktreePath string    `json:"worktreePath"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GenerateID derives a stable workspace id from the worktree path.
func GenerateID(worktreePath string) string {
	sum := sha256.Sum256([]byte(worktreePath))
	return hex.EncodeToString(sum[:])[:16]
}

// Slugify lower-cases s, collapses runs of non-alphanumerics to single
// hyphens, and trims leading/trailing hyphens.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // swallow leading separators
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
