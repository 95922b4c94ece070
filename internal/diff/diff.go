// Package diff computes file-change summaries, per-file hunk lists, and
// file trees for a worktree by parsing git output.
package diff

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/vcs"
)

// Status classifies one changed path.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
	StatusRenamed  Status = "renamed"
)

// Entry summarizes the change to one path. Derived per request, never
// persisted.
type Entry struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"linesAdded"`
	LinesRemoved int    `json:"linesRemoved"`
	Status       Status `json:"status"`
}

// Hunk is one contiguous block of a unified diff. Lines keep their
// leading +/-/space marker verbatim.
type Hunk struct {
	Header string   `json:"header"`
	Lines  []string `json:"lines"`
}

// Engine builds diff views for worktrees.
type Engine struct {
	git vcs.VCS
}

// NewEngine creates an Engine over the given VCS.
func NewEngine(git vcs.VCS) *Engine {
	return &Engine{git: git}
}

// FileChanges merges the numeric-stat diff with the name-status listing
// by path: numstat supplies add/remove counts, name-status supplies the
// change kind. Paths appearing in only one listing still get an entry
// (zero counts, or status "modified" respectively). Output order is
// first-seen path order, stable for identical input.
func (e *Engine) FileChanges(ctx context.Context, worktree string) ([]Entry, error) {
	numstat, err := e.git.DiffNumstat(ctx, worktree)
	if err != nil {
		return nil, err
	}
	nameStatus, err := e.git.DiffNameStatus(ctx, worktree)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*Entry)
	var order []string
	record := func(path string) *Entry {
		if entry, ok := byPath[path]; ok {
			return entry
		}
		entry := &Entry{Path: path, Status: StatusModified}
		byPath[path] = entry
		order = append(order, path)
		return entry
	}

	for _, line := range splitLines(numstat) {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		entry := record(parts[2])
		// Binary files report "-" for both counts.
		if added, err := strconv.Atoi(parts[0]); err == nil {
			entry.LinesAdded = added
		}
		if removed, err := strconv.Atoi(parts[1]); err == nil {
			entry.LinesRemoved = removed
		}
	}

	for _, line := range splitLines(nameStatus) {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		code := parts[0]
		path := parts[len(parts)-1] // renames list old then new; keep the new path
		entry := record(path)
		entry.Status = statusFromCode(code)
	}

	entries := make([]Entry, 0, len(order))
	for _, path := range order {
		entries = append(entries, *byPath[path])
	}
	return entries, nil
}

// FileHunks parses the unified diff scoped to one path into hunks. A
// newly created untracked file has no diff to parse, so a single
// all-lines-added hunk is synthesized from the file content instead.
func (e *Engine) FileHunks(ctx context.Context, worktree, path string) ([]Hunk, error) {
	// The untracked fallback reads straight from disk, so the path must
	// stay inside the worktree.
	if !filepath.IsLocal(path) {
		return nil, apperr.Newf(apperr.KindValidation, "path escapes the worktree: %s", path)
	}

	raw, err := e.git.DiffFile(ctx, worktree, path)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(raw) == "" {
		tracked, err := e.git.IsTracked(ctx, worktree, path)
		if err != nil {
			return nil, err
		}
		if !tracked {
			return e.untrackedFileHunk(worktree, path)
		}
		return []Hunk{}, nil
	}

	fileDiff, err := godiff.ParseFileDiff([]byte(raw))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, fmt.Sprintf("failed to parse diff for %s", path), err)
	}

	hunks := make([]Hunk, 0, len(fileDiff.Hunks))
	for _, h := range fileDiff.Hunks {
		header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OrigStartLine, h.OrigLines, h.NewStartLine, h.NewLines)
		if h.Section != "" {
			header += " " + h.Section
		}
		hunks = append(hunks, Hunk{
			Header: header,
			Lines:  splitHunkBody(h.Body),
		})
	}
	return hunks, nil
}

// untrackedFileHunk reads the file directly and synthesizes one hunk
// marking every line as added.
func (e *Engine) untrackedFileHunk(worktree, path string) ([]Hunk, error) {
	data, err := os.ReadFile(filepath.Join(worktree, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Newf(apperr.KindNotFound, "file not found: %s", path)
		}
		return nil, apperr.Wrap(apperr.KindExternal, fmt.Sprintf("failed to read %s", path), err)
	}

	lines := splitLinesKeepBlank(string(data))
	hunk := Hunk{
		Header: fmt.Sprintf("@@ -0,0 +1,%d @@", len(lines)),
		Lines:  make([]string, 0, len(lines)),
	}
	for _, line := range lines {
		hunk.Lines = append(hunk.Lines, "+"+line)
	}
	return []Hunk{hunk}, nil
}

func statusFromCode(code string) Status {
	if code == "" {
		return StatusModified
	}
	switch code[0] {
	case 'A':
		return StatusAdded
	case 'D':
		return StatusDeleted
	case 'R':
		return StatusRenamed
	default:
		return StatusModified
	}
}

// splitLines splits output into non-empty trimmed-right lines.
func splitLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitLinesKeepBlank splits file content into lines, preserving interior
// blank lines but dropping the trailing newline's empty remainder.
func splitLinesKeepBlank(content string) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitHunkBody splits a hunk body into its verbatim lines, markers
// included.
func splitHunkBody(body []byte) []string {
	s := strings.TrimSuffix(string(body), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
