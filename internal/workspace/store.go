package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/codefionn/workspaced/internal/apperr"
)

// document is the persisted aggregate: the whole registry is
// read-modify-written on every mutation.
type document struct {
	Workspaces map[string]*Workspace `json:"workspaces"`
}

// Store is the durable workspace registry. All mutation goes through the
// store's mutex, so two near-simultaneous creations cannot lose writes,
// and every save is a write-to-temp-then-rename.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// NewStore loads the registry document at path, creating an empty
// registry if the file does not exist.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc:  document{Workspaces: make(map[string]*Workspace)},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace registry: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse workspace registry: %w", err)
	}
	if s.doc.Workspaces == nil {
		s.doc.Workspaces = make(map[string]*Workspace)
	}
	return s, nil
}

// Create registers a workspace and persists the document. A second
// workspace for the same branch in the same repository is rejected, so
// racing creations with an identical explicit branch name settle
// first-writer-wins.
func (s *Store) Create(ws *Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Workspaces[ws.ID]; exists {
		return apperr.Newf(apperr.KindValidation, "workspace %s already registered", ws.ID)
	}
	for _, existing := range s.doc.Workspaces {
		if existing.RepoRootPath == ws.RepoRootPath && existing.BranchName == ws.BranchName {
			return apperr.Newf(apperr.KindValidation,
				"branch %q already has a workspace in %s", ws.BranchName, ws.RepoRootPath)
		}
	}

	s.doc.Workspaces[ws.ID] = ws
	return s.save()
}

// Get returns the workspace with the given id.
func (s *Store) Get(id string) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.doc.Workspaces[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "unknown workspace: %s", id)
	}
	copy := *ws
	return &copy, nil
}

// List returns all workspaces ordered by creation time.
func (s *Store) List() []*Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Workspace, 0, len(s.doc.Workspaces))
	for _, ws := range s.doc.Workspaces {
		copy := *ws
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// save persists the whole document atomically. Caller holds the mutex.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	data, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workspace registry: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write workspace registry: %w", err)
	}
	return nil
}
