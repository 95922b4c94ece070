package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/consts"
	"github.com/codefionn/workspaced/internal/logger"
)

// PendingFlow is one in-progress authorization handshake, keyed by its
// CSRF state token. Single-use; expires after consts.PendingFlowTTL.
type PendingFlow struct {
	State     string    `json:"state"`
	Verifier  string    `json:"verifier"`
	CreatedAt time.Time `json:"createdAt"`
}

// FlowRegistry owns the pending authorization flows. Flows are mirrored
// to a scratch file so a daemon restart does not orphan an in-flight
// login.
type FlowRegistry struct {
	mu    sync.Mutex
	path  string
	flows map[string]*PendingFlow
	now   func() time.Time
}

// NewFlowRegistry loads the scratch file at path, dropping flows that
// expired while the daemon was down.
func NewFlowRegistry(path string) (*FlowRegistry, error) {
	r := &FlowRegistry{
		path:  path,
		flows: make(map[string]*PendingFlow),
		now:   time.Now,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending flows: %w", err)
	}
	var stored map[string]*PendingFlow
	if err := json.Unmarshal(data, &stored); err != nil {
		logger.Warn("Discarding unreadable pending-flow file: %v", err)
		return r, nil
	}
	for state, flow := range stored {
		if r.now().Sub(flow.CreatedAt) < consts.PendingFlowTTL {
			r.flows[state] = flow
		}
	}
	return r, nil
}

// Add records a new pending flow and persists the registry.
func (r *FlowRegistry) Add(flow *PendingFlow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.State] = flow
	return r.save()
}

// Consume looks up a flow by state and removes it, regardless of the
// outcome, so a state token is usable at most once. Unknown or expired
// states fail closed with an auth error.
func (r *FlowRegistry) Consume(state string) (*PendingFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.flows[state]
	if !ok {
		return nil, apperr.New(apperr.KindAuth, "unknown or already-used login state")
	}
	delete(r.flows, state)
	if err := r.save(); err != nil {
		logger.Warn("Failed to persist pending flows after consume: %v", err)
	}

	if r.now().Sub(flow.CreatedAt) >= consts.PendingFlowTTL {
		return nil, apperr.New(apperr.KindAuth, "login flow expired")
	}
	return flow, nil
}

// Len returns the number of pending flows.
func (r *FlowRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Shutdown flushes the registry to disk.
func (r *FlowRegistry) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

// save persists the map atomically. Caller holds the mutex.
func (r *FlowRegistry) save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("failed to create flow directory: %w", err)
	}
	data, err := json.Marshal(r.flows)
	if err != nil {
		return fmt.Errorf("failed to encode pending flows: %w", err)
	}
	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write pending flows: %w", err)
	}
	return nil
}
