package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/runner"
)

// ScriptConfigName is the per-worktree script configuration file, read
// at run time.
const ScriptConfigName = "workspaced.json"

// ScriptConfig maps script types (e.g. "test", "lint") to shell
// commands.
type ScriptConfig struct {
	Scripts map[string]string `json:"scripts"`
}

// ScriptResult carries the combined outcome of one script run.
type ScriptResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

// RunScript reads the workspace's script configuration and executes the
// named script type in the worktree through a shell.
func (m *Manager) RunScript(ctx context.Context, run runner.Runner, workspaceID, scriptType string) (*ScriptResult, error) {
	if scriptType == "" {
		return nil, apperr.New(apperr.KindValidation, "script type is required")
	}

	ws, err := m.store.Get(workspaceID)
	if err != nil {
		return nil, err
	}

	cfg, err := loadScriptConfig(ws.WorktreePath)
	if err != nil {
		return nil, err
	}
	command, ok := cfg.Scripts[scriptType]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "no %q script configured for workspace %s", scriptType, workspaceID)
	}

	res, runErr := run.Run(ctx, ws.WorktreePath, "sh", "-c", command)
	output := res.Stdout
	if res.Stderr != "" {
		output += res.Stderr
	}
	if runErr != nil && res.ExitCode < 0 {
		return nil, apperr.Wrap(apperr.KindExternal, fmt.Sprintf("failed to run %q script", scriptType), runErr)
	}
	return &ScriptResult{Success: runErr == nil, Output: output}, nil
}

func loadScriptConfig(worktreePath string) (*ScriptConfig, error) {
	data, err := os.ReadFile(filepath.Join(worktreePath, ScriptConfigName))
	if os.IsNotExist(err) {
		return nil, apperr.Newf(apperr.KindNotFound, "no %s in worktree", ScriptConfigName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script config: %w", err)
	}
	var cfg ScriptConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid script config", err)
	}
	if cfg.Scripts == nil {
		cfg.Scripts = make(map[string]string)
	}
	return &cfg, nil
}
