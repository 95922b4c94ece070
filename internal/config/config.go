// Package config loads the daemon configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// OAuthEndpointsConfig configures the upstream OAuth provider.
type OAuthEndpointsConfig struct {
	AuthorizeURL string   `json:"authorize_url"`
	TokenURL     string   `json:"token_url"`
	ClientID     string   `json:"client_id"`
	RedirectURI  string   `json:"redirect_uri"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Config represents daemon configuration.
type Config struct {
	ListenAddr     string               `json:"listen_addr"`
	ReposDir       string               `json:"repos_dir"`
	WorktreesDir   string               `json:"worktrees_dir"`
	RegistryPath   string               `json:"registry_path"`
	CredentialPath string               `json:"credential_path"`
	FlowStatePath  string               `json:"flow_state_path"`
	Shell          string               `json:"shell,omitempty"`
	Model          string               `json:"model,omitempty"`
	LogLevel       string               `json:"log_level"`
	LogPath        string               `json:"log_path,omitempty"`
	OAuth          OAuthEndpointsConfig `json:"oauth"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "workspaced")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "workspaced")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "workspaced")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "workspaced")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "workspaced")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "workspaced")
	default:
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "workspaced")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "workspaced")
	}
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		ListenAddr:     "127.0.0.1:8787",
		ReposDir:       filepath.Join(stateDir, "repos"),
		WorktreesDir:   filepath.Join(stateDir, "worktrees"),
		RegistryPath:   filepath.Join(stateDir, "workspaces.json"),
		CredentialPath: filepath.Join(stateDir, "credentials.enc"),
		FlowStatePath:  filepath.Join(stateDir, "oauth-flows.json"),
		LogLevel:       "info",
		LogPath:        filepath.Join(stateDir, "workspaced.log"),
		OAuth: OAuthEndpointsConfig{
			AuthorizeURL: "https://claude.ai/oauth/authorize",
			TokenURL:     "https://console.anthropic.com/v1/oauth/token",
			ClientID:     "9d1c250a-e61b-44d9-88ed-5944d1962f5e",
			RedirectURI:  "http://localhost:54545/callback",
			Scopes:       []string{"org:create_api_key", "user:profile", "user:inference"},
		},
	}
}

// GetConfigPath returns the default config file path.
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Load reads configuration from path, falling back to defaults for a
// missing file, then applies WORKSPACED_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	stateDir := defaultStateDir()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8787"
	}
	if cfg.ReposDir == "" {
		cfg.ReposDir = filepath.Join(stateDir, "repos")
	}
	if cfg.WorktreesDir == "" {
		cfg.WorktreesDir = filepath.Join(stateDir, "worktrees")
	}
	if cfg.RegistryPath == "" {
		cfg.RegistryPath = filepath.Join(stateDir, "workspaces.json")
	}
	if cfg.CredentialPath == "" {
		cfg.CredentialPath = filepath.Join(stateDir, "credentials.enc")
	}
	if cfg.FlowStatePath == "" {
		cfg.FlowStatePath = filepath.Join(stateDir, "oauth-flows.json")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"WORKSPACED_LISTEN_ADDR":     &c.ListenAddr,
		"WORKSPACED_REPOS_DIR":       &c.ReposDir,
		"WORKSPACED_WORKTREES_DIR":   &c.WorktreesDir,
		"WORKSPACED_REGISTRY_PATH":   &c.RegistryPath,
		"WORKSPACED_CREDENTIAL_PATH": &c.CredentialPath,
		"WORKSPACED_FLOW_STATE_PATH": &c.FlowStatePath,
		"WORKSPACED_SHELL":           &c.Shell,
		"WORKSPACED_MODEL":           &c.Model,
		"WORKSPACED_LOG_LEVEL":       &c.LogLevel,
		"WORKSPACED_LOG_PATH":        &c.LogPath,
		"WORKSPACED_OAUTH_CLIENT_ID": &c.OAuth.ClientID,
	}
	for key, target := range overrides {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}
}

// Save writes configuration to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
