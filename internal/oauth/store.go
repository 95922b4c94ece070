package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/natefinch/atomic"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/secrets"
)

// Config is the long-lived credential record, stored encrypted at rest.
type Config struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	APIKey       string    `json:"apiKey,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Mode         string    `json:"mode"`
}

// CredentialStore persists the OAuth config encrypted with a
// host-derived key. The decrypted bytes are cached in a memguard enclave
// rather than a plain heap allocation.
type CredentialStore struct {
	mu         sync.Mutex
	path       string
	passphrase string
	cached     *memguard.Enclave
}

// NewCredentialStore creates a store writing to path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{
		path:       path,
		passphrase: secrets.HostPassphrase(),
	}
}

// Load returns the stored config, decrypting from disk on a cold cache.
// A missing file is an auth error: the caller is logged out.
func (s *CredentialStore) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.openCached()
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, apperr.New(apperr.KindAuth, "not logged in")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	payload, err := secrets.DecodePayload(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, "credential file is corrupt", err)
	}
	plaintext, err := secrets.Decrypt(payload, s.passphrase)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, "failed to decrypt credentials", err)
	}

	s.cached = memguard.NewEnclave(plaintext)
	return s.openCached()
}

// Save encrypts and persists the config atomically.
func (s *CredentialStore) Save(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	payload, err := secrets.Encrypt(plaintext, s.passphrase)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	raw, err := secrets.EncodePayload(payload)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	s.cached = memguard.NewEnclave(plaintext)
	return nil
}

// Delete removes the credential file. Deleting an absent file is a
// no-op success.
func (s *CredentialStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// openCached decodes the enclave-backed plaintext. Caller holds the
// mutex.
func (s *CredentialStore) openCached() (*Config, error) {
	buf, err := s.cached.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open credential enclave: %w", err)
	}
	defer buf.Destroy()

	var cfg Config
	if err := json.Unmarshal(buf.Bytes(), &cfg); err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, "credential cache is corrupt", err)
	}
	return &cfg, nil
}
