package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/consts"
	"github.com/codefionn/workspaced/internal/logger"
)

// Endpoints identifies the authorization server.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	RedirectURI  string
	Scopes       string
}

// StartResult is handed to the caller who opens the browser.
type StartResult struct {
	AuthURL  string `json:"authUrl"`
	Verifier string `json:"verifier"`
	State    string `json:"state"`
}

// Status reports login state to clients.
type Status struct {
	IsLoggedIn bool  `json:"isLoggedIn"`
	ExpiresIn  int64 `json:"expiresIn"`
}

// Token is a usable access token with its remaining lifetime.
type Token struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Manager drives the OAuth state machine: LoggedOut, AwaitingCallback,
// LoggedIn, Refreshing, with logout reachable from anywhere.
type Manager struct {
	endpoints Endpoints
	flows     *FlowRegistry
	store     *CredentialStore
	client    *http.Client
	now       func() time.Time
}

// NewManager creates a Manager.
func NewManager(endpoints Endpoints, flows *FlowRegistry, store *CredentialStore) *Manager {
	return &Manager{
		endpoints: endpoints,
		flows:     flows,
		store:     store,
		client:    &http.Client{Timeout: consts.Timeout30Seconds},
		now:       time.Now,
	}
}

// StartLogin generates a PKCE pair and CSRF state, records the pending
// flow, and returns the authorization URL. No tokens exist yet.
func (m *Manager) StartLogin() (*StartResult, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	if err := m.flows.Add(&PendingFlow{
		State:     state,
		Verifier:  verifier,
		CreatedAt: m.now(),
	}); err != nil {
		return nil, err
	}

	query := url.Values{
		"response_type":         {"code"},
		"client_id":             {m.endpoints.ClientID},
		"redirect_uri":          {m.endpoints.RedirectURI},
		"scope":                 {m.endpoints.Scopes},
		"state":                 {state},
		"code_challenge":        {ChallengeS256(verifier)},
		"code_challenge_method": {"S256"},
	}

	return &StartResult{
		AuthURL:  m.endpoints.AuthorizeURL + "?" + query.Encode(),
		Verifier: verifier,
		State:    state,
	}, nil
}

// CompleteLogin consumes the pending flow for state, verifies the
// caller-supplied verifier against the recorded one, exchanges the code
// for tokens, and persists them encrypted. The flow is deleted whether
// or not the exchange succeeds.
func (m *Manager) CompleteLogin(ctx context.Context, code, verifier, state string) error {
	flow, err := m.flows.Consume(state)
	if err != nil {
		return err
	}
	if verifier != flow.Verifier {
		return apperr.New(apperr.KindAuth, "verifier does not match the pending login")
	}
	if code == "" {
		return apperr.New(apperr.KindValidation, "authorization code is required")
	}

	tokens, err := m.exchange(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"code_verifier": verifier,
		"client_id":     m.endpoints.ClientID,
		"redirect_uri":  m.endpoints.RedirectURI,
		"state":         state,
	})
	if err != nil {
		return err
	}

	cfg := &Config{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		Mode:         "oauth",
	}
	if err := m.store.Save(cfg); err != nil {
		return err
	}

	logger.Info("OAuth login completed, token expires at %s", cfg.ExpiresAt.Format(time.RFC3339))
	return nil
}

// AccessToken returns a token valid for strictly more than the refresh
// horizon, refreshing transparently when the stored token is close to
// expiry.
func (m *Manager) AccessToken(ctx context.Context) (*Token, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	if m.now().Add(consts.TokenRefreshHorizon).After(cfg.ExpiresAt) {
		cfg, err = m.refresh(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	return &Token{
		AccessToken: cfg.AccessToken,
		ExpiresIn:   int64(cfg.ExpiresAt.Sub(m.now()).Seconds()),
	}, nil
}

// Credential returns the secret chat requests authenticate with: the
// stored API key when the store is in api_key mode, otherwise a fresh
// access token (refreshing if needed).
func (m *Manager) Credential(ctx context.Context) (mode, secret string, err error) {
	cfg, err := m.store.Load()
	if err != nil {
		return "", "", err
	}
	if cfg.Mode == "api_key" && cfg.APIKey != "" {
		return "api_key", cfg.APIKey, nil
	}

	token, err := m.AccessToken(ctx)
	if err != nil {
		return "", "", err
	}
	return "oauth", token.AccessToken, nil
}

// Status reports whether a credential is stored and its remaining
// lifetime.
func (m *Manager) Status() *Status {
	cfg, err := m.store.Load()
	if err != nil {
		return &Status{}
	}
	remaining := int64(cfg.ExpiresAt.Sub(m.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &Status{IsLoggedIn: true, ExpiresIn: remaining}
}

// Logout deletes the persisted credentials. Idempotent.
func (m *Manager) Logout() error {
	return m.store.Delete()
}

// refresh trades the refresh token for a new pair and rewrites the
// encrypted store.
func (m *Manager) refresh(ctx context.Context, cfg *Config) (*Config, error) {
	if cfg.RefreshToken == "" {
		return nil, apperr.New(apperr.KindAuth, "stored credential has no refresh token")
	}

	tokens, err := m.exchange(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": cfg.RefreshToken,
		"client_id":     m.endpoints.ClientID,
	})
	if err != nil {
		return nil, err
	}

	next := &Config{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		APIKey:       cfg.APIKey,
		ExpiresAt:    m.now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		Mode:         cfg.Mode,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cfg.RefreshToken
	}
	if err := m.store.Save(next); err != nil {
		return nil, err
	}

	logger.Debug("OAuth token refreshed, next expiry %s", next.ExpiresAt.Format(time.RFC3339))
	return next, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// exchange POSTs to the token endpoint.
func (m *Manager) exchange(ctx context.Context, form map[string]string) (*tokenResponse, error) {
	body, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoints.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, "token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, "failed to read token response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.KindAuth, "token endpoint returned %d", resp.StatusCode).
			WithDetail(string(raw))
	}

	var tokens tokenResponse
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, apperr.Wrap(apperr.KindAuth, "malformed token response", err)
	}
	if tokens.AccessToken == "" {
		return nil, apperr.New(apperr.KindAuth, "token response had no access token")
	}
	return &tokens, nil
}
