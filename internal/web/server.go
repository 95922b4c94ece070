// Package web exposes the daemon over HTTP and WebSocket: workspace and
// diff queries, OAuth login, chat streaming, tool approvals and
// interactive terminal sessions.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/approval"
	"github.com/codefionn/workspaced/internal/consts"
	"github.com/codefionn/workspaced/internal/diff"
	"github.com/codefionn/workspaced/internal/llm"
	"github.com/codefionn/workspaced/internal/logger"
	"github.com/codefionn/workspaced/internal/oauth"
	"github.com/codefionn/workspaced/internal/runner"
	"github.com/codefionn/workspaced/internal/term"
	"github.com/codefionn/workspaced/internal/workspace"
)

const authTokenLength = 32

// ProviderFactory builds a text-generation provider for a chat request.
// The token parameter carries the OAuth access token when the user is
// logged in via OAuth, or an API key otherwise.
type ProviderFactory func(mode, token, model string) (llm.Provider, error)

// Server routes external requests into the daemon's components.
type Server struct {
	addr       string
	authToken  string
	httpServer *http.Server
	router     *httprouter.Router

	workspaces *workspace.Manager
	store      *workspace.Store
	diffs      *diff.Engine
	oauth      *oauth.Manager
	broker     *approval.Broker
	policy     *approval.Policy
	terminals  *term.Manager
	run        runner.Runner
	newLLM     ProviderFactory
	model      string
}

// Options bundles the collaborators the server routes into.
type Options struct {
	Addr       string
	Workspaces *workspace.Manager
	Store      *workspace.Store
	Diffs      *diff.Engine
	OAuth      *oauth.Manager
	Broker     *approval.Broker
	Policy     *approval.Policy
	Terminals  *term.Manager
	Runner     runner.Runner
	NewLLM     ProviderFactory
	Model      string
}

// NewServer creates a server with a freshly generated auth token.
func NewServer(opts Options) (*Server, error) {
	token, err := generateAuthToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to generate auth token", err)
	}

	s := &Server{
		addr:       opts.Addr,
		authToken:  token,
		router:     httprouter.New(),
		workspaces: opts.Workspaces,
		store:      opts.Store,
		diffs:      opts.Diffs,
		oauth:      opts.OAuth,
		broker:     opts.Broker,
		policy:     opts.Policy,
		terminals:  opts.Terminals,
		run:        opts.Runner,
		newLLM:     opts.NewLLM,
		model:      opts.Model,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.POST("/workspaces", s.auth(s.handleCreateWorkspace))
	s.router.GET("/workspaces", s.auth(s.handleListWorkspaces))
	s.router.GET("/workspaces/:id", s.auth(s.handleGetWorkspace))
	s.router.GET("/workspaces/:id/diffs", s.auth(s.handleDiffs))
	s.router.GET("/workspaces/:id/files", s.auth(s.handleFileTree))
	s.router.GET("/workspaces/:id/diff-hunks", s.auth(s.handleDiffHunks))
	s.router.POST("/workspaces/:id/run-script", s.auth(s.handleRunScript))
	s.router.POST("/repos/branch-exists", s.auth(s.handleBranchExists))

	s.router.GET("/oauth/status", s.auth(s.handleOAuthStatus))
	s.router.POST("/oauth/start", s.auth(s.handleOAuthStart))
	s.router.POST("/oauth/complete", s.auth(s.handleOAuthComplete))
	s.router.GET("/oauth/token", s.auth(s.handleOAuthToken))
	s.router.POST("/oauth/logout", s.auth(s.handleOAuthLogout))

	s.router.POST("/chat", s.auth(s.handleChat))

	s.router.GET("/ws/approvals", s.auth(s.handleApprovalSocket))
	s.router.GET("/ws/terminal", s.auth(s.handleTerminalSocket))
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: consts.Timeout60Seconds,
	}

	go func() {
		logger.Info("Gateway listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// AuthToken returns the per-process bearer token clients must present.
func (s *Server) AuthToken() string {
	return s.authToken
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// auth wraps a handler with bearer-token validation. The token is
// accepted either as "Authorization: Bearer <token>" or as a "token"
// query parameter, the latter for WebSocket clients that cannot set
// headers.
func (s *Server) auth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !s.validToken(r) {
			writeError(w, apperr.New(apperr.KindAuth, "invalid or missing auth token"))
			return
		}
		next(w, r, ps)
	}
}

func (s *Server) validToken(r *http.Request) bool {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):] == s.authToken
	}
	return r.URL.Query().Get("token") == s.authToken
}

func generateAuthToken() (string, error) {
	bytes := make([]byte, authTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Kind: string(kind), Message: err.Error()}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Detail = appErr.Detail
	}

	writeJSON(w, statusForKind(kind), map[string]errorBody{"error": body})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindTimeout:
		return http.StatusRequestTimeout
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
