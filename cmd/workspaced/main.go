package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/codefionn/workspaced/internal/approval"
	"github.com/codefionn/workspaced/internal/config"
	"github.com/codefionn/workspaced/internal/diff"
	"github.com/codefionn/workspaced/internal/llm"
	"github.com/codefionn/workspaced/internal/logger"
	"github.com/codefionn/workspaced/internal/oauth"
	"github.com/codefionn/workspaced/internal/runner"
	"github.com/codefionn/workspaced/internal/term"
	"github.com/codefionn/workspaced/internal/vcs"
	"github.com/codefionn/workspaced/internal/web"
	"github.com/codefionn/workspaced/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	configPath := flag.String("config", config.GetConfigPath(), "path to config file")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	cmdRunner := runner.New()
	git := vcs.NewGit(cmdRunner)

	store, err := workspace.NewStore(cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("failed to open workspace registry: %w", err)
	}
	workspaces := workspace.NewManager(git, store, cfg.ReposDir, cfg.WorktreesDir)
	diffs := diff.NewEngine(git)

	flows, err := oauth.NewFlowRegistry(cfg.FlowStatePath)
	if err != nil {
		return fmt.Errorf("failed to open OAuth flow registry: %w", err)
	}
	oauthMgr := oauth.NewManager(oauth.Endpoints{
		AuthorizeURL: cfg.OAuth.AuthorizeURL,
		TokenURL:     cfg.OAuth.TokenURL,
		ClientID:     cfg.OAuth.ClientID,
		RedirectURI:  cfg.OAuth.RedirectURI,
		Scopes:       strings.Join(cfg.OAuth.Scopes, " "),
	}, flows, oauth.NewCredentialStore(cfg.CredentialPath))

	broker := approval.NewBroker()
	terminals := term.NewManager(cfg.Shell)

	srv, err := web.NewServer(web.Options{
		Addr:       cfg.ListenAddr,
		Workspaces: workspaces,
		Store:      store,
		Diffs:      diffs,
		OAuth:      oauthMgr,
		Broker:     broker,
		Policy:     approval.NewPolicy(),
		Terminals:  terminals,
		Runner:     cmdRunner,
		NewLLM:     newProvider,
		Model:      cfg.Model,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	// Clients authenticate every request with this token.
	fmt.Printf("workspaced listening on %s\n", cfg.ListenAddr)
	fmt.Printf("auth token: %s\n", srv.AuthToken())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logger.Info("Received %s, shutting down", received)

	if stopErr := srv.Stop(); stopErr != nil {
		logger.Error("Gateway shutdown failed: %v", stopErr)
	}
	broker.Shutdown()
	terminals.Shutdown()
	if flushErr := flows.Shutdown(); flushErr != nil {
		logger.Warn("Failed to flush pending OAuth flows: %v", flushErr)
	}

	return nil
}

func newProvider(mode, token, model string) (llm.Provider, error) {
	if mode == "api_key" {
		return llm.NewAnthropicProvider(token, model)
	}
	return llm.NewAnthropicProviderWithToken(token, model)
}
