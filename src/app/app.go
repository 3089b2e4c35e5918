package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/elee1766/chatrelay/src/aisdk"
	"github.com/elee1766/chatrelay/src/chat"
	"github.com/elee1766/chatrelay/src/config"
	"github.com/elee1766/chatrelay/src/openaiclient"
	"github.com/elee1766/chatrelay/src/orclient"
	"github.com/elee1766/chatrelay/src/server"
	"github.com/elee1766/chatrelay/src/storage"
	"golang.org/x/sync/errgroup"
)

// App represents the main application with all services
type App struct {
	Config   *config.Config
	Provider aisdk.Provider
	Store    storage.Store
	Chat     *chat.Orchestrator
	Server   *server.Server
	Logger   *slog.Logger
}

// New creates a new App instance with all services initialized
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	store, err := OpenStore(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	provider := NewProvider(cfg.API, logger)

	return NewWithDeps(cfg, provider, store, logger), nil
}

// NewWithDeps assembles an App around an existing provider and store.
func NewWithDeps(cfg *config.Config, provider aisdk.Provider, store storage.Store, logger *slog.Logger) *App {
	orch := chat.NewOrchestrator(store, provider, chat.Options{
		Model:         cfg.Chat.Model,
		Temperature:   cfg.Chat.Temperature,
		MaxTokens:     cfg.Chat.MaxTokens,
		SystemPrompt:  cfg.Chat.SystemPrompt,
		HistoryWindow: cfg.Chat.HistoryWindow,
		RecentLimit:   cfg.Chat.RecentLimit,
		TitleLength:   cfg.Chat.TitleLength,
	}, logger)

	return &App{
		Config:   cfg,
		Provider: provider,
		Store:    store,
		Chat:     orch,
		Server:   server.New(orch, server.Options{CORSOrigin: cfg.Server.CORSOrigin, Logger: logger}),
		Logger:   logger,
	}
}

// NewProvider returns the completion client selected by api.provider.
func NewProvider(cfg config.APIConfig, logger *slog.Logger) aisdk.Provider {
	if cfg.Provider == config.ProviderOpenRouter {
		return orclient.NewClient(orclient.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Logger:     logger,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.Retry.MaxRetries,
			RetryDelay: cfg.Retry.InitialDelay,
		})
	}
	return openaiclient.NewClient(openaiclient.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
}

// OpenStore opens the configured conversation store.
func OpenStore(cfg config.StorageConfig, logger *slog.Logger) (storage.Store, error) {
	if cfg.Backend != config.BackendSQLite {
		return storage.NewMemoryStore(cfg.MaxConversations, logger), nil
	}

	db, err := OpenDB(cfg.Path, true)
	if err != nil {
		return nil, err
	}
	return storage.NewSQLStore(db, cfg.MaxConversations, logger), nil
}

// OpenDB opens the sqlite database at path, creating its directory.
func OpenDB(path string, migrate bool) (*storage.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	open := storage.OpenWithoutMigrations
	if migrate {
		open = storage.Open
	}
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return db, nil
}

// HTTPServer builds the listener-less http.Server for the configured timeouts.
func (a *App) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Server,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := a.HTTPServer()
	a.logStartup(ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.Logger.Info("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (a *App) logStartup(addr string) {
	keyStatus := "MISSING"
	if a.Config.API.APIKey != "" {
		keyStatus = "LOADED"
	}
	a.Logger.Info("server listening",
		"addr", addr,
		"provider", a.Config.API.Provider,
		"model", a.Config.Chat.Model,
		"api_key", keyStatus,
		"api_key_masked", MaskAPIKey(a.Config.API.APIKey),
		"storage", a.Config.Storage.Backend)
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// MaskAPIKey masks an API key for display, showing only first 4 and last 4 characters
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
}
