// Package app wires configuration into the services shared by the CLI and the API server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/philipparndt/modelforge/internal/account"
	"github.com/philipparndt/modelforge/internal/auth"
	"github.com/philipparndt/modelforge/internal/billing"
	"github.com/philipparndt/modelforge/internal/chat"
	"github.com/philipparndt/modelforge/internal/config"
	"github.com/philipparndt/modelforge/internal/database"
	"github.com/philipparndt/modelforge/internal/desktop"
	"github.com/philipparndt/modelforge/internal/gallery"
	"github.com/philipparndt/modelforge/internal/kv"
	"github.com/philipparndt/modelforge/internal/metrics"
	"github.com/philipparndt/modelforge/internal/objectstore"
	"github.com/philipparndt/modelforge/internal/printer"
	"github.com/philipparndt/modelforge/internal/prompt"
	"github.com/philipparndt/modelforge/internal/search"
	"github.com/philipparndt/modelforge/internal/server"
	"github.com/philipparndt/modelforge/internal/transform"
)

// App holds every service built from one configuration
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB      *gorm.DB
	KV      *kv.RedisStore // nil without redis.addr
	Objects objectstore.Store

	Accounts    *account.Store
	Gallery     *gallery.Service
	Chat        *chat.Service
	Interpreter prompt.Interpreter
	Transform   *transform.Dispatcher
	Printers    *printer.Store
	Dispatcher  *printer.Dispatcher
	Billing     *billing.Service // nil without billing.secret_key
	Search      *search.Service
	Metrics     *metrics.Collector
	Tokens      *auth.Tokens // nil without auth.jwt_secret
	Desktop     *desktop.Opener
}

// New opens the stores and builds the services. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config
	log := a.Logger

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	a.DB = db
	if err := database.Migrate(db, append(account.Models(), gallery.Models()...)...); err != nil {
		return err
	}

	var cache kv.Store
	if cfg.Redis.Addr != "" {
		a.KV, err = kv.NewRedisStore(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		cache = a.KV
	}

	a.Objects, err = objectstore.New(ctx, cfg.ObjectStore, log)
	if err != nil {
		return err
	}

	a.Interpreter, err = prompt.New(cfg.Interpreter, log)
	if err != nil {
		return err
	}

	a.Accounts = account.NewStore(db, log)
	a.Gallery = gallery.NewService(
		a.Accounts,
		gallery.NewLocalStore(filepath.Join(cfg.Data.Dir, "gallery")),
		gallery.NewRemoteStore(db, a.Objects, cache, log),
		log,
	)

	var history chat.History = chat.NewMemoryHistory(chat.MaxEntries)
	if a.KV != nil {
		history = chat.NewRedisHistory(a.KV.Client(), chat.MaxEntries)
	}
	a.Chat = chat.NewService(a.Interpreter, history, log)

	a.Transform = transform.NewDispatcher(nil, log)
	a.Printers = printer.NewStore(PrinterStorePath(cfg.Data.Dir))
	a.Dispatcher = printer.NewDispatcher(
		printer.NewClient(&http.Client{}, log),
		printer.NewLauncher("", log),
		cfg.Data.DownloadDir,
		log,
	)

	a.Billing, err = billing.NewService(cfg.Billing, a.Accounts, nil, log)
	if errors.Is(err, billing.ErrDisabled) {
		log.Debug("billing disabled")
	} else if err != nil {
		return err
	}

	a.Tokens, err = auth.NewTokens(cfg.Auth)
	if errors.Is(err, auth.ErrNoSecret) {
		log.Debug("bearer auth disabled, requests run as the configured user", zap.String("user", cfg.User.ID))
	} else if err != nil {
		return err
	}

	a.Search = search.NewService(cfg.Search, &http.Client{}, log)
	a.Metrics = metrics.NewCollector()
	a.Desktop = desktop.New()
	return nil
}

// PrinterStorePath is the profile file inside the data directory
func PrinterStorePath(dataDir string) string {
	return filepath.Join(dataDir, "printers.json")
}

// User is the identity of CLI commands and of unauthenticated API calls
func (a *App) User() auth.User {
	return auth.User{ID: a.Config.User.ID, Email: a.Config.User.Email}
}

// ServerServices exposes the services to the HTTP API
func (a *App) ServerServices() server.Services {
	return server.Services{
		Interpreter: a.Interpreter,
		Chat:        a.Chat,
		Gallery:     a.Gallery,
		Transform:   a.Transform,
		Search:      a.Search,
		Accounts:    a.Accounts,
		Billing:     a.Billing,
		Metrics:     a.Metrics,
		Tokens:      a.Tokens,
		LocalUser:   a.User(),
	}
}

// Close releases the database and key-value connections
func (a *App) Close() error {
	var errs []error
	if a.KV != nil {
		errs = append(errs, a.KV.Close())
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
