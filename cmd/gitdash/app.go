package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/drewdunne/gitdash/internal/config"
	"github.com/drewdunne/gitdash/internal/dashboard"
	"github.com/drewdunne/gitdash/internal/kv"
	"github.com/drewdunne/gitdash/internal/logging"
	"github.com/drewdunne/gitdash/internal/registry"
	"github.com/drewdunne/gitdash/internal/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// commonOptions are the flags every command accepts.
type commonOptions struct {
	configPath string
	envFile    string
	provider   string
	ephemeral  bool
}

func registerCommon(fs *flag.FlagSet) *commonOptions {
	o := &commonOptions{}
	fs.StringVar(&o.configPath, "config", "config.yaml", "Path to config file")
	fs.StringVar(&o.envFile, "env-file", "", "Path to .env file (optional)")
	fs.StringVar(&o.provider, "provider", "", "Override the configured provider (github or gitlab)")
	fs.BoolVar(&o.ephemeral, "ephemeral", false, "Keep the session in memory only")
	return o
}

// app is the wiring shared by all commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *dashboard.Store
	closers []func() error
}

func newApp(o *commonOptions) (*app, error) {
	// Load .env file if specified or exists
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			log.Printf("Warning: could not load env file %s: %v", o.envFile, err)
		}
	} else {
		godotenv.Load(".env")
	}

	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.provider != "" {
		cfg.Provider = o.provider
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger}
	a.closers = append(a.closers, closeLog)

	var store kv.Store
	if o.ephemeral {
		store = kv.NewMemoryStore()
	} else {
		db, err := kv.OpenSQLite(cfg.Storage.Path, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		store = db
	}

	p := registry.New(cfg).Get(cfg.Provider)
	sessions := session.NewManager(context.Background(), session.NewKVRepository(store, p.Name()), p, logger)
	a.store = dashboard.New(sessions, p, logger)

	logger.Debug("initialized",
		zap.String("provider", cfg.Provider),
		zap.Bool("ephemeral", o.ephemeral),
		zap.Bool("authenticated", sessions.Current().IsAuthenticated))
	return a, nil
}

// requireSession fails when no authenticated session was restored.
func (a *app) requireSession() error {
	if !a.store.Snapshot().Auth.IsAuthenticated {
		return errors.New("not logged in; run `gitdash login` first")
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
