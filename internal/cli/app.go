// Package cli wires configuration into stores, sessions and editors for the
// sceneweaver command.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/internal/config"
	"github.com/aretw0/sceneweaver/internal/logging"
	"github.com/aretw0/sceneweaver/pkg/adapters/file"
	"github.com/aretw0/sceneweaver/pkg/adapters/memory"
	redisadapter "github.com/aretw0/sceneweaver/pkg/adapters/redis"
	"github.com/aretw0/sceneweaver/pkg/adapters/remote"
	"github.com/aretw0/sceneweaver/pkg/adapters/sqlite"
	"github.com/aretw0/sceneweaver/pkg/layout"
	"github.com/aretw0/sceneweaver/pkg/observability"
	"github.com/aretw0/sceneweaver/pkg/ports"
	"github.com/aretw0/sceneweaver/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Store backends.
const (
	BackendRemote  = "remote"
	BackendLibrary = "library"
)

// Options carries the persistent command-line flags. Empty values keep the
// config file's setting.
type Options struct {
	ConfigPath string
	Store      string
	LogLevel   string
	LogFormat  string
}

// App holds everything a command needs once configuration is resolved.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    ports.ScenarioStore
	Identity ports.Identity
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	closers []func() error
}

// Bootstrap loads the config, applies flag overrides and opens the
// scenario store.
func Bootstrap(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Store != "" {
		cfg.Store.Backend = opts.Store
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	app := &App{
		Config:   cfg,
		Logger:   logging.New(level, logging.Format(cfg.Log.Format)),
		Registry: prometheus.NewRegistry(),
	}
	app.Metrics = observability.NewMetrics(app.Registry)

	if cfg.Auth.UserID != "" || cfg.Auth.Token != "" {
		app.Identity = remote.StaticIdentity{User: cfg.Auth.UserID, BearerToken: cfg.Auth.Token}
	}

	if err := app.openStore(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) openStore() error {
	switch strings.ToLower(a.Config.Store.Backend) {
	case BackendRemote:
		opts := []remote.Option{
			remote.WithTimeout(a.Config.Store.Timeout),
			remote.WithLogger(a.Logger),
		}
		if a.Identity != nil {
			opts = append(opts, remote.WithIdentity(a.Identity))
		}
		client, err := remote.New(a.Config.Store.BaseURL, opts...)
		if err != nil {
			return err
		}
		a.Store = client
	case BackendLibrary, "":
		lib, err := sqlite.Open(sqlite.Config{DSN: a.Config.Library.DSN})
		if err != nil {
			return err
		}
		a.Store = lib
		a.closers = append(a.closers, lib.Close)
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", a.Config.Store.Backend, BackendRemote, BackendLibrary)
	}
	a.Logger.Debug("scenario store ready", "backend", a.Config.Store.Backend)
	return nil
}

// LayoutConfig maps the layout section onto the engine's config.
func (a *App) LayoutConfig() layout.Config {
	cfg := layout.DefaultConfig()
	if a.Config.Layout.NodeSep > 0 {
		cfg.NodeSep = a.Config.Layout.NodeSep
	}
	if a.Config.Layout.RankSep > 0 {
		cfg.RankSep = a.Config.Layout.RankSep
	}
	return cfg
}

// EditorOptions returns the options every editor built by a command shares.
func (a *App) EditorOptions() []sceneweaver.Option {
	opts := []sceneweaver.Option{
		sceneweaver.WithStore(a.Store),
		sceneweaver.WithLogger(a.Logger),
		sceneweaver.WithHooks(a.Metrics.Hooks(a.Logger)),
		sceneweaver.WithLayout(a.LayoutConfig()),
	}
	if a.Config.Layout.NodeWidth > 0 && a.Config.Layout.NodeHeight > 0 {
		opts = append(opts, sceneweaver.WithNodeSize(a.Config.Layout.NodeWidth, a.Config.Layout.NodeHeight))
	}
	if a.Identity != nil {
		opts = append(opts, sceneweaver.WithIdentity(a.Identity))
	}
	return opts
}

// Sessions builds a session manager over the configured draft backend.
func (a *App) Sessions() (*session.Manager, error) {
	opts := []session.Option{
		session.WithLogger(a.Logger),
		session.WithEditorOptions(a.EditorOptions()...),
	}

	var drafts ports.DraftStore
	switch strings.ToLower(a.Config.Drafts.Backend) {
	case "memory", "":
		drafts = memory.NewDraftStore()
	case "file":
		drafts = file.New(a.Config.Drafts.Dir)
	case "redis":
		rc := a.Config.Drafts.Redis
		var ropts []redisadapter.Option
		if rc.Prefix != "" {
			ropts = append(ropts, redisadapter.WithPrefix(rc.Prefix))
		}
		if rc.TTL > 0 {
			ropts = append(ropts, redisadapter.WithTTL(rc.TTL))
		}
		store := redisadapter.New(rc.Addr, rc.Password, rc.DB, ropts...)
		a.closers = append(a.closers, store.Close)
		drafts = store
		opts = append(opts, session.WithLocker(redisadapter.NewLocker(store.Client(), "sceneweaver:lock:")))
	default:
		return nil, fmt.Errorf("unknown drafts backend %q (want memory, file or redis)", a.Config.Drafts.Backend)
	}

	a.Logger.Debug("draft store ready", "backend", a.Config.Drafts.Backend)
	return session.NewManager(drafts, opts...), nil
}

// Close releases the stores opened by the app.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
