package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/rollcall/pkg/authsdk"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/memory"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/redis"
	"github.com/aussiebroadwan/rollcall/pkg/sessionstore/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns the session core for one process: the store, the API
// client and the controller. Build it with New and release it with Close.
type Application struct {
	cfg    Config
	logger *slog.Logger

	store      sessionstore.Store
	registry   *prometheus.Registry
	client     *authsdk.Client
	controller *authsdk.Controller
}

// New wires the application and restores any persisted session.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "rollcall",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cfg.LogOutput,
		}),
		registry: prometheus.NewRegistry(),
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	app.client = authsdk.NewClient(cfg.APIBaseURL,
		authsdk.WithTimeout(cfg.RequestTimeout),
		authsdk.WithLogger(app.logger),
		authsdk.WithMetrics(authsdk.NewMetrics(app.registry)),
		authsdk.WithRateLimit(cfg.RateLimit),
	)
	app.controller = authsdk.NewController(app.client, app.store)

	app.controller.OnStateChange(func(state authsdk.State, user *jwtx.UserProfile) {
		if user == nil {
			app.logger.Debug("session observer", "state", state.String())
			return
		}
		app.logger.Debug("session observer", "state", state.String(), "user_id", user.ID, "role", user.Role.String())
	})

	if err := app.controller.Restore(ctx); err != nil {
		app.logger.Warn("failed to restore session", "error", err)
	}

	return app, nil
}

// initStore opens the configured driver and seals it when a key is set.
func (app *Application) initStore(ctx context.Context) error {
	var (
		store sessionstore.Store
		err   error
	)

	switch app.cfg.Store {
	case StoreMemory:
		store = memory.New()
	case StoreRedis:
		store, err = redis.New(ctx, redis.Options{
			Addr:     app.cfg.Redis.Addr,
			Password: app.cfg.Redis.Password,
			DB:       app.cfg.Redis.DB,
			Prefix:   app.cfg.Redis.Prefix,
		})
	default:
		store, err = sqlite.Open(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s session store: %w", app.cfg.Store, err)
	}

	sealer, err := app.sealer()
	if err != nil {
		_ = store.Close()
		return err
	}
	if sealer != nil {
		store = sessionstore.Sealed(store, sealer)
	}

	app.store = store
	app.logger.Debug("session store ready", "driver", app.cfg.Store, "sealed", sealer != nil)
	return nil
}

func (app *Application) sealer() (*cryptox.Sealer, error) {
	switch {
	case app.cfg.SessionKeyFile != "":
		s, err := cryptox.NewSealerFromFile(app.cfg.SessionKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load session key: %w", err)
		}
		return s, nil
	case app.cfg.SessionKey != "":
		s, err := cryptox.NewSealer([]byte(app.cfg.SessionKey))
		if err != nil {
			return nil, fmt.Errorf("failed to load session key: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

func (app *Application) Config() Config {
	return app.cfg
}

func (app *Application) Logger() *slog.Logger {
	return app.logger
}

func (app *Application) Client() *authsdk.Client {
	return app.client
}

func (app *Application) Controller() *authsdk.Controller {
	return app.controller
}

// Registry holds the session metrics.
func (app *Application) Registry() *prometheus.Registry {
	return app.registry
}

// Close releases the session store. The session itself stays persisted.
func (app *Application) Close() error {
	if app.store == nil {
		return nil
	}
	if err := app.store.Close(); err != nil {
		return fmt.Errorf("failed to close session store: %w", err)
	}
	return nil
}
