// Package extension provides a Forge extension entry point for Accord.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/grcware/accord"
	"github.com/grcware/accord/api"
	"github.com/grcware/accord/bulksync"
	"github.com/grcware/accord/notify"
	"github.com/grcware/accord/plugin"
	"github.com/grcware/accord/store"
	"github.com/grcware/accord/tracker"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "accord"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Access control core with graph propagation and issue tracker sync"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Accord as a Forge extension.
type Extension struct {
	config        Config
	eng           *accord.Engine
	coord         *bulksync.Coordinator
	apiHandler    *api.API
	logger        *slog.Logger
	engineOpts    []accord.Option
	plugins       []plugin.Plugin
	trackerClient tracker.Client
	objectSource  bulksync.ObjectSource
	notifySender  notify.Sender
}

// New creates an Accord Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying Accord engine.
func (e *Extension) Engine() *accord.Engine { return e.eng }

// Coordinator returns the sync coordinator, or nil when no tracker is
// configured.
func (e *Extension) Coordinator() *bulksync.Coordinator { return e.coord }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	// Register the engine in the DI container.
	if err := vessel.Provide(fapp.Container(), func() (*accord.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("accord: register engine in container: %w", err)
	}

	if e.coord != nil {
		if err := vessel.Provide(fapp.Container(), func() (*bulksync.Coordinator, error) {
			return e.coord, nil
		}); err != nil {
			return fmt.Errorf("accord: register coordinator in container: %w", err)
		}
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Build engine options.
	opts := make([]accord.Option, 0, len(e.engineOpts)+len(e.plugins)+2)
	opts = append(opts, accord.WithLogger(logger))
	if e.config.MaxPropagationDepth > 0 {
		cfg := accord.DefaultConfig()
		cfg.MaxPropagationDepth = e.config.MaxPropagationDepth
		opts = append(opts, accord.WithConfig(cfg))
	}

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, accord.WithStore(s))
	}

	// Append user-provided options (may override store).
	opts = append(opts, e.engineOpts...)

	// Register extension hooks.
	for _, x := range e.plugins {
		opts = append(opts, accord.WithPlugin(x))
	}

	eng, err := accord.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("accord: create engine: %w", err)
	}
	e.eng = eng

	// Build the sync coordinator when a tracker and object source are
	// configured.
	if e.trackerClient != nil && e.objectSource != nil {
		dispatcher := notify.NewDispatcher(e.notifySender, logger)
		e.coord = bulksync.NewCoordinator(
			eng.Store(), e.trackerClient, e.objectSource, dispatcher,
			bulksync.WithPlugins(eng.Plugins()),
			bulksync.WithLogger(logger),
		)
	}

	// Create API handler.
	e.apiHandler = api.New(eng, e.coord, fapp.Router())

	// Register HTTP routes unless disabled.
	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("accord: register routes: %w", err)
		}
	}

	return nil
}

// Start runs migrations, seeds the built-in roles, and starts the
// engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("accord: extension not initialized")
	}

	// Run migrations unless disabled.
	if !e.config.DisableMigrate {
		s := e.eng.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("accord: migration failed: %w", err)
			}
		}
	}

	// Seed built-in roles unless disabled. Seeding is idempotent.
	if !e.config.DisableSeed {
		if err := e.eng.Seed(ctx); err != nil {
			return fmt.Errorf("accord: seed failed: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("accord: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("accord: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all Accord API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
