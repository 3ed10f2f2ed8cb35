package extension

import (
	"log/slog"

	"github.com/grcware/accord"
	"github.com/grcware/accord/bulksync"
	"github.com/grcware/accord/notify"
	"github.com/grcware/accord/plugin"
	"github.com/grcware/accord/store"
	"github.com/grcware/accord/tracker"
)

// ExtOption configures the Accord Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, accord.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...accord.Option) ExtOption {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithTracker configures the remote issue tracker client. Sync routes
// are only registered when a tracker and an object source are present.
func WithTracker(c tracker.Client) ExtOption {
	return func(e *Extension) {
		e.trackerClient = c
	}
}

// WithObjectSource configures the local object source for sync jobs.
func WithObjectSource(src bulksync.ObjectSource) ExtOption {
	return func(e *Extension) {
		e.objectSource = src
	}
}

// WithNotifySender configures the notification sender for job
// completion emails.
func WithNotifySender(s notify.Sender) ExtOption {
	return func(e *Extension) {
		e.notifySender = s
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithDisableSeed disables seeding the built-in roles on start.
func WithDisableSeed() ExtOption {
	return func(e *Extension) {
		e.config.DisableSeed = true
	}
}
