package accord

import (
	"log/slog"

	"github.com/grcware/accord/plugin"
	"github.com/grcware/accord/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithRules sets the propagation rule tree.
func WithRules(rs RuleSet) Option { return func(e *Engine) { e.rules = rs } }

// WithCache sets the permission snapshot cache.
func WithCache(c SnapshotCache) Option { return func(e *Engine) { e.cache = c } }

// WithResolver sets the field resolver used by conditional terms.
func WithResolver(r FieldResolver) Option { return func(e *Engine) { e.resolver = r } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
