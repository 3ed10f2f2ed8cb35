package extension

// Config holds the Accord extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.accord" or "accord" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableSeed prevents seeding the built-in roles on start.
	DisableSeed bool `json:"disable_seed" mapstructure:"disable_seed" yaml:"disable_seed"`

	// BasePath is the URL prefix for accord routes (default: "/accord").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// MaxPropagationDepth bounds rule tree recursion during grant
	// propagation.
	MaxPropagationDepth int `json:"max_propagation_depth" mapstructure:"max_propagation_depth" yaml:"max_propagation_depth"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPropagationDepth: 10,
	}
}
