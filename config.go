package accord

import "time"

// Config holds configuration for the Accord engine.
type Config struct {
	// MaxPropagationDepth bounds rule recursion. Defaults to 10.
	MaxPropagationDepth int `json:"max_propagation_depth,omitempty"`

	// SnapshotTTL is the time-to-live for cached permission snapshots.
	// Zero means the cache backend's default applies.
	SnapshotTTL time.Duration `json:"snapshot_ttl,omitempty"`

	// ObjectTypes is the closed set of registered object types.
	// Wildcard rules expand to this set.
	ObjectTypes []string `json:"object_types,omitempty"`

	// BootstrapAdminEmails short-circuit every check to allow.
	BootstrapAdminEmails []string `json:"bootstrap_admin_emails,omitempty"`

	// BootstrapAdminRoles are the only source roles allowed to carry
	// wildcard propagation rules.
	BootstrapAdminRoles []string `json:"bootstrap_admin_roles,omitempty"`

	// Conditions are the conditional permission terms evaluated after
	// the snapshot lookup. Conditions never downgrade a granted
	// permission.
	Conditions []Condition `json:"conditions,omitempty"`
}

// DefaultObjectTypes is the registered object type set of a stock GRC
// installation.
func DefaultObjectTypes() []string {
	return []string{
		"program",
		"audit",
		"assessment",
		"issue",
		"control",
		"objective",
		"regulation",
		"document",
		"snapshot",
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPropagationDepth: 10,
		ObjectTypes:         DefaultObjectTypes(),
		BootstrapAdminRoles: []string{"Superuser"},
		SnapshotTTL:         time.Hour,
	}
}

func (c Config) isBootstrapRole(name string) bool {
	for _, r := range c.BootstrapAdminRoles {
		if r == name {
			return true
		}
	}
	return false
}

func (c Config) isBootstrapAdmin(email string) bool {
	for _, e := range c.BootstrapAdminEmails {
		if e == email {
			return true
		}
	}
	return false
}
