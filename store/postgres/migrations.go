package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Accord store (PostgreSQL).
var Migrations = migrate.NewGroup("accord")

// Table DDL is shared between the migration closures and the
// schema-level integration tests.
const (
	rolesDDL = `
CREATE TABLE IF NOT EXISTS accord_roles (
    id              TEXT PRIMARY KEY,
    object_type     TEXT NOT NULL,
    name            TEXT NOT NULL,
    capabilities    JSONB NOT NULL DEFAULT '{}',
    is_internal     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(object_type, name)
);

CREATE INDEX IF NOT EXISTS idx_accord_roles_type ON accord_roles (object_type);
CREATE INDEX IF NOT EXISTS idx_accord_roles_internal ON accord_roles (object_type, is_internal);
`

	entriesDDL = `
CREATE TABLE IF NOT EXISTS accord_entries (
    id              TEXT PRIMARY KEY,
    object_type     TEXT NOT NULL,
    object_id       TEXT NOT NULL,
    role_id         TEXT NOT NULL REFERENCES accord_roles(id),
    base_id         TEXT REFERENCES accord_entries(id) ON DELETE CASCADE,
    parent_id       TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(object_type, object_id, role_id, base_id)
);

CREATE INDEX IF NOT EXISTS idx_accord_entries_object ON accord_entries (object_type, object_id);
CREATE INDEX IF NOT EXISTS idx_accord_entries_base ON accord_entries (base_id);
CREATE INDEX IF NOT EXISTS idx_accord_entries_parent ON accord_entries (parent_id);
`

	entryPeopleDDL = `
CREATE TABLE IF NOT EXISTS accord_entry_people (
    entry_id        TEXT NOT NULL REFERENCES accord_entries(id) ON DELETE CASCADE,
    person_id       TEXT NOT NULL,

    PRIMARY KEY (entry_id, person_id)
);

CREATE INDEX IF NOT EXISTS idx_accord_entry_people_person ON accord_entry_people (person_id);
`

	peopleDDL = `
CREATE TABLE IF NOT EXISTS accord_people (
    id              TEXT PRIMARY KEY,
    email           TEXT NOT NULL,
    name            TEXT NOT NULL DEFAULT '',
    system_role     TEXT NOT NULL DEFAULT 'Reader',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(email)
);
`

	relationshipsDDL = `
CREATE TABLE IF NOT EXISTS accord_relationships (
    id                TEXT PRIMARY KEY,
    source_type       TEXT NOT NULL,
    source_id         TEXT NOT NULL,
    destination_type  TEXT NOT NULL,
    destination_id    TEXT NOT NULL,
    is_external       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(source_type, source_id, destination_type, destination_id)
);

CREATE INDEX IF NOT EXISTS idx_accord_rel_source ON accord_relationships (source_type, source_id);
CREATE INDEX IF NOT EXISTS idx_accord_rel_destination ON accord_relationships (destination_type, destination_id);
`

	mappingsDDL = `
CREATE TABLE IF NOT EXISTS accord_mappings (
    id              TEXT PRIMARY KEY,
    object_type     TEXT NOT NULL,
    object_id       TEXT NOT NULL,
    external_id     TEXT NOT NULL,
    external_type   TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(external_id, external_type),
    UNIQUE(object_type, object_id)
);
`

	syncJobsDDL = `
CREATE TABLE IF NOT EXISTS accord_sync_jobs (
    id               TEXT PRIMARY KEY,
    kind             TEXT NOT NULL,
    state            TEXT NOT NULL DEFAULT 'pending',
    objects          JSONB NOT NULL DEFAULT '[]',
    results          JSONB NOT NULL DEFAULT '[]',
    filename         TEXT NOT NULL DEFAULT '',
    requester_email  TEXT NOT NULL,
    cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_accord_jobs_state ON accord_sync_jobs (state);
CREATE INDEX IF NOT EXISTS idx_accord_jobs_requester ON accord_sync_jobs (requester_email);
`
)

// schemaDDL lists every table in creation order.
var schemaDDL = []string{
	rolesDDL,
	entriesDDL,
	entryPeopleDDL,
	peopleDDL,
	relationshipsDDL,
	mappingsDDL,
	syncJobsDDL,
}

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, rolesDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_entries",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, entriesDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_entry_people",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, entryPeopleDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_entry_people`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_people",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, peopleDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_people`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_relationships",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, relationshipsDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_relationships`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_mappings",
			Version: "20240101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, mappingsDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_mappings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_sync_jobs",
			Version: "20240101000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, syncJobsDDL)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS accord_sync_jobs`)
				return err
			},
		},
	)
}
