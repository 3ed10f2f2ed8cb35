package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres spins up a throwaway database and returns a connection
// with the full schema applied. Skips when no container runtime is
// available.
func startPostgres(t *testing.T) *pgx.Conn {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("accord"),
		tcpostgres.WithUsername("accord"),
		tcpostgres.WithPassword("accord"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}
	testcontainers.CleanupContainer(t, ctr)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { conn.Close(context.Background()) })

	for _, ddl := range schemaDDL {
		if _, err := conn.Exec(ctx, ddl); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func TestSchemaRoleUniquePerObjectType(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	const insert = `INSERT INTO accord_roles (id, object_type, name) VALUES ($1, $2, $3)`
	if _, err := conn.Exec(ctx, insert, "role_1", "audit", "Auditor"); err != nil {
		t.Fatalf("insert role: %v", err)
	}
	if _, err := conn.Exec(ctx, insert, "role_2", "audit", "Auditor"); !isUniqueViolation(err) {
		t.Fatalf("duplicate (object_type, name) accepted, err = %v", err)
	}

	// Same name on a different object type is a distinct role.
	if _, err := conn.Exec(ctx, insert, "role_3", "issue", "Auditor"); err != nil {
		t.Fatalf("insert role for other type: %v", err)
	}
}

func TestSchemaEntryCascadeDelete(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	if _, err := conn.Exec(ctx,
		`INSERT INTO accord_roles (id, object_type, name) VALUES ('role_1', 'program', 'Manager')`,
	); err != nil {
		t.Fatalf("insert role: %v", err)
	}
	if _, err := conn.Exec(ctx,
		`INSERT INTO accord_entries (id, object_type, object_id, role_id) VALUES ('entry_base', 'program', 'p1', 'role_1')`,
	); err != nil {
		t.Fatalf("insert base entry: %v", err)
	}
	if _, err := conn.Exec(ctx,
		`INSERT INTO accord_entries (id, object_type, object_id, role_id, base_id, parent_id)
		 VALUES ('entry_child', 'audit', 'a1', 'role_1', 'entry_base', 'entry_base')`,
	); err != nil {
		t.Fatalf("insert derived entry: %v", err)
	}
	if _, err := conn.Exec(ctx,
		`INSERT INTO accord_entry_people (entry_id, person_id) VALUES ('entry_child', 'person_1')`,
	); err != nil {
		t.Fatalf("insert membership: %v", err)
	}

	if _, err := conn.Exec(ctx, `DELETE FROM accord_entries WHERE id = 'entry_base'`); err != nil {
		t.Fatalf("delete base: %v", err)
	}

	var entries, memberships int
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM accord_entries`).Scan(&entries); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM accord_entry_people`).Scan(&memberships); err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if entries != 0 || memberships != 0 {
		t.Fatalf("cascade left entries=%d memberships=%d, want 0/0", entries, memberships)
	}
}

func TestSchemaMappingUniqueBothWays(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	const insert = `INSERT INTO accord_mappings (id, object_type, object_id, external_id, external_type) VALUES ($1, $2, $3, $4, $5)`
	if _, err := conn.Exec(ctx, insert, "map_1", "issue", "i1", "TICKET-1", "issue"); err != nil {
		t.Fatalf("insert mapping: %v", err)
	}
	if _, err := conn.Exec(ctx, insert, "map_2", "issue", "i2", "TICKET-1", "issue"); !isUniqueViolation(err) {
		t.Fatalf("duplicate external pair accepted, err = %v", err)
	}
	if _, err := conn.Exec(ctx, insert, "map_3", "issue", "i1", "TICKET-2", "issue"); !isUniqueViolation(err) {
		t.Fatalf("duplicate local object accepted, err = %v", err)
	}
}

func TestSchemaJobDefaults(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()

	if _, err := conn.Exec(ctx,
		`INSERT INTO accord_sync_jobs (id, kind, requester_email) VALUES ('job_1', 'create', 'ops@example.com')`,
	); err != nil {
		t.Fatalf("insert job: %v", err)
	}

	var state string
	var cancelRequested bool
	var createdAt time.Time
	err := conn.QueryRow(ctx,
		`SELECT state, cancel_requested, created_at FROM accord_sync_jobs WHERE id = 'job_1'`,
	).Scan(&state, &cancelRequested, &createdAt)
	if err != nil {
		t.Fatalf("select job: %v", err)
	}
	if state != "pending" {
		t.Fatalf("default state = %q, want pending", state)
	}
	if cancelRequested {
		t.Fatal("cancel_requested defaulted to true")
	}
	if createdAt.IsZero() {
		t.Fatal("created_at not defaulted")
	}
}
