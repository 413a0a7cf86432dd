//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// cpdtrack schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	URL       string
}

// schema mirrors the production migrations. Kept inline so integration tests
// are self-contained and do not depend on a migrations directory being
// mounted into the test image.
const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id               UUID PRIMARY KEY,
	name             TEXT NOT NULL,
	issuing_body     TEXT NOT NULL,
	region           TEXT NOT NULL,
	vertical         TEXT NOT NULL,
	total_hours      DOUBLE PRECISION NOT NULL,
	ethics_hours     DOUBLE PRECISION NOT NULL,
	structured_hours DOUBLE PRECISION NOT NULL,
	cycle_years      INT NOT NULL,
	category_rules   JSONB NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS rule_packs (
	id               UUID PRIMARY KEY,
	credential_id    UUID NOT NULL REFERENCES credentials(id) ON DELETE CASCADE,
	version          INT NOT NULL,
	total_hours      DOUBLE PRECISION NOT NULL,
	ethics_hours     DOUBLE PRECISION NOT NULL,
	structured_hours DOUBLE PRECISION NOT NULL,
	cycle_years      INT NOT NULL,
	effective_from   TIMESTAMPTZ NOT NULL,
	effective_to     TIMESTAMPTZ,
	changelog        TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (credential_id, version)
);

CREATE TABLE IF NOT EXISTS user_credentials (
	id                UUID PRIMARY KEY,
	user_id           UUID NOT NULL,
	credential_id     UUID NOT NULL REFERENCES credentials(id),
	jurisdiction      TEXT NOT NULL,
	state_or_province TEXT NOT NULL DEFAULT '',
	renewal_deadline  TIMESTAMPTZ,
	onboarding_hours  DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_primary        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS activities (
	id         UUID PRIMARY KEY,
	title      TEXT NOT NULL,
	provider   TEXT NOT NULL,
	published  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS credit_mappings (
	id                UUID PRIMARY KEY,
	activity_id       UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
	country           TEXT NOT NULL,
	credits           DOUBLE PRECISION NOT NULL,
	category          TEXT NOT NULL,
	structured        BOOLEAN NOT NULL,
	validation_method TEXT NOT NULL,
	include_states    JSONB NOT NULL DEFAULT 'null',
	exclude_states    JSONB NOT NULL DEFAULT 'null',
	active            BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS cpd_records (
	id            UUID PRIMARY KEY,
	user_id       UUID NOT NULL,
	title         TEXT NOT NULL,
	hours         DOUBLE PRECISION NOT NULL,
	date          TIMESTAMPTZ NOT NULL,
	activity_type TEXT NOT NULL,
	category      TEXT NOT NULL,
	status        TEXT NOT NULL,
	source        TEXT NOT NULL,
	strength      TEXT NOT NULL,
	activity_id   UUID,
	notes         JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS allocations (
	record_id          UUID NOT NULL REFERENCES cpd_records(id) ON DELETE CASCADE,
	user_credential_id UUID NOT NULL REFERENCES user_credentials(id) ON DELETE CASCADE,
	hours              DOUBLE PRECISION NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (record_id, user_credential_id)
);

CREATE TABLE IF NOT EXISTS completion_rules (
	id        UUID PRIMARY KEY,
	record_id UUID NOT NULL REFERENCES cpd_records(id) ON DELETE CASCADE,
	rule_type TEXT NOT NULL,
	config    JSONB NOT NULL DEFAULT '{}',
	active    BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS certificates (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL,
	record_id        UUID UNIQUE,
	code             TEXT NOT NULL UNIQUE,
	hours            DOUBLE PRECISION NOT NULL,
	category         TEXT NOT NULL,
	status           TEXT NOT NULL,
	verification_url TEXT NOT NULL,
	issued_at        TIMESTAMPTZ NOT NULL,
	revoked_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS provider_event_keys (
	idempotency_key TEXT PRIMARY KEY,
	processed_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id          BIGSERIAL PRIMARY KEY,
	category    TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	user_id     TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	detail      JSONB NOT NULL DEFAULT '{}',
	request_id  TEXT NOT NULL DEFAULT ''
);
`

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("cpdtrack_test"),
		tcpostgres.WithUsername("cpdtrack"),
		tcpostgres.WithPassword("cpdtrack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Note: We don't register t.Cleanup here because the container is managed
	// by the singleton Manager and shared across test suites. Ryuk handles cleanup.

	return &PostgresContainer{
		Container: container,
		DB:        db,
		URL:       url,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
