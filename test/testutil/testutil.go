// Package testutil provides a PostgreSQL container for integration tests.
//
// One container is started per test binary. A template database is loaded
// with the fixtures once and every DB call copies it into a fresh database.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

//go:embed testdata/fixtures.sql
var fixturesSQL string

const templateName = "cql2pgjson_template"

var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error

	templateOnce sync.Once
	templateErr  error
)

// ensureSingleton lazily starts the PostgreSQL container.
func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		ctx := context.Background()

		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}
		// The container is left to ryuk for cleanup.
		singletonDSN = dsn
	})
	return singletonDSN, singletonErr
}

// ensureTemplate creates the template database with the fixtures loaded.
func ensureTemplate(adminDSN string) error {
	templateOnce.Do(func() {
		if err := exec(adminDSN, "CREATE DATABASE "+templateName); err != nil {
			templateErr = fmt.Errorf("create template database: %w", err)
			return
		}
		if err := exec(ReplaceDBName(adminDSN, templateName), fixturesSQL); err != nil {
			templateErr = fmt.Errorf("load fixtures: %w", err)
			return
		}
		// Non-fatal: copying works without the template flag.
		_ = exec(adminDSN, fmt.Sprintf("UPDATE pg_database SET datistemplate = true WHERE datname = '%s'", templateName))
	})
	return templateErr
}

// DSN returns the connection string of a fresh database holding the
// fixtures. The database is dropped when the test completes.
func DSN(tb testing.TB) string {
	tb.Helper()

	adminDSN, err := ensureSingleton()
	require.NoError(tb, err, "failed to start PostgreSQL container")
	require.NoError(tb, ensureTemplate(adminDSN), "failed to create template database")

	name := uniqueDBName("test")
	require.NoError(tb, exec(adminDSN, fmt.Sprintf("CREATE DATABASE %s WITH TEMPLATE %s", name, templateName)),
		"failed to create test database from template")

	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = dropDatabase(ctx, adminDSN, name)
	})
	return ReplaceDBName(adminDSN, name)
}

// DB returns a connection to a fresh database holding the fixtures.
func DB(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := sql.Open("pgx", DSN(tb))
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, db.Ping(), "failed to ping test database")
	// Registered after DSN's cleanup, so it runs first.
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

func exec(dsn, query string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctx, query)
	return err
}

func dropDatabase(ctx context.Context, adminDSN, name string) error {
	db, err := sql.Open("pgx", adminDSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, _ = db.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, name)

	_, err = db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+name)
	return err
}

func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// ReplaceDBName swaps the database name in a postgres:// URL.
func ReplaceDBName(dsn, name string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	u.Path = "/" + name
	return u.String()
}
