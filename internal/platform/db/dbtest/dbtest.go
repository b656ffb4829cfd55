// Package dbtest gives tests a migrated PostgreSQL schema.
//
// The server comes from CAREMGR_TEST_DATABASE_URL when set, otherwise from a
// postgres:16-alpine container. Without either, tests that ask for a pool
// are skipped.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/caremgr/caremgr/internal/platform/db"
	"github.com/caremgr/caremgr/migrations"
)

const EnvDatabaseURL = "CAREMGR_TEST_DATABASE_URL"

var (
	databaseURL string
	unavailable = "dbtest.Main was not called"
	schemas     atomic.Int64
)

// Main starts the database for the test binary, runs m and stops the
// database again. Call it from TestMain.
func Main(m *testing.M) {
	ctx := context.Background()
	url, stop, err := start(ctx)
	if err != nil {
		unavailable = err.Error()
		os.Exit(m.Run())
	}
	databaseURL, unavailable = url, ""
	code := m.Run()
	stop()
	os.Exit(code)
}

func start(ctx context.Context) (url string, stop func(), err error) {
	defer func() {
		if r := recover(); r != nil {
			url, stop, err = "", nil, fmt.Errorf("docker unavailable: %v", r)
		}
	}()
	if env := os.Getenv(EnvDatabaseURL); env != "" {
		return env, func() {}, nil
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "caremgr",
				"POSTGRES_PASSWORD": "caremgr",
				"POSTGRES_DB":       "caremgr_test",
			},
			// postgres logs this once for the init server and once for the real one
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}
	stop = func() { c.Terminate(context.Background()) }

	host, err := c.Host(ctx)
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("container port: %w", err)
	}
	url = fmt.Sprintf("postgres://caremgr:caremgr@%s:%s/caremgr_test?sslmode=disable", host, port.Port())
	return url, stop, nil
}

// Available reports whether Pool will hand out a database.
func Available() bool { return databaseURL != "" }

// Pool returns a pool whose search_path is a new schema holding the embedded
// migrations. The schema is dropped when t ends. Pool skips t when no
// database is available.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if databaseURL == "" {
		t.Skipf("postgres unavailable: %s", unavailable)
	}
	ctx := context.Background()
	schema := fmt.Sprintf("caremgr_test_%d_%d", os.Getpid(), schemas.Add(1))

	admin, err := db.NewPool(ctx, databaseURL, 2, 0, "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(admin.Close)
	if _, err := db.NewMigrator(admin, migrations.FS).Up(ctx, schema); err != nil {
		t.Fatalf("migrate %s: %v", schema, err)
	}

	pool, err := db.NewPool(ctx, databaseURL, 4, 0, schema)
	if err != nil {
		t.Fatalf("connect to %s: %v", schema, err)
	}
	t.Cleanup(func() {
		pool.Close()
		if _, err := admin.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop %s: %v", schema, err)
		}
	})
	return pool
}
