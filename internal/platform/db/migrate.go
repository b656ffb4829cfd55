package db

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one versioned SQL file, named "<version>_<label>.sql".
type Migration struct {
	Version int
	Name    string
	SQL     string
}

type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies the SQL files of fsys to one schema and records each
// version in <schema>._migrations.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

func NewMigrator(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

// LoadMigrations returns the top-level .sql files of the filesystem ordered
// by version. Files without a numeric prefix are ignored.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	names, err := fs.Glob(m.fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var out []Migration
	for _, name := range names {
		prefix, _, ok := strings.Cut(path.Base(name), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		body, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(body)})
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// Up applies every pending migration, one transaction each, and reports how
// many ran. A failure leaves earlier migrations applied.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	migs, statuses, err := m.plan(ctx, schema)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, mig := range migs {
		if statuses[i].Applied {
			continue
		}
		err := InTx(ctx, m.pool, func(ctx context.Context) error {
			tx := TxFromContext(ctx)
			if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", schema)); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO _migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return n, fmt.Errorf("migration %s: %w", mig.Name, err)
		}
		n++
	}
	return n, nil
}

func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	_, statuses, err := m.plan(ctx, schema)
	return statuses, err
}

// plan makes sure the bookkeeping table exists and pairs every known
// migration with its applied state.
func (m *Migrator) plan(ctx context.Context, schema string) ([]Migration, []MigrationStatus, error) {
	if !schemaPattern.MatchString(schema) {
		return nil, nil, fmt.Errorf("invalid schema name: %s", schema)
	}
	ddl := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[1]s._migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, schema)
	if _, err := m.pool.Exec(ctx, ddl); err != nil {
		return nil, nil, fmt.Errorf("prepare %s._migrations: %w", schema, err)
	}

	migs, err := m.LoadMigrations()
	if err != nil {
		return nil, nil, err
	}

	rows, err := m.pool.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s._migrations", schema))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s._migrations: %w", schema, err)
	}
	type record struct {
		Version   int
		AppliedAt time.Time
	}
	done, err := pgx.CollectRows(rows, pgx.RowToStructByPos[record])
	if err != nil {
		return nil, nil, fmt.Errorf("read %s._migrations: %w", schema, err)
	}
	appliedAt := make(map[int]time.Time, len(done))
	for _, r := range done {
		appliedAt[r.Version] = r.AppliedAt
	}

	statuses := make([]MigrationStatus, len(migs))
	for i, mig := range migs {
		statuses[i] = MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := appliedAt[mig.Version]; ok {
			statuses[i].Applied = true
			statuses[i].AppliedAt = &at
		}
	}
	return migs, statuses, nil
}
