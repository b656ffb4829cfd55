package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/db"
)

// Table maps one entity type to its SQL table. It is implemented once per
// entity; id and version are handled by the store and are not listed.
type Table[E any] interface {
	Name() string
	Columns() []string
	Values(e *E) []any
	Targets(e *E) []any
}

// Postgres is a Repository backed by a pgx pool. Every statement runs on the
// transaction or request connection carried by ctx, falling back to the pool.
type Postgres[E any, P PModel[E]] struct {
	pool  *pgxpool.Pool
	table Table[E]

	selectSQL string
	insertSQL string
	updateSQL string
}

func NewPostgres[E any, P PModel[E]](pool *pgxpool.Pool, table Table[E]) *Postgres[E, P] {
	cols := table.Columns()
	name := table.Name()

	insertPH := make([]string, len(cols)+1)
	sets := make([]string, len(cols))
	for i := range insertPH {
		insertPH[i] = fmt.Sprintf("$%d", i+1)
	}
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+2)
	}

	return &Postgres[E, P]{
		pool:  pool,
		table: table,
		selectSQL: fmt.Sprintf("SELECT id, version, %s FROM %s",
			strings.Join(cols, ", "), name),
		insertSQL: fmt.Sprintf("INSERT INTO %s (version, %s) VALUES (%s) RETURNING id",
			name, strings.Join(cols, ", "), strings.Join(insertPH, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET version = $1, %s WHERE id = $%d AND version = $%d",
			name, strings.Join(sets, ", "), len(cols)+2, len(cols)+3),
	}
}

func (s *Postgres[E, P]) scan(row pgx.Row) (*E, error) {
	e := new(E)
	var id int64
	var version []byte
	targets := append([]any{&id, &version}, s.table.Targets(e)...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	P(e).SetID(id)
	P(e).SetVersion(version)
	return e, nil
}

// writeErr reports a unique_violation as a conflict and anything else as
// an internal error.
func (s *Postgres[E, P]) writeErr(op, verb string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflictf(op, "%s violates %s", s.table.Name(), pgErr.ConstraintName)
	}
	return apperr.Wrap(op, fmt.Errorf("%s %s: %w", verb, s.table.Name(), err))
}

func (s *Postgres[E, P]) Add(ctx context.Context, e *E) (*E, error) {
	const op = "store.Postgres.Add"
	if e == nil {
		return nil, apperr.Invalidf(op, "entity is required")
	}
	version := newVersion()
	args := append([]any{version}, s.table.Values(e)...)

	var id int64
	if err := db.Conn(ctx, s.pool).QueryRow(ctx, s.insertSQL, args...).Scan(&id); err != nil {
		return nil, s.writeErr(op, "insert", err)
	}
	P(e).SetID(id)
	P(e).SetVersion(version)
	return e, nil
}

func (s *Postgres[E, P]) AddAll(ctx context.Context, es []*E) ([]*E, error) {
	var result *multierror.Error
	added := make([]*E, 0, len(es))
	for _, e := range es {
		out, err := s.Add(ctx, e)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		added = append(added, out)
	}
	return added, result.ErrorOrNil()
}

func (s *Postgres[E, P]) Update(ctx context.Context, e *E) error {
	const op = "store.Postgres.Update"
	if e == nil {
		return apperr.Invalidf(op, "entity is required")
	}
	id := P(e).GetID()
	version := newVersion()
	args := append([]any{version}, s.table.Values(e)...)
	args = append(args, id, P(e).GetVersion())

	tag, err := db.Conn(ctx, s.pool).Exec(ctx, s.updateSQL, args...)
	if err != nil {
		return s.writeErr(op, "update", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return apperr.Wrap(op, err)
		}
		return apperr.Conflictf(op, "record %d was modified concurrently", id)
	}
	P(e).SetVersion(version)
	return nil
}

func (s *Postgres[E, P]) Delete(ctx context.Context, e *E) error {
	const op = "store.Postgres.Delete"
	if e == nil {
		return apperr.Invalidf(op, "entity is required")
	}
	id := P(e).GetID()
	tag, err := db.Conn(ctx, s.pool).Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table.Name()), id)
	if err != nil {
		return apperr.Wrap(op, fmt.Errorf("delete %s: %w", s.table.Name(), err))
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf(op, "record %d not found", id)
	}
	return nil
}

// DeleteAll removes every entity in one transaction; a missing record does
// not stop the others.
func (s *Postgres[E, P]) DeleteAll(ctx context.Context, es []*E) error {
	var result *multierror.Error
	err := db.InTx(ctx, s.pool, func(ctx context.Context) error {
		for _, e := range es {
			if err := s.Delete(ctx, e); err != nil {
				if apperr.ErrorCode(err) != apperr.ENotFound {
					return err
				}
				result = multierror.Append(result, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return result.ErrorOrNil()
}

func (s *Postgres[E, P]) All(ctx context.Context) iter.Seq2[*E, error] {
	return buffered("store.Postgres.All", func() ([]*E, error) {
		rows, err := db.Conn(ctx, s.pool).Query(ctx, s.selectSQL+" ORDER BY id")
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", s.table.Name(), err)
		}
		defer rows.Close()

		var out []*E
		for rows.Next() {
			e, err := s.scan(rows)
			if err != nil {
				return nil, fmt.Errorf("scan %s: %w", s.table.Name(), err)
			}
			out = append(out, e)
		}
		return out, rows.Err()
	})
}

func (s *Postgres[E, P]) Get(ctx context.Context, id int64) (*E, error) {
	const op = "store.Postgres.Get"
	e, err := s.scan(db.Conn(ctx, s.pool).QueryRow(ctx, s.selectSQL+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf(op, "%s %d not found", s.table.Name(), id)
	}
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return e, nil
}

// FindBy and FilterBy read the whole table and apply p in Go, so they cost
// O(rows) across every account. Use Get when the id is known.
func (s *Postgres[E, P]) FindBy(ctx context.Context, p Predicate[E]) (*E, error) {
	return findOne("store.Postgres.FindBy", s.FilterBy(ctx, p))
}

func (s *Postgres[E, P]) FilterBy(ctx context.Context, p Predicate[E]) iter.Seq2[*E, error] {
	return filter(s.All(ctx), p)
}
