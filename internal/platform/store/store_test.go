package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/db"
	"github.com/caremgr/caremgr/internal/platform/db/dbtest"
)

func TestMain(m *testing.M) { dbtest.Main(m) }

type widget struct {
	Base
	OwnerID int64  `gorm:"not null"`
	Name    string `gorm:"not null"`
}

func (widget) TableName() string { return "widget" }

type widgetTable struct{}

func (widgetTable) Name() string      { return "widget" }
func (widgetTable) Columns() []string { return []string{"owner_id", "name"} }
func (widgetTable) Values(w *widget) []any {
	return []any{w.OwnerID, w.Name}
}
func (widgetTable) Targets(w *widget) []any {
	return []any{&w.OwnerID, &w.Name}
}

func newGormWidgets(t *testing.T) Repository[widget] {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(&widget{}))
	return NewGorm[widget](gdb)
}

const widgetDDL = `CREATE TABLE widget (
    id       BIGSERIAL PRIMARY KEY,
    version  BYTEA NOT NULL,
    owner_id BIGINT NOT NULL,
    name     TEXT NOT NULL
)`

func newPostgresWidgets(t *testing.T) (*Postgres[widget, *widget], *pgxpool.Pool) {
	t.Helper()
	pool := dbtest.Pool(t)
	_, err := pool.Exec(context.Background(), widgetDDL)
	require.NoError(t, err)
	return NewPostgres[widget](pool, widgetTable{}), pool
}

func repositories(t *testing.T) map[string]Repository[widget] {
	repos := map[string]Repository[widget]{
		"memory": NewMemory[widget](),
		"gorm":   newGormWidgets(t),
	}
	if dbtest.Available() {
		repos["postgres"], _ = newPostgresWidgets(t)
	}
	return repos
}

func TestRepository_AddAssignsIDAndVersion(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			w, err := repo.Add(ctx, &widget{OwnerID: 1, Name: "alpha"})
			require.NoError(t, err)
			assert.NotZero(t, w.ID)
			assert.NotEmpty(t, w.Version)

			found, err := repo.FindBy(ctx, ByID[widget](w.ID))
			require.NoError(t, err)
			assert.Equal(t, w.ID, found.ID)
			assert.Equal(t, w.Version, found.Version)
			assert.Equal(t, int64(1), found.OwnerID)
			assert.Equal(t, "alpha", found.Name)
		})
	}
}

func TestRepository_AddIgnoresCallerID(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			a, err := repo.Add(ctx, &widget{Name: "a"})
			require.NoError(t, err)
			b, err := repo.Add(ctx, &widget{Base: Base{ID: a.ID}, Name: "b"})
			require.NoError(t, err)
			assert.NotEqual(t, a.ID, b.ID)
		})
	}
}

func TestRepository_UpdateReplacesVersion(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			w, err := repo.Add(ctx, &widget{OwnerID: 1, Name: "alpha"})
			require.NoError(t, err)
			before := append([]byte(nil), w.Version...)

			w.Name = "beta"
			require.NoError(t, repo.Update(ctx, w))
			assert.NotEqual(t, before, w.Version)

			got, err := repo.Get(ctx, w.ID)
			require.NoError(t, err)
			assert.Equal(t, "beta", got.Name)
			assert.Equal(t, w.Version, got.Version)
		})
	}
}

func TestRepository_UpdateStaleVersion(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			w, err := repo.Add(ctx, &widget{OwnerID: 1, Name: "alpha"})
			require.NoError(t, err)

			stale := *w
			stale.Version = append([]byte(nil), w.Version...)

			w.Name = "first"
			require.NoError(t, repo.Update(ctx, w))

			stale.Name = "second"
			err = repo.Update(ctx, &stale)
			assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))

			got, err := repo.Get(ctx, w.ID)
			require.NoError(t, err)
			assert.Equal(t, "first", got.Name)
		})
	}
}

func TestRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.Update(ctx, &widget{Base: Base{ID: 99, Version: []byte("x")}})
			assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
		})
	}
}

func TestRepository_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			w, err := repo.Add(ctx, &widget{Name: "gone"})
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, w))
			err = repo.Delete(ctx, w)
			assert.ErrorIs(t, err, apperr.NotFound)

			_, err = repo.Get(ctx, w.ID)
			assert.ErrorIs(t, err, apperr.NotFound)
		})
	}
}

func TestRepository_FindByAmbiguous(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.AddAll(ctx, []*widget{{OwnerID: 1, Name: "a"}, {OwnerID: 1, Name: "b"}})
			require.NoError(t, err)

			_, err = repo.FindBy(ctx, func(w *widget) bool { return w.OwnerID == 1 })
			assert.Equal(t, apperr.EAmbiguous, apperr.ErrorCode(err))

			_, err = repo.FindBy(ctx, func(w *widget) bool { return w.OwnerID == 2 })
			assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
		})
	}
}

func TestRepository_FilterByIsRestartable(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.AddAll(ctx, []*widget{
				{OwnerID: 1, Name: "a"},
				{OwnerID: 2, Name: "b"},
				{OwnerID: 1, Name: "c"},
			})
			require.NoError(t, err)

			seq := repo.FilterBy(ctx, func(w *widget) bool { return w.OwnerID == 1 })
			first, err := Collect(seq)
			require.NoError(t, err)
			require.Len(t, first, 2)

			_, err = repo.Add(ctx, &widget{OwnerID: 1, Name: "d"})
			require.NoError(t, err)

			second, err := Collect(seq)
			require.NoError(t, err)
			assert.Len(t, second, 3)

			all, err := Collect(repo.All(ctx))
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func TestRepository_DeleteAllAggregatesMissing(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			added, err := repo.AddAll(ctx, []*widget{{Name: "a"}, {Name: "b"}})
			require.NoError(t, err)

			ghost := &widget{Base: Base{ID: 1000}}
			err = repo.DeleteAll(ctx, append(added, ghost))
			assert.ErrorIs(t, err, apperr.NotFound)

			exists, err := Exists(ctx, repo, nil)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory[widget]()
	w, err := repo.Add(ctx, &widget{Name: "orig"})
	require.NoError(t, err)

	w.Name = "mutated"
	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "orig", got.Name)

	got.Version[0] ^= 0xff
	again, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.Version, again.Version)
}

func TestPostgres_Statements(t *testing.T) {
	s := NewPostgres[widget](nil, widgetTable{})
	assert.Equal(t, "SELECT id, version, owner_id, name FROM widget", s.selectSQL)
	assert.Equal(t, "INSERT INTO widget (version, owner_id, name) VALUES ($1, $2, $3) RETURNING id", s.insertSQL)
	assert.Equal(t, "UPDATE widget SET version = $1, owner_id = $2, name = $3 WHERE id = $4 AND version = $5", s.updateSQL)
}

func TestNewRepository_SelectsBackend(t *testing.T) {
	mem := NewRepository[widget](Backend{}, widgetTable{})
	assert.IsType(t, &Memory[widget, *widget]{}, mem)
	assert.Equal(t, "memory", Backend{}.Driver())

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	b := Backend{Gorm: gdb}
	assert.IsType(t, &Gorm[widget, *widget]{}, NewRepository[widget](b, widgetTable{}))
	assert.Equal(t, "sqlite", b.Driver())
}

func widgetName(w *widget) string { return w.Name }

func TestMemory_UniqueKeys(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory[widget](Key[widget]{Column: "name", Value: widgetName})

	a, err := repo.Add(ctx, &widget{Name: "a"})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &widget{Name: "a"})
	assert.ErrorIs(t, err, apperr.Conflict)

	b, err := repo.Add(ctx, &widget{Name: "b"})
	require.NoError(t, err)
	b.Name = "a"
	assert.ErrorIs(t, repo.Update(ctx, b), apperr.Conflict)

	a.OwnerID = 7
	require.NoError(t, repo.Update(ctx, a), "a record does not collide with itself")

	for range 2 {
		_, err := repo.Add(ctx, &widget{})
		require.NoError(t, err, "empty keys are not checked")
	}
}

func TestGorm_UniqueViolationIsConflict(t *testing.T) {
	ctx := context.Background()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&widget{}))
	require.NoError(t, gdb.Exec("CREATE UNIQUE INDEX idx_widget_name ON widget(name)").Error)
	repo := NewGorm[widget](gdb)

	_, err = repo.Add(ctx, &widget{Name: "a"})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &widget{Name: "a"})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))
}

func TestPostgres_UniqueViolationIsConflict(t *testing.T) {
	ctx := context.Background()
	repo, pool := newPostgresWidgets(t)
	_, err := pool.Exec(ctx, "CREATE UNIQUE INDEX widget_name_key ON widget(name)")
	require.NoError(t, err)

	_, err = repo.Add(ctx, &widget{Name: "a"})
	require.NoError(t, err)
	_, err = repo.Add(ctx, &widget{Name: "a"})
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(err))

	b, err := repo.Add(ctx, &widget{Name: "b"})
	require.NoError(t, err)
	b.Name = "a"
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(repo.Update(ctx, b)))
}

func TestPostgres_UsesTransactionFromContext(t *testing.T) {
	ctx := context.Background()
	repo, pool := newPostgresWidgets(t)
	rollback := errors.New("rollback")

	var id int64
	err := db.InTx(ctx, pool, func(ctx context.Context) error {
		w, err := repo.Add(ctx, &widget{Name: "tx"})
		if err != nil {
			return err
		}
		id = w.ID
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestPostgres_DeleteAllRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo, pool := newPostgresWidgets(t)
	added, err := repo.AddAll(ctx, []*widget{{Name: "free"}, {Name: "referenced"}})
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "CREATE TABLE gadget (widget_id BIGINT REFERENCES widget(id))")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "INSERT INTO gadget VALUES ($1)", added[1].ID)
	require.NoError(t, err)

	err = repo.DeleteAll(ctx, added)
	assert.Equal(t, apperr.EInternal, apperr.ErrorCode(err))

	all, err := Collect(repo.All(ctx))
	require.NoError(t, err)
	assert.Len(t, all, 2, "the first delete must be rolled back")
}

func TestPostgres_PrefersRequestConnection(t *testing.T) {
	ctx := context.Background()
	repo, pool := newPostgresWidgets(t)

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()
	// the temporary table shadows widget on this connection only
	_, err = conn.Exec(ctx, "CREATE TEMP TABLE widget (LIKE widget INCLUDING ALL)")
	require.NoError(t, err)

	reqCtx := context.WithValue(ctx, db.DBConnKey, conn)
	w, err := repo.Add(reqCtx, &widget{Name: "scoped"})
	require.NoError(t, err)

	_, err = repo.Get(reqCtx, w.ID)
	assert.NoError(t, err)
	all, err := Collect(repo.All(ctx))
	require.NoError(t, err)
	assert.Empty(t, all)
}
