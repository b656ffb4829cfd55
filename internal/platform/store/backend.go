package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// Backend selects the storage repositories are built on. At most one of Pool
// and Gorm is set; with neither, repositories live in memory.
type Backend struct {
	Pool *pgxpool.Pool
	Gorm *gorm.DB
}

// Driver names the storage in use, for logs and health output.
func (b Backend) Driver() string {
	switch {
	case b.Pool != nil:
		return "postgres"
	case b.Gorm != nil:
		return "sqlite"
	default:
		return "memory"
	}
}

// NewRepository builds the repository for E on b. table is only consulted by
// the postgres store.
func NewRepository[E any, P PModel[E]](b Backend, table Table[E]) Repository[E] {
	switch {
	case b.Pool != nil:
		return NewPostgres[E, P](b.Pool, table)
	case b.Gorm != nil:
		return NewGorm[E, P](b.Gorm)
	default:
		var keys []Key[E]
		if k, ok := table.(Keyed[E]); ok {
			keys = k.UniqueKeys()
		}
		return NewMemory[E, P](keys...)
	}
}
