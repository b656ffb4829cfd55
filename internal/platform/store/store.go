// Package store defines the generic repository contract used by every entity
// manager, together with in-memory, PostgreSQL and GORM implementations.
//
// Managers only ever see Repository[E]. Queries are expressed as Go predicates
// over a single entity so no query language leaks out of this package.
package store

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

// Model is the contract every stored entity satisfies: a store-assigned id
// and an opaque version token replaced on every successful write.
type Model interface {
	GetID() int64
	SetID(id int64)
	GetVersion() []byte
	SetVersion(v []byte)
}

// Base is embedded by entities to satisfy Model.
type Base struct {
	ID      int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Version []byte `json:"version,omitempty" gorm:"not null"`
}

func (b *Base) GetID() int64        { return b.ID }
func (b *Base) SetID(id int64)      { b.ID = id }
func (b *Base) GetVersion() []byte  { return b.Version }
func (b *Base) SetVersion(v []byte) { b.Version = v }

// PModel constrains *E to implement Model so implementations can be generic
// over the value type E.
type PModel[E any] interface {
	*E
	Model
}

// Predicate selects records in FindBy and FilterBy.
type Predicate[E any] func(*E) bool

// Repository is the CRUD and query surface over one entity type.
//
// All and FilterBy are lazy: nothing is read until the sequence is ranged
// over, and every range reads the store again.
type Repository[E any] interface {
	Add(ctx context.Context, e *E) (*E, error)
	AddAll(ctx context.Context, es []*E) ([]*E, error)
	Update(ctx context.Context, e *E) error
	Delete(ctx context.Context, e *E) error
	DeleteAll(ctx context.Context, es []*E) error
	All(ctx context.Context) iter.Seq2[*E, error]
	Get(ctx context.Context, id int64) (*E, error)
	FindBy(ctx context.Context, p Predicate[E]) (*E, error)
	FilterBy(ctx context.Context, p Predicate[E]) iter.Seq2[*E, error]
}

// Key is a unique column of an entity. Value returns the key of a record;
// an empty key is not checked.
type Key[E any] struct {
	Column string
	Value  func(*E) string
}

// Keyed is implemented by tables with unique columns. The memory store
// enforces them itself; postgres and gorm report the violation of the
// matching schema constraint.
type Keyed[E any] interface {
	UniqueKeys() []Key[E]
}

// ByID matches the record with the given id.
func ByID[E any, P PModel[E]](id int64) Predicate[E] {
	return func(e *E) bool { return P(e).GetID() == id }
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[E any](seq iter.Seq2[*E, error]) ([]*E, error) {
	var out []*E
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Exists reports whether any record matches p.
func Exists[E any](ctx context.Context, repo Repository[E], p Predicate[E]) (bool, error) {
	for _, err := range repo.FilterBy(ctx, p) {
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func newVersion() []byte {
	v := uuid.New()
	return v[:]
}

// findOne applies the single-or-absent rule shared by every implementation.
func findOne[E any](op string, seq iter.Seq2[*E, error]) (*E, error) {
	var found *E
	for e, err := range seq {
		if err != nil {
			return nil, apperr.Wrap(op, err)
		}
		if found != nil {
			return nil, &apperr.Error{Code: apperr.EAmbiguous, Op: op, Msg: "more than one record matches"}
		}
		found = e
	}
	if found == nil {
		return nil, apperr.NotFoundf(op, "no matching record")
	}
	return found, nil
}

// filter wraps seq so that only records matching p are yielded.
func filter[E any](seq iter.Seq2[*E, error], p Predicate[E]) iter.Seq2[*E, error] {
	return func(yield func(*E, error) bool) {
		for e, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			if p != nil && !p(e) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// buffered yields rows that were fully read by load before the first yield,
// so callers may issue further queries on the same connection while ranging.
func buffered[E any](op string, load func() ([]*E, error)) iter.Seq2[*E, error] {
	return func(yield func(*E, error) bool) {
		rows, err := load()
		if err != nil {
			yield(nil, apperr.Wrap(op, err))
			return
		}
		for _, e := range rows {
			if !yield(e, nil) {
				return
			}
		}
	}
}
