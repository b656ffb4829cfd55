package manager

import (
	"context"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/store"
)

// OwnerOf returns a resolver that loads a parent record by id and reads its
// owning account. A missing parent is a not found error.
func OwnerOf[E any](repo store.Repository[E], account func(*E) int64) func(ctx context.Context, id int64) (int64, error) {
	return func(ctx context.Context, id int64) (int64, error) {
		e, err := repo.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		return account(e), nil
	}
}

// IDs collects the ids of the records in repo matching p.
func IDs[E any, P store.PModel[E]](ctx context.Context, repo store.Repository[E], p store.Predicate[E]) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	for e, err := range repo.FilterBy(ctx, p) {
		if err != nil {
			return nil, err
		}
		ids[P(e).GetID()] = true
	}
	return ids, nil
}

// Unreferenced fails with a conflict while any record in children matches p.
// what and id name the parent in the error.
func Unreferenced[E any](ctx context.Context, children store.Repository[E], p store.Predicate[E], what string, id int64) error {
	has, err := store.Exists(ctx, children, p)
	if err != nil {
		return err
	}
	if has {
		return apperr.Conflictf("manager.Unreferenced", "%s %d still has dependent records", what, id)
	}
	return nil
}
