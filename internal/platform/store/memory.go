package store

import (
	"bytes"
	"context"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

// Memory is a Repository kept in a mutex-protected map. Records are copied on
// the way in and out so callers never share state with the store.
type Memory[E any, P PModel[E]] struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]E
	keys   []Key[E]
}

// NewMemory returns an empty store. Writes that would give two records the
// same value for one of keys fail with a conflict.
func NewMemory[E any, P PModel[E]](keys ...Key[E]) *Memory[E, P] {
	return &Memory[E, P]{rows: make(map[int64]E), keys: keys}
}

// checkUnique compares e against every record except self. It must be
// called with m.mu held.
func (m *Memory[E, P]) checkUnique(op string, e *E, self int64) error {
	for _, k := range m.keys {
		v := k.Value(e)
		if v == "" {
			continue
		}
		for rid, row := range m.rows {
			if rid != self && k.Value(&row) == v {
				return apperr.Conflictf(op, "%s %q is already taken", k.Column, v)
			}
		}
	}
	return nil
}

func clone[E any, P PModel[E]](e *E) E {
	c := *e
	P(&c).SetVersion(bytes.Clone(P(e).GetVersion()))
	return c
}

func (m *Memory[E, P]) Add(_ context.Context, e *E) (*E, error) {
	if e == nil {
		return nil, apperr.Invalidf("store.Memory.Add", "entity is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnique("store.Memory.Add", e, 0); err != nil {
		return nil, err
	}
	m.nextID++
	P(e).SetID(m.nextID)
	P(e).SetVersion(newVersion())
	m.rows[m.nextID] = clone[E, P](e)
	return e, nil
}

func (m *Memory[E, P]) AddAll(ctx context.Context, es []*E) ([]*E, error) {
	var result *multierror.Error
	added := make([]*E, 0, len(es))
	for _, e := range es {
		out, err := m.Add(ctx, e)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		added = append(added, out)
	}
	return added, result.ErrorOrNil()
}

func (m *Memory[E, P]) Update(_ context.Context, e *E) error {
	const op = "store.Memory.Update"
	if e == nil {
		return apperr.Invalidf(op, "entity is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := P(e).GetID()
	current, ok := m.rows[id]
	if !ok {
		return apperr.NotFoundf(op, "record %d not found", id)
	}
	if !bytes.Equal(P(&current).GetVersion(), P(e).GetVersion()) {
		return apperr.Conflictf(op, "record %d was modified concurrently", id)
	}
	if err := m.checkUnique(op, e, id); err != nil {
		return err
	}
	P(e).SetVersion(newVersion())
	m.rows[id] = clone[E, P](e)
	return nil
}

func (m *Memory[E, P]) Delete(_ context.Context, e *E) error {
	const op = "store.Memory.Delete"
	if e == nil {
		return apperr.Invalidf(op, "entity is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := P(e).GetID()
	if _, ok := m.rows[id]; !ok {
		return apperr.NotFoundf(op, "record %d not found", id)
	}
	delete(m.rows, id)
	return nil
}

func (m *Memory[E, P]) DeleteAll(ctx context.Context, es []*E) error {
	var result *multierror.Error
	for _, e := range es {
		if err := m.Delete(ctx, e); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// All yields a snapshot taken when ranging starts, ordered by id.
func (m *Memory[E, P]) All(_ context.Context) iter.Seq2[*E, error] {
	return buffered("store.Memory.All", func() ([]*E, error) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		out := make([]*E, 0, len(m.rows))
		for _, id := range slices.Sorted(maps.Keys(m.rows)) {
			row := m.rows[id]
			c := clone[E, P](&row)
			out = append(out, &c)
		}
		return out, nil
	})
}

func (m *Memory[E, P]) Get(_ context.Context, id int64) (*E, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFoundf("store.Memory.Get", "record %d not found", id)
	}
	c := clone[E, P](&row)
	return &c, nil
}

func (m *Memory[E, P]) FindBy(ctx context.Context, p Predicate[E]) (*E, error) {
	return findOne("store.Memory.FindBy", m.FilterBy(ctx, p))
}

func (m *Memory[E, P]) FilterBy(ctx context.Context, p Predicate[E]) iter.Seq2[*E, error] {
	return filter(m.All(ctx), p)
}
