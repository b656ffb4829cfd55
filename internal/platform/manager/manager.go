// Package manager implements the operation sequence shared by every entity:
// validate, resolve the owning account, authorize, call the repository, and
// log the outcome. Domain services configure one Manager per entity with the
// few functions that differ between entities.
package manager

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
	"github.com/caremgr/caremgr/internal/platform/metrics"
	"github.com/caremgr/caremgr/internal/platform/store"
)

// Authorizer is the ownership check every operation goes through.
type Authorizer interface {
	Authorize(ctx context.Context, id auth.Identity, targetAccountID int64) error
	CallerAccountID(ctx context.Context, id auth.Identity) (int64, error)
	IsAdmin(ctx context.Context, id auth.Identity) (bool, error)
}

// Hooks holds the per-entity behaviour.
type Hooks[E any] struct {
	// Defaults fills unset fields before validation on create and update.
	Defaults func(e *E)

	// Owner resolves the account that owns e, following parent references
	// where the entity has no account of its own. A missing parent is a
	// not found error.
	Owner func(ctx context.Context, e *E) (int64, error)

	// ParentOwners resolves the owners of every record e references besides
	// the one Owner already followed. The caller must own each of them.
	ParentOwners func(ctx context.Context, e *E) ([]int64, error)

	// OwnedBy builds a predicate selecting the records owned by accountID.
	OwnedBy func(ctx context.Context, accountID int64) (store.Predicate[E], error)

	// BeforeDelete rejects the delete of e, typically while children exist.
	BeforeDelete func(ctx context.Context, e *E) error
}

// Parent describes how a list-by-parent operation finds the parent's owner
// and matches its children.
type Parent[E any] struct {
	Name  string
	Owner func(ctx context.Context, parentID int64) (int64, error)
	Match func(parentID int64) store.Predicate[E]
}

type Manager[E any, P store.PModel[E]] struct {
	entity    string
	repo      store.Repository[E]
	authz     Authorizer
	hooks     Hooks[E]
	validator *Validator
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

type Deps struct {
	Authorizer Authorizer
	Validator  *Validator
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

func New[E any, P store.PModel[E]](entity string, repo store.Repository[E], deps Deps, hooks Hooks[E]) *Manager[E, P] {
	v := deps.Validator
	if v == nil {
		v = NewValidator()
	}
	return &Manager[E, P]{
		entity:    entity,
		repo:      repo,
		authz:     deps.Authorizer,
		hooks:     hooks,
		validator: v,
		logger:    deps.Logger.With().Str("entity", entity).Logger(),
		metrics:   deps.Metrics,
	}
}

func (m *Manager[E, P]) Repo() store.Repository[E] { return m.repo }

func (m *Manager[E, P]) begin(op string, id auth.Identity) func(error) error {
	m.logger.Debug().Str("op", op).Str("identity", string(id)).Msg("enter")
	rec := m.metrics.Record(m.entity, op)
	return func(err error) error {
		evt := m.logger.Debug()
		if err != nil {
			evt = evt.Str("error_code", apperr.ErrorCode(err))
		}
		evt.Str("op", op).Str("identity", string(id)).Msg("exit")
		return rec(err)
	}
}

// authorize runs the ownership check, logging denials with the operation.
func (m *Manager[E, P]) authorize(ctx context.Context, op string, id auth.Identity, target int64) error {
	err := m.authz.Authorize(ctx, id, target)
	if err == nil {
		return nil
	}
	switch apperr.ErrorCode(err) {
	case apperr.EForbidden, apperr.EUnauthenticated:
		m.metrics.Denied(m.entity, op)
		m.logger.Warn().Err(err).
			Str("op", op).
			Str("identity", string(id)).
			Int64("target_account", target).
			Msg("authorization denied")
	case apperr.ENotFound:
		m.logger.Warn().Err(err).Str("op", op).Str("identity", string(id)).Msg("caller has no account")
	default:
		m.logger.Error().Err(err).Str("op", op).Msg("authorization failed")
	}
	return err
}

func (m *Manager[E, P]) storeFailed(op string, err error) error {
	switch apperr.ErrorCode(err) {
	case apperr.EInternal:
		m.logger.Error().Err(err).Str("op", op).Msg("store failure")
	case apperr.EConflict:
		m.logger.Info().Err(err).Str("op", op).Msg("concurrent modification")
	}
	return err
}

// authorizeRecord checks the caller against e's owner and every parent e
// references.
func (m *Manager[E, P]) authorizeRecord(ctx context.Context, op string, id auth.Identity, e *E) error {
	owner, err := m.hooks.Owner(ctx, e)
	if err != nil {
		return err
	}
	if err := m.authorize(ctx, op, id, owner); err != nil {
		return err
	}
	if m.hooks.ParentOwners == nil {
		return nil
	}
	parents, err := m.hooks.ParentOwners(ctx, e)
	if err != nil {
		return err
	}
	for _, p := range parents {
		if p == owner {
			continue
		}
		if err := m.authorize(ctx, op, id, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager[E, P]) validate(op string, e *E) error {
	if e == nil {
		return apperr.Invalidf(op, "%s is required", m.entity)
	}
	if m.hooks.Defaults != nil {
		m.hooks.Defaults(e)
	}
	if err := m.validator.Validate(e); err != nil {
		return apperr.Wrap(op, err)
	}
	return nil
}

func validID(op, what string, id int64) error {
	if id <= 0 {
		return apperr.Invalidf(op, "%s must be greater than 0", what)
	}
	return nil
}

// Create adds e after checking that the caller owns it and every record it
// references. The store assigns id and version.
func (m *Manager[E, P]) Create(ctx context.Context, id auth.Identity, e *E) (_ *E, err error) {
	const op = "create"
	done := m.begin(op, id)
	defer func() { err = done(err) }()

	if err := m.validate(op, e); err != nil {
		return nil, err
	}
	if err := m.authorizeRecord(ctx, op, id, e); err != nil {
		return nil, err
	}
	out, err := m.repo.Add(ctx, e)
	if err != nil {
		return nil, m.storeFailed(op, err)
	}
	return out, nil
}

// Update overwrites the stored record with e. The caller must own both the
// stored record and the record as submitted, so ownership cannot be moved to
// another account through the payload.
func (m *Manager[E, P]) Update(ctx context.Context, id auth.Identity, e *E) (err error) {
	const op = "update"
	done := m.begin(op, id)
	defer func() { err = done(err) }()

	if err := m.validate(op, e); err != nil {
		return err
	}
	if err := validID(op, "id", P(e).GetID()); err != nil {
		return err
	}
	stored, err := m.repo.Get(ctx, P(e).GetID())
	if err != nil {
		return m.storeFailed(op, err)
	}
	if err := m.authorizeRecord(ctx, op, id, stored); err != nil {
		return err
	}
	if err := m.authorizeRecord(ctx, op, id, e); err != nil {
		return err
	}
	if err := m.repo.Update(ctx, e); err != nil {
		return m.storeFailed(op, err)
	}
	return nil
}

// Delete removes the record with recordID. Ownership is resolved from the
// stored record, so deleting an already removed id reports not found.
func (m *Manager[E, P]) Delete(ctx context.Context, id auth.Identity, recordID int64) (err error) {
	const op = "delete"
	done := m.begin(op, id)
	defer func() { err = done(err) }()

	if err := validID(op, "id", recordID); err != nil {
		return err
	}
	stored, err := m.repo.Get(ctx, recordID)
	if err != nil {
		return m.storeFailed(op, err)
	}
	if err := m.authorizeRecord(ctx, op, id, stored); err != nil {
		return err
	}
	if m.hooks.BeforeDelete != nil {
		if err := m.hooks.BeforeDelete(ctx, stored); err != nil {
			return err
		}
	}
	if err := m.repo.Delete(ctx, stored); err != nil {
		return m.storeFailed(op, err)
	}
	return nil
}

// Get returns the record with recordID when the caller owns it. Admins get
// no exemption here.
func (m *Manager[E, P]) Get(ctx context.Context, id auth.Identity, recordID int64) (_ *E, err error) {
	const op = "get"
	done := m.begin(op, id)
	defer func() { err = done(err) }()

	if err := validID(op, "id", recordID); err != nil {
		return nil, err
	}
	e, err := m.repo.Get(ctx, recordID)
	if err != nil {
		return nil, m.storeFailed(op, err)
	}
	owner, err := m.hooks.Owner(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(ctx, op, id, owner); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns every record for admins and the caller's own records for
// everybody else.
func (m *Manager[E, P]) List(ctx context.Context, id auth.Identity) (_ []*E, err error) {
	const op = "list"
	done := m.begin(op, id)
	defer func() { err = done(err) }()

	admin, err := m.authz.IsAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin {
		out, err := store.Collect(m.repo.All(ctx))
		if err != nil {
			return nil, m.storeFailed(op, err)
		}
		return out, nil
	}

	accountID, err := m.authz.CallerAccountID(ctx, id)
	if err != nil {
		return nil, err
	}
	owned, err := m.hooks.OwnedBy(ctx, accountID)
	if err != nil {
		return nil, m.storeFailed(op, err)
	}
	out, err := store.Collect(m.repo.FilterBy(ctx, owned))
	if err != nil {
		return nil, m.storeFailed(op, err)
	}
	return out, nil
}

// ListByParent authorizes the caller against the parent's owner and returns
// the records referencing parentID.
func (m *Manager[E, P]) ListByParent(ctx context.Context, id auth.Identity, parent Parent[E], parentID int64) (_ []*E, err error) {
	op := "list_by_" + parent.Name
	done := m.begin(op, id)
	defer func() { err = done(err) }()

	if err := validID(op, parent.Name+" id", parentID); err != nil {
		return nil, err
	}
	owner, err := parent.Owner(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(ctx, op, id, owner); err != nil {
		return nil, err
	}
	out, err := store.Collect(m.repo.FilterBy(ctx, parent.Match(parentID)))
	if err != nil {
		return nil, m.storeFailed(op, err)
	}
	return out, nil
}
