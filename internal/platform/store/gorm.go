package store

import (
	"context"
	"errors"
	"iter"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

// Gorm is a Repository over any GORM-mapped entity. It backs the sqlite
// driver and works with any dialect GORM supports.
type Gorm[E any, P PModel[E]] struct {
	db *gorm.DB
}

// NewGorm wraps db. Open db with TranslateError so unique violations surface
// as conflicts.
func NewGorm[E any, P PModel[E]](db *gorm.DB) *Gorm[E, P] {
	return &Gorm[E, P]{db: db}
}

func writeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflictf(op, "unique constraint violated")
	}
	return apperr.Wrap(op, err)
}

func (s *Gorm[E, P]) Add(ctx context.Context, e *E) (*E, error) {
	const op = "store.Gorm.Add"
	if e == nil {
		return nil, apperr.Invalidf(op, "entity is required")
	}
	row := *e
	P(&row).SetID(0)
	P(&row).SetVersion(newVersion())
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, writeErr(op, err)
	}
	P(e).SetID(P(&row).GetID())
	P(e).SetVersion(P(&row).GetVersion())
	return e, nil
}

func (s *Gorm[E, P]) AddAll(ctx context.Context, es []*E) ([]*E, error) {
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

func (s *Gorm[E, P]) Update(ctx context.Context, e *E) error {
	const op = "store.Gorm.Update"
	if e == nil {
		return apperr.Invalidf(op, "entity is required")
	}
	id := P(e).GetID()
	row := *e
	P(&row).SetVersion(newVersion())

	res := s.db.WithContext(ctx).Model(&row).
		Where("version = ?", P(e).GetVersion()).
		Select("*").
		Updates(&row)
	if res.Error != nil {
		return writeErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return apperr.Wrap(op, err)
		}
		return apperr.Conflictf(op, "record %d was modified concurrently", id)
	}
	P(e).SetVersion(P(&row).GetVersion())
	return nil
}

func (s *Gorm[E, P]) Delete(ctx context.Context, e *E) error {
	const op = "store.Gorm.Delete"
	if e == nil {
		return apperr.Invalidf(op, "entity is required")
	}
	id := P(e).GetID()
	res := s.db.WithContext(ctx).Delete(new(E), id)
	if res.Error != nil {
		return writeErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf(op, "record %d not found", id)
	}
	return nil
}

func (s *Gorm[E, P]) DeleteAll(ctx context.Context, es []*E) error {
	var result *multierror.Error
	for _, e := range es {
		if err := s.Delete(ctx, e); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (s *Gorm[E, P]) All(ctx context.Context) iter.Seq2[*E, error] {
	return buffered("store.Gorm.All", func() ([]*E, error) {
		var rows []*E
		if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	})
}

func (s *Gorm[E, P]) Get(ctx context.Context, id int64) (*E, error) {
	const op = "store.Gorm.Get"
	e := new(E)
	err := s.db.WithContext(ctx).First(e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf(op, "record %d not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}
	return e, nil
}

// FindBy and FilterBy load every row and apply p in Go.
func (s *Gorm[E, P]) FindBy(ctx context.Context, p Predicate[E]) (*E, error) {
	return findOne("store.Gorm.FindBy", s.FilterBy(ctx, p))
}

func (s *Gorm[E, P]) FilterBy(ctx context.Context, p Predicate[E]) iter.Seq2[*E, error] {
	return filter(s.All(ctx), p)
}
