package repository

import (
	"context"
	"errors"
	"fmt"

	appErr "github.com/devportal/engine/pkg/errors"
	"gorm.io/gorm"
)

// BaseRepository defines the document store operations shared by every collection.
type BaseRepository[T any] interface {
	Create(ctx context.Context, obj *T) error
	GetByID(ctx context.Context, id any, dest *T) error
	FindByID(ctx context.Context, id any, dest *T, opts FindOptions) error
	Find(ctx context.Context, where Where, opts FindOptions) ([]T, error)
	FindOne(ctx context.Context, where Where, dest *T, opts FindOptions) error
	Update(ctx context.Context, id any, fields map[string]any) error
	UpdateWhere(ctx context.Context, where Where, fields map[string]any) (int64, error)
}

type baseRepository[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) BaseRepository[T] {
	return &baseRepository[T]{db: db}
}

func (r *baseRepository[T]) query(ctx context.Context, where Where, opts FindOptions) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	if !where.IsZero() {
		q = q.Clauses(where.clause())
	}
	for _, assoc := range opts.Preload {
		q = q.Preload(assoc)
	}
	if col, ok := opts.order(); ok {
		q = q.Order(col)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	return q
}

func (r *baseRepository[T]) Create(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "create entity failed")
	}
	return nil
}

func (r *baseRepository[T]) GetByID(ctx context.Context, id any, dest *T) error {
	return r.FindByID(ctx, id, dest, FindOptions{})
}

func (r *baseRepository[T]) FindByID(ctx context.Context, id any, dest *T, opts FindOptions) error {
	return r.FindOne(ctx, Eq("id", id), dest, opts)
}

func (r *baseRepository[T]) Find(ctx context.Context, where Where, opts FindOptions) ([]T, error) {
	var out []T
	if err := r.query(ctx, where, opts).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "find entities failed")
	}
	return out, nil
}

func (r *baseRepository[T]) FindOne(ctx context.Context, where Where, dest *T, opts FindOptions) error {
	if err := r.query(ctx, where, opts).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "entity not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return nil
}

// Update sets fields on the document with the given id. Nil values are
// stored as NULL.
func (r *baseRepository[T]) Update(ctx context.Context, id any, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update entity failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, fmt.Sprintf("entity %v not found", id))
	}
	return nil
}

// UpdateWhere sets fields on every matching row in one statement and returns
// how many rows changed.
func (r *baseRepository[T]) UpdateWhere(ctx context.Context, where Where, fields map[string]any) (int64, error) {
	if where.IsZero() {
		return 0, appErr.New(appErr.CodeInvalid, "refusing unfiltered bulk update")
	}
	res := r.db.WithContext(ctx).Model(new(T)).Clauses(where.clause()).Updates(fields)
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "bulk update failed")
	}
	return res.RowsAffected, nil
}
