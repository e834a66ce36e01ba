// Package repository is the persistence abstraction the services depend on:
// one generic, GORM-backed store per entity type.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// Scope narrows or orders a query. Scopes are applied in the order given.
type Scope = func(*gorm.DB) *gorm.DB

// Repository is the per-entity store.
type Repository[T any] interface {
	// Get returns the record with id, or (nil, nil) when it does not exist.
	Get(ctx context.Context, id string) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	Query(ctx context.Context, scopes ...Scope) ([]T, error)
	Count(ctx context.Context, scopes ...Scope) (int64, error)
	Create(ctx context.Context, record *T) error
	// Update applies column-keyed changes and returns the record as stored.
	Update(ctx context.Context, id string, changes map[string]any) (*T, error)
	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

type gormRepository[T any] struct {
	db *gorm.DB
}

// New returns a Repository for T backed by db.
func New[T any](db *gorm.DB) Repository[T] {
	return &gormRepository[T]{db: db}
}

func (r *gormRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	var record T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %T %s: %w", record, id, err)
	}
	return &record, nil
}

func (r *gormRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.Query(ctx)
}

func (r *gormRepository[T]) Query(ctx context.Context, scopes ...Scope) ([]T, error) {
	var records []T
	if err := r.db.WithContext(ctx).Scopes(scopes...).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query %T: %w", records, err)
	}
	return records, nil
}

func (r *gormRepository[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count %T: %w", new(T), err)
	}
	return count, nil
}

func (r *gormRepository[T]) Create(ctx context.Context, record *T) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create %T: %w", record, err)
	}
	return nil
}

func (r *gormRepository[T]) Update(ctx context.Context, id string, changes map[string]any) (*T, error) {
	if len(changes) > 0 {
		res := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, fmt.Errorf("update %T %s: %w", new(T), id, res.Error)
		}
	}
	record, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

func (r *gormRepository[T]) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return false, fmt.Errorf("delete %T %s: %w", new(T), id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
