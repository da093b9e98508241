// Package catalog serves the document-store collections (restaurants, menu
// categories, orders and the users collection) over gin.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mealbox/mealbox/internal/repository"
)

// ErrInvalid marks a record rejected by a collection's validation.
var ErrInvalid = errors.New("invalid record")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// BeforeSave runs before a record is written. prev is the stored record on
// update and the zero value on create.
type BeforeSave[T repository.Entity] func(ctx context.Context, v T, prev T, isNew bool) error

// Service is a collection with an optional save hook.
type Service[T repository.Entity] struct {
	repo repository.Repository[T]
	hook BeforeSave[T]
}

func NewService[T repository.Entity](repo repository.Repository[T], hook BeforeSave[T]) *Service[T] {
	return &Service[T]{repo: repo, hook: hook}
}

func (s *Service[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	if s.hook != nil {
		if err := s.hook(ctx, v, zero, true); err != nil {
			return zero, err
		}
	}
	id, err := s.repo.Create(ctx, v)
	if err != nil {
		return zero, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service[T]) Get(ctx context.Context, id string) (T, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service[T]) List(ctx context.Context) ([]T, error) {
	return s.repo.List(ctx)
}

func (s *Service[T]) Page(ctx context.Context, req repository.PageRequest) (*repository.Page[T], error) {
	return s.repo.Page(ctx, req)
}

// Search matches a case-insensitive prefix of the collection's search field.
func (s *Service[T]) Search(ctx context.Context, prefix string, limit int) ([]T, error) {
	return s.repo.Search(ctx, prefix, limit)
}

// Update replaces the record with id by v. The creation time is kept.
func (s *Service[T]) Update(ctx context.Context, id string, v T) (T, error) {
	var zero T
	prev, err := s.repo.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	v.SetID(id)
	if s.hook != nil {
		if err := s.hook(ctx, v, prev, false); err != nil {
			return zero, err
		}
	}
	if err := s.repo.Update(ctx, v); err != nil {
		return zero, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service[T]) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
