// Package repository holds the collection storage used by users and the
// catalog: one generic interface with in-memory and MongoDB implementations.
package repository

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Entity is a record stored in a collection under a string id.
type Entity interface {
	GetID() string
	SetID(id string)
	// SearchKey is the value prefix searches match against.
	SearchKey() string
	// Timestamps exposes the record's creation and update times.
	Timestamps() (created, updated *time.Time)
}

func stampCreate(v Entity, now time.Time) {
	c, u := v.Timestamps()
	if c.IsZero() {
		*c = now
	}
	*u = now
}

// stampUpdate carries the original creation time over to the replacement.
func stampUpdate(v Entity, created, now time.Time) {
	c, u := v.Timestamps()
	*c = created
	*u = now
}

// PageRequest selects up to Limit records with ids greater than After,
// in ascending id order.
type PageRequest struct {
	Limit int
	After string
}

// Page is one slice of a paginated listing. Next is empty on the last page.
type Page[T Entity] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (p PageRequest) limit() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	}
	return p.Limit
}

// Repository is the CRUD surface of one collection.
type Repository[T Entity] interface {
	Create(ctx context.Context, v T) (string, error)
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]T, error)
	Page(ctx context.Context, req PageRequest) (*Page[T], error)
	Search(ctx context.Context, prefix string, limit int) ([]T, error)
	Update(ctx context.Context, v T) error
	Delete(ctx context.Context, id string) error
}
