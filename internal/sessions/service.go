package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/tokens"
)

// Keys of the persisted session entries.
const (
	KeyAuthTokens  = "authTokens"
	KeyLoginSource = "loginSource"
)

// ErrCorrupt marks a persisted token set that can no longer be decoded.
var ErrCorrupt = errors.New("stored session is corrupt")

// Service wraps a Store with the session's typed entries: the token set and
// the pending login source.
type Service struct {
	store Store
}

func NewService(s Store) *Service { return &Service{store: s} }

// SaveTokens persists the token set, replacing any previous one.
func (s *Service) SaveTokens(ctx context.Context, t *tokens.Stored) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, KeyAuthTokens, string(b))
}

// LoadTokens returns the persisted token set, or nil when none is stored.
func (s *Service) LoadTokens(ctx context.Context) (*tokens.Stored, error) {
	raw, ok, err := s.store.Get(ctx, KeyAuthTokens)
	if err != nil || !ok {
		return nil, err
	}
	var t tokens.Stored
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, KeyAuthTokens, err)
	}
	return &t, nil
}

// DeleteTokens removes the token set. Idempotent.
func (s *Service) DeleteTokens(ctx context.Context) error {
	return s.store.Delete(ctx, KeyAuthTokens)
}

// SetLoginSource records where the pending login started.
func (s *Service) SetLoginSource(ctx context.Context, src models.LoginSource) error {
	return s.store.Set(ctx, KeyLoginSource, string(src))
}

// ClearLoginSource drops a pending source so it cannot leak into an
// unrelated attempt.
func (s *Service) ClearLoginSource(ctx context.Context) error {
	return s.store.Delete(ctx, KeyLoginSource)
}

// TakeLoginSource returns the pending source and clears it; a second call
// returns the empty source.
func (s *Service) TakeLoginSource(ctx context.Context) (models.LoginSource, error) {
	v, ok, err := s.store.Take(ctx, KeyLoginSource)
	if err != nil || !ok {
		return "", err
	}
	src := models.LoginSource(v)
	if !src.Valid() {
		return "", nil
	}
	return src, nil
}
