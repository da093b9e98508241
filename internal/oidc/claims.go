package oidc

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mealbox/mealbox/internal/models"
)

var ErrNoSubject = errors.New("id token has no sub claim")

// DecodeClaims reads the profile claims of an ID token locally. The
// signature is NOT verified; callers only use this for tokens they obtained
// directly from the token endpoint over TLS.
func DecodeClaims(raw string) (*models.Profile, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}
	str := func(k string) string {
		s, _ := claims[k].(string)
		return s
	}
	p := &models.Profile{
		Sub:     str("sub"),
		Name:    str("name"),
		Email:   str("email"),
		Picture: str("picture"),
		Locale:  str("locale"),
	}
	if v, ok := claims["email_verified"].(bool); ok {
		p.EmailVerified = v
	}
	if p.Sub == "" {
		return nil, ErrNoSubject
	}
	return p, nil
}
