package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultExpiresIn applies when the token response omits expires_in.
	DefaultExpiresIn = 3600
	// DefaultExpiryBuffer is subtracted from a token's lifetime before it is
	// considered expired.
	DefaultExpiryBuffer = 300 * time.Second
)

// ErrMissingField is returned when a token response lacks a required token.
var ErrMissingField = errors.New("token response missing required field")

// Stored is the token set persisted under the authTokens key.
type Stored struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
	IssuedAt     int64  `json:"issuedAt"`
}

// FromOAuth2 derives the stored token set from a token endpoint response.
// expiresIn comes from the raw expires_in (default 3600) and issuedAt from
// issued_at when the provider sends one (default now, never later than now).
func FromOAuth2(tok *oauth2.Token, now time.Time) (*Stored, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: access_token", ErrMissingField)
	}
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: id_token", ErrMissingField)
	}
	s := &Stored{
		AccessToken:  tok.AccessToken,
		IDToken:      idToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    DefaultExpiresIn,
		IssuedAt:     now.Unix(),
	}
	if v, ok := number(tok.Extra("expires_in")); ok && v > 0 {
		s.ExpiresIn = v
	}
	if v, ok := number(tok.Extra("issued_at")); ok && v > 0 && v < s.IssuedAt {
		s.IssuedAt = v
	}
	return s, nil
}

// Refreshed derives the token set from a refresh response. Refresh responses
// may omit the ID and refresh tokens; those carry over from prev.
func Refreshed(prev *Stored, tok *oauth2.Token, now time.Time) (*Stored, error) {
	if prev != nil && tok != nil && tok.AccessToken != "" {
		if id, _ := tok.Extra("id_token").(string); id == "" {
			tok = tok.WithExtra(map[string]interface{}{
				"id_token":   prev.IDToken,
				"expires_in": tok.Extra("expires_in"),
				"issued_at":  tok.Extra("issued_at"),
			})
		}
	}
	s, err := FromOAuth2(tok, now)
	if err != nil {
		return nil, err
	}
	if s.RefreshToken == "" && prev != nil {
		s.RefreshToken = prev.RefreshToken
	}
	return s, nil
}

func number(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// IsExpired reports whether now is past issuedAt + expiresIn - buffer.
// Exactly at that instant the tokens are still valid.
func IsExpired(now time.Time, issuedAt, expiresIn int64, buffer time.Duration) bool {
	return now.Unix() > issuedAt+expiresIn-int64(buffer/time.Second)
}

// Expired is IsExpired applied to the stored set.
func (s *Stored) Expired(now time.Time, buffer time.Duration) bool {
	return IsExpired(now, s.IssuedAt, s.ExpiresIn, buffer)
}
