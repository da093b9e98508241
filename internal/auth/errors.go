package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/mealbox/mealbox/internal/sessions"
	"github.com/mealbox/mealbox/internal/tokens"
	"github.com/mealbox/mealbox/internal/useragent"
	"github.com/mealbox/mealbox/internal/users"
	"golang.org/x/oauth2"
)

// Failure kinds. The controller records at most one of them, wrapped around
// its cause, and exposes it through Err.
var (
	ErrRequestNotReady      = errors.New("authorization request not ready")
	ErrNetworkFailure       = errors.New("network failure")
	ErrNonSuccessResponse   = errors.New("non-success response")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrDecodeFailure        = errors.New("decode failure")
)

var messages = []struct {
	kind error
	msg  string
}{
	{ErrRequestNotReady, "Sign-in is not ready yet. Please try again in a moment."},
	{ErrNetworkFailure, "Could not reach the sign-in service. Check your connection and try again."},
	{ErrNonSuccessResponse, "The sign-in service rejected the request. Please sign in again."},
	{ErrMissingRequiredField, "The sign-in response was incomplete. Please sign in again."},
	{ErrDecodeFailure, "Your saved session could not be read. Please sign in again."},
}

// Message returns the user-facing text for err, or "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.kind) {
			return m.msg
		}
	}
	return "Sign-in failed. Please try again."
}

// Kind returns the failure kind err belongs to, or nil.
func Kind(err error) error {
	for _, m := range messages {
		if errors.Is(err, m.kind) {
			return m.kind
		}
	}
	return nil
}

func wrap(kind, err error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func isNetwork(err error) bool {
	var ue *url.Error
	var ne net.Error
	return errors.As(err, &ue) || errors.As(err, &ne) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func classifyExchange(err error) error {
	var re *oauth2.RetrieveError
	switch {
	case errors.As(err, &re):
		return wrap(ErrNonSuccessResponse, err)
	case isNetwork(err):
		return wrap(ErrNetworkFailure, err)
	case errors.Is(err, tokens.ErrMissingField), strings.Contains(err.Error(), "missing access_token"):
		return wrap(ErrMissingRequiredField, err)
	default:
		return wrap(ErrDecodeFailure, err)
	}
}

func classifyUserInfo(err error) error {
	switch {
	case isNetwork(err):
		return wrap(ErrNetworkFailure, err)
	case strings.Contains(err.Error(), "decode"):
		return wrap(ErrDecodeFailure, err)
	default:
		return wrap(ErrNonSuccessResponse, err)
	}
}

func classifyAgent(err error) error {
	switch {
	case errors.Is(err, useragent.ErrMissingCode):
		return wrap(ErrMissingRequiredField, err)
	case errors.Is(err, useragent.ErrStateMismatch), errors.Is(err, useragent.ErrAuthorization):
		return wrap(ErrNonSuccessResponse, err)
	default:
		return wrap(ErrNetworkFailure, err)
	}
}

// classifyStore covers the token store and the user store, both remote.
func classifyStore(err error) error {
	switch {
	case errors.Is(err, users.ErrMissingSubject):
		return wrap(ErrMissingRequiredField, err)
	case errors.Is(err, sessions.ErrCorrupt):
		return wrap(ErrDecodeFailure, err)
	default:
		return wrap(ErrNetworkFailure, err)
	}
}
