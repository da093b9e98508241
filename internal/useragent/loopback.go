// Package useragent drives the external user agent (the system browser)
// through an authorization request and captures the redirect on a loopback
// listener.
package useragent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mealbox/mealbox/pkg/logger"
)

var (
	// ErrCancelled means the user abandoned the authorization: they denied
	// it, closed the browser before finishing, or the wait was cancelled.
	ErrCancelled     = errors.New("authorization cancelled")
	ErrStateMismatch = errors.New("redirect state does not match the request")
	ErrMissingCode   = errors.New("redirect carries no authorization code")
	ErrAuthorization = errors.New("authorization server returned an error")
)

// Loopback waits for the provider's redirect on the host and path of
// RedirectURI. Timeout bounds how long the user may take; a loopback
// listener can't observe the browser closing, so the timeout stands in for it.
type Loopback struct {
	RedirectURI string
	Timeout     time.Duration
	// Open launches the browser on the authorization URL.
	Open func(authURL string) error
}

// NewLoopback returns a loopback agent. browserCmd is run with the URL as its
// last argument; when empty the URL is logged for the user to open.
func NewLoopback(redirectURI string, timeout time.Duration, browserCmd string) *Loopback {
	return &Loopback{RedirectURI: redirectURI, Timeout: timeout, Open: opener(browserCmd)}
}

func opener(browserCmd string) func(string) error {
	fields := strings.Fields(browserCmd)
	if len(fields) == 0 {
		return func(authURL string) error {
			logger.Infof("open this URL in your browser to sign in: %s", authURL)
			return nil
		}
	}
	return func(authURL string) error {
		args := append(fields[1:len(fields):len(fields)], authURL)
		return exec.Command(fields[0], args...).Start()
	}
}

type callback struct {
	code string
	err  error
}

// Authorize opens authURL and blocks until the redirect arrives, the user
// cancels, or ctx ends. Redirects carrying another state are answered and
// otherwise ignored.
func (l *Loopback) Authorize(ctx context.Context, authURL, state string) (string, error) {
	u, err := url.Parse(l.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", u.Host, err)
	}

	done := make(chan callback, 1)
	path := u.Path
	if path == "" {
		path = "/"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(path, func(c *gin.Context) {
		res := parseCallback(c.Request.URL.Query(), state)
		if errors.Is(res.err, ErrStateMismatch) {
			// a stale tab or a reload; the real redirect may still come
			logger.Warnf("ignoring redirect with unexpected state")
			c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(stalePage))
			return
		}
		select {
		case done <- res:
		default:
		}
		if res.err != nil {
			c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(failedPage))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(donePage))
	})
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warnf("loopback listener stopped: %v", err)
		}
	}()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	if err := l.Open(authURL); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}

	select {
	case res := <-done:
		return res.code, res.err
	case <-ctx.Done():
		return "", ErrCancelled
	}
}

// parseCallback checks state first, so an error redirect from an older
// request can't end the current one.
func parseCallback(q url.Values, state string) callback {
	if q.Get("state") != state {
		return callback{err: ErrStateMismatch}
	}
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return callback{err: ErrCancelled}
		}
		return callback{err: fmt.Errorf("%w: %s %s", ErrAuthorization, e, q.Get("error_description"))}
	}
	code := q.Get("code")
	if code == "" {
		return callback{err: ErrMissingCode}
	}
	return callback{code: code}
}

const donePage = `<!doctype html><html><body><p>Signed in. You can close this window.</p></body></html>`

const failedPage = `<!doctype html><html><body><p>Sign-in was not completed. You can close this window.</p></body></html>`

const stalePage = `<!doctype html><html><body><p>This sign-in link has expired. Finish signing in from the most recent window.</p></body></html>`
