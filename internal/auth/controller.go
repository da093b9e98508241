// Package auth owns the session lifecycle: interactive login through the
// provider, restore of a persisted session at startup, and logout.
//
// A Controller is a small state machine. Every transition happens under its
// lock; the network work of an attempt runs outside it and publishes its
// result only if no logout (or newer attempt) has happened in between.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/oidc"
	"github.com/mealbox/mealbox/internal/tokens"
	"github.com/mealbox/mealbox/internal/useragent"
	"github.com/mealbox/mealbox/pkg/logger"
	"github.com/mealbox/mealbox/pkg/metrics"
	"golang.org/x/oauth2"
)

// Provider is the identity provider as the controller uses it.
type Provider interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, accessToken string) (*models.Profile, error)
}

// TokenStore persists the session entries.
type TokenStore interface {
	SaveTokens(ctx context.Context, t *tokens.Stored) error
	LoadTokens(ctx context.Context) (*tokens.Stored, error)
	DeleteTokens(ctx context.Context) error
	SetLoginSource(ctx context.Context, src models.LoginSource) error
	ClearLoginSource(ctx context.Context) error
	TakeLoginSource(ctx context.Context) (models.LoginSource, error)
}

type UserUpserter interface {
	Upsert(ctx context.Context, p *models.Profile, source models.LoginSource) (*models.User, error)
}

// UserAgent presents the authorization URL to the user and returns the code
// from the redirect. It returns useragent.ErrCancelled when the user backs out.
type UserAgent interface {
	Authorize(ctx context.Context, authURL, state string) (code string, err error)
}

type State int

const (
	Idle State = iota
	AwaitingRedirect
	Exchanging
	Authenticated
	Failed
)

var stateNames = [...]string{"idle", "awaiting_redirect", "exchanging", "authenticated", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Snapshot is the observable session state.
type Snapshot struct {
	State       State              `json:"state"`
	User        *models.User       `json:"user"`
	Source      models.LoginSource `json:"source,omitempty"`
	Destination string             `json:"destination"`
	Error       string             `json:"error,omitempty"`
}

type Options struct {
	// Cooldown is how long login stays disabled after an attempt finishes.
	Cooldown time.Duration
	// ExpiryBuffer is subtracted from the token lifetime when restoring.
	ExpiryBuffer time.Duration
	// RefreshOnExpiry makes Restore try the refresh token before giving up
	// on an expired session.
	RefreshOnExpiry bool
	Now             func() time.Time
	DecodeClaims    func(raw string) (*models.Profile, error)
}

type Controller struct {
	store TokenStore
	users UserUpserter
	agent UserAgent
	opts  Options

	mu            sync.Mutex
	provider      Provider
	state         State
	user          *models.User
	source        models.LoginSource
	err           error
	epoch         uint64
	inFlight      bool
	cooldownUntil time.Time
	cancelLogin   context.CancelFunc
	watchers      []func(Snapshot)

	// storeMu orders token writes after the epoch check that allows them.
	storeMu sync.Mutex
}

// NewController builds a controller in the Idle state. provider may be nil
// until the provider configuration is available; see SetProvider.
func NewController(p Provider, store TokenStore, u UserUpserter, agent UserAgent, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DecodeClaims == nil {
		opts.DecodeClaims = oidc.DecodeClaims
	}
	if opts.ExpiryBuffer == 0 {
		opts.ExpiryBuffer = tokens.DefaultExpiryBuffer
	}
	return &Controller{provider: p, store: store, users: u, agent: agent, opts: opts}
}

func (c *Controller) SetProvider(p Provider) {
	c.mu.Lock()
	c.provider = p
	c.mu.Unlock()
}

// ProviderReady reports whether a provider has been set.
func (c *Controller) ProviderReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider != nil
}

// Watch registers fn to receive every published snapshot.
func (c *Controller) Watch(fn func(Snapshot)) {
	c.mu.Lock()
	c.watchers = append(c.watchers, fn)
	c.mu.Unlock()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{State: c.state, Source: c.source, Error: Message(c.err)}
	if c.user != nil {
		s.User = c.user.Clone()
	}
	s.Destination = Destination(s.User, s.Source)
	return s
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Controller) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	return c.user.Clone()
}

// RefreshUser replaces the signed-in user with u after its stored record
// changed. It reports false, and changes nothing, unless u is the user of the
// current authenticated session.
func (c *Controller) RefreshUser(u *models.User) bool {
	if u == nil {
		return false
	}
	c.mu.Lock()
	if c.state != Authenticated || c.user == nil || c.user.UID != u.UID {
		c.mu.Unlock()
		return false
	}
	c.user = u.Clone()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return true
}

// Err returns the recorded failure, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ClearError dismisses the recorded failure.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.err = nil
	if c.state == Failed {
		c.state = Idle
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// CanLogin reports whether a login request would start an attempt now.
func (c *Controller) CanLogin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlight && !c.opts.Now().Before(c.cooldownUntil)
}

func (c *Controller) notify(s Snapshot) {
	c.mu.Lock()
	ws := append([]func(Snapshot){}, c.watchers...)
	c.mu.Unlock()
	for _, fn := range ws {
		fn(s)
	}
}

type attempt struct {
	ctx      context.Context
	cancel   context.CancelFunc
	epoch    uint64
	source   models.LoginSource
	provider Provider

	prevState  State
	prevUser   *models.User
	prevSource models.LoginSource
	prevErr    error
}

// Login runs one interactive login and returns when it has settled. Calls
// made while another attempt is in flight, or during the cooldown that
// follows one, are ignored. Failures are recorded on the controller, not
// returned.
func (c *Controller) Login(ctx context.Context, source models.LoginSource) {
	if a := c.begin(ctx, source); a != nil {
		c.run(a)
	}
}

// StartLogin is Login without waiting: it reports whether an attempt was
// started and runs it in the background.
func (c *Controller) StartLogin(ctx context.Context, source models.LoginSource) bool {
	a := c.begin(ctx, source)
	if a == nil {
		return false
	}
	go c.run(a)
	return true
}

func (c *Controller) begin(ctx context.Context, source models.LoginSource) *attempt {
	c.mu.Lock()
	now := c.opts.Now()
	if c.inFlight || now.Before(c.cooldownUntil) {
		c.mu.Unlock()
		logger.Debugf("login ignored: attempt in progress or cooling down")
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return nil
	}
	// a restore still running must not publish over this attempt
	c.epoch++
	if c.provider == nil {
		epoch := c.epoch
		c.state = Failed
		c.user = nil
		c.source = ""
		c.err = ErrRequestNotReady
		c.cooldownUntil = now.Add(c.opts.Cooldown)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		logger.Warnf("login failed: %v", ErrRequestNotReady)
		metrics.LoginAttempts.WithLabelValues("failed").Inc()
		// the session is gone in memory, so it goes from the store as well
		c.persist(epoch, c.discard)
		c.notify(snap)
		return nil
	}
	actx, cancel := context.WithCancel(ctx)
	a := &attempt{
		ctx: actx, cancel: cancel, epoch: c.epoch, source: source, provider: c.provider,
		prevState: c.state, prevUser: c.user, prevSource: c.source, prevErr: c.err,
	}
	c.inFlight = true
	c.cancelLogin = cancel
	c.state = AwaitingRedirect
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return a
}

func (c *Controller) run(a *attempt) {
	defer func() {
		a.cancel()
		c.mu.Lock()
		c.inFlight = false
		c.cancelLogin = nil
		c.cooldownUntil = c.opts.Now().Add(c.opts.Cooldown)
		c.mu.Unlock()
	}()

	ctx := a.ctx
	var err error
	if a.source != "" {
		err = c.store.SetLoginSource(ctx, a.source)
	} else {
		err = c.store.ClearLoginSource(ctx)
	}
	if err != nil {
		c.fail(a, classifyStore(err))
		return
	}

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()
	logger.Infof("login started (source=%q)", a.source)
	code, err := c.agent.Authorize(ctx, a.provider.AuthCodeURL(state, verifier), state)
	if errors.Is(err, useragent.ErrCancelled) {
		c.cancelled(a)
		return
	}
	if err != nil {
		c.fail(a, classifyAgent(err))
		return
	}
	if code == "" {
		c.fail(a, wrap(ErrMissingRequiredField, useragent.ErrMissingCode))
		return
	}
	if !c.advance(a, Exchanging) {
		return
	}

	user, source, err := c.exchange(a, code, verifier)
	if err != nil {
		c.fail(a, err)
		return
	}
	c.complete(a, user, source)
}

// advance moves a live attempt to s. It reports false if the attempt has
// been superseded.
func (c *Controller) advance(a *attempt, s State) bool {
	c.mu.Lock()
	if a.epoch != c.epoch {
		c.mu.Unlock()
		return false
	}
	c.state = s
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return true
}

func (c *Controller) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch == c.epoch
}

var errSuperseded = errors.New("superseded by logout or a newer attempt")

// persist runs write while holding the store lock, provided epoch is still
// current. Logout deletes under the same lock, so a write allowed here can
// never land after the logout that should have removed it.
func (c *Controller) persist(epoch uint64, write func(ctx context.Context) error) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if !c.current(epoch) {
		return errSuperseded
	}
	return write(context.Background())
}

func (c *Controller) exchange(a *attempt, code, verifier string) (*models.User, models.LoginSource, error) {
	ctx := a.ctx
	tok, err := a.provider.Exchange(ctx, code, verifier)
	if err != nil {
		return nil, "", classifyExchange(err)
	}
	stored, err := tokens.FromOAuth2(tok, c.opts.Now())
	if err != nil {
		return nil, "", wrap(ErrMissingRequiredField, err)
	}
	err = c.persist(a.epoch, func(context.Context) error { return c.store.SaveTokens(ctx, stored) })
	if errors.Is(err, errSuperseded) {
		return nil, "", err
	}
	if err != nil {
		return nil, "", classifyStore(err)
	}
	source, err := c.store.TakeLoginSource(ctx)
	if err != nil {
		return nil, "", classifyStore(err)
	}
	profile, err := a.provider.UserInfo(ctx, stored.AccessToken)
	if err != nil {
		return nil, "", classifyUserInfo(err)
	}
	if profile == nil || profile.Sub == "" {
		return nil, "", wrap(ErrMissingRequiredField, oidc.ErrNoSubject)
	}
	user, err := c.users.Upsert(ctx, profile, source)
	if err != nil {
		return nil, "", classifyStore(err)
	}
	return user, source, nil
}

func (c *Controller) complete(a *attempt, u *models.User, source models.LoginSource) {
	c.mu.Lock()
	// the logout that superseded a has already deleted what it saved
	if a.epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.state = Authenticated
	c.user = u
	c.source = source
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()
	logger.Infof("login complete: uid=%s type=%s", u.UID, u.UserType)
	metrics.LoginAttempts.WithLabelValues("authenticated").Inc()
	c.notify(snap)
}

func (c *Controller) cancelled(a *attempt) {
	c.mu.Lock()
	if a.epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.state = a.prevState
	c.user = a.prevUser
	c.source = a.prevSource
	c.err = a.prevErr
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if err := c.store.ClearLoginSource(context.Background()); err != nil {
		logger.Warnf("clear login source: %v", err)
	}
	logger.Infof("login cancelled by user")
	metrics.LoginAttempts.WithLabelValues("cancelled").Inc()
	c.notify(snap)
}

func (c *Controller) fail(a *attempt, err error) {
	c.mu.Lock()
	if a.epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.state = Failed
	c.user = nil
	c.source = ""
	c.err = err
	snap := c.snapshotLocked()
	c.mu.Unlock()
	logger.Warnf("login failed: %v", err)
	metrics.LoginAttempts.WithLabelValues("failed").Inc()
	c.persist(a.epoch, c.discard)
	c.notify(snap)
}

// discard drops whatever a failed attempt may have persisted.
func (c *Controller) discard(ctx context.Context) error {
	if err := c.store.DeleteTokens(ctx); err != nil {
		logger.Warnf("delete tokens: %v", err)
	}
	if err := c.store.ClearLoginSource(ctx); err != nil {
		logger.Warnf("clear login source: %v", err)
	}
	return nil
}

// Logout ends the session. It always wins: an attempt or restore still in
// flight is cancelled and its result dropped. Store errors are logged.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.epoch++
	if c.cancelLogin != nil {
		c.cancelLogin()
		c.cancelLogin = nil
	}
	c.state = Idle
	c.user = nil
	c.source = ""
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.storeMu.Lock()
	if err := c.store.DeleteTokens(ctx); err != nil {
		logger.Warnf("logout: delete tokens: %v", err)
	}
	if err := c.store.ClearLoginSource(ctx); err != nil {
		logger.Warnf("logout: clear login source: %v", err)
	}
	c.storeMu.Unlock()
	logger.Infof("logged out")
	c.notify(snap)
}

// Restore re-establishes a persisted session at startup. Expired tokens are
// deleted (or refreshed when enabled); an undecodable ID token is deleted
// and recorded as a decode failure.
func (c *Controller) Restore(ctx context.Context) {
	c.mu.Lock()
	if c.inFlight || c.state == Authenticated {
		c.mu.Unlock()
		return
	}
	epoch := c.epoch
	provider := c.provider
	c.mu.Unlock()

	stored, err := c.store.LoadTokens(ctx)
	if err != nil {
		err = classifyStore(err)
		if errors.Is(err, ErrDecodeFailure) {
			c.dropTokens(ctx, epoch)
		}
		c.restoreFailed(epoch, err)
		return
	}
	if stored == nil {
		metrics.SessionRestores.WithLabelValues("absent").Inc()
		c.settle(epoch, Idle, nil)
		return
	}

	result := "restored"
	if stored.Expired(c.opts.Now(), c.opts.ExpiryBuffer) {
		stored = c.refresh(ctx, epoch, provider, stored)
		if stored == nil {
			c.dropTokens(ctx, epoch)
			logger.Infof("stored session expired; signed out")
			metrics.SessionRestores.WithLabelValues("expired").Inc()
			c.settle(epoch, Idle, nil)
			return
		}
		result = "refreshed"
	}

	profile, err := c.opts.DecodeClaims(stored.IDToken)
	if err != nil {
		c.dropTokens(ctx, epoch)
		c.restoreFailed(epoch, wrap(ErrDecodeFailure, err))
		return
	}
	user, err := c.users.Upsert(ctx, profile, "")
	if err != nil {
		c.restoreFailed(epoch, classifyStore(err))
		return
	}
	if c.settle(epoch, Authenticated, user) {
		logger.Infof("session restored: uid=%s", user.UID)
		metrics.SessionRestores.WithLabelValues(result).Inc()
	}
}

// refresh returns a fresh token set for an expired one, or nil when refresh
// is disabled or fails.
func (c *Controller) refresh(ctx context.Context, epoch uint64, p Provider, prev *tokens.Stored) *tokens.Stored {
	if !c.opts.RefreshOnExpiry || p == nil || prev.RefreshToken == "" {
		return nil
	}
	tok, err := p.Refresh(ctx, prev.RefreshToken)
	if err != nil {
		logger.Warnf("token refresh failed: %v", err)
		return nil
	}
	next, err := tokens.Refreshed(prev, tok, c.opts.Now())
	if err != nil {
		logger.Warnf("token refresh failed: %v", err)
		return nil
	}
	err = c.persist(epoch, func(context.Context) error { return c.store.SaveTokens(ctx, next) })
	if err != nil {
		if !errors.Is(err, errSuperseded) {
			logger.Warnf("save refreshed tokens: %v", err)
		}
		return nil
	}
	return next
}

// dropTokens deletes the stored tokens for a restore that is still current;
// once a login or logout has moved on, the store is theirs.
func (c *Controller) dropTokens(ctx context.Context, epoch uint64) {
	err := c.persist(epoch, func(context.Context) error { return c.store.DeleteTokens(ctx) })
	if err != nil && !errors.Is(err, errSuperseded) {
		logger.Warnf("delete tokens: %v", err)
	}
}

// settle publishes a restore outcome unless a logout or login got there first.
func (c *Controller) settle(epoch uint64, s State, u *models.User) bool {
	c.mu.Lock()
	if epoch != c.epoch || c.inFlight || c.state == Authenticated {
		c.mu.Unlock()
		return false
	}
	c.state = s
	c.user = u
	c.source = ""
	if s != Failed {
		c.err = nil
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return true
}

func (c *Controller) restoreFailed(epoch uint64, err error) {
	c.mu.Lock()
	if epoch != c.epoch || c.inFlight || c.state == Authenticated {
		c.mu.Unlock()
		return
	}
	c.state = Failed
	c.user = nil
	c.source = ""
	c.err = err
	snap := c.snapshotLocked()
	c.mu.Unlock()
	logger.Warnf("session restore failed: %v", err)
	metrics.SessionRestores.WithLabelValues("failed").Inc()
	c.notify(snap)
}
