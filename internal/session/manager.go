package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoSession is returned when a refresh is attempted without a stored
	// refresh token. The session is unrecoverable and has been cleared.
	ErrNoSession = errors.New("no refresh token in session")

	// ErrRefreshRejected is returned when the backend refuses the refresh
	// token. The session has been cleared; the user must log in again.
	ErrRefreshRejected = errors.New("session refresh rejected")
)

// refreshTimeout bounds the refresh network call so a hung backend cannot
// stall every caller waiting on the shared result.
const refreshTimeout = 15 * time.Second

// TokenPair is a fresh (access, refresh) pair issued by the backend. An
// empty RefreshToken means the server chose not to rotate it.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Manager is the process-wide authority on the current session. It holds the
// in-memory copy of the record, writes through to the durable store, refreshes
// the access token with single-flight semantics, and keeps a one-shot timer
// armed so the refresh happens shortly before expiry even when the user is
// idle. Construct one instance at startup and share it by reference.
type Manager struct {
	store     Store
	refresher Refresher
	margin    time.Duration
	onExpired func()

	group singleflight.Group

	mu     sync.Mutex
	record *Record
	timer  *time.Timer
	closed bool
}

type ManagerOpts struct {
	Store     Store
	Refresher Refresher
	Margin    time.Duration // defaults to RefreshMargin
	OnExpired func()        // called once per terminal refresh failure
}

func NewManager(opts ManagerOpts) *Manager {
	m := &Manager{
		store:     opts.Store,
		refresher: opts.Refresher,
		margin:    opts.Margin,
		onExpired: opts.OnExpired,
	}
	if m.margin == 0 {
		m.margin = RefreshMargin
	}
	return m
}

// Login installs a freshly issued session and arms the proactive refresh
// timer. Persistence failures are logged but do not invalidate the session,
// which stays usable in memory.
func (m *Manager) Login(rec Record) {
	m.mu.Lock()
	r := rec
	m.record = &r
	m.mu.Unlock()

	if err := m.store.Save(&rec); err != nil {
		log.Warn().Err(err).Msg("failed to persist session")
	}
	m.schedule(rec.AccessToken)
	log.Info().Str("email", rec.UserEmail).Msg("session established")
}

// Resume loads a previously persisted session, if any, and arms the refresh
// timer for it. Returns true when a session was found. A session already
// inside the refresh margin is left for the next token-consuming call to
// refresh reactively.
func (m *Manager) Resume() bool {
	rec, err := m.store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load persisted session")
		return false
	}
	if rec == nil || rec.AccessToken == "" {
		return false
	}

	m.mu.Lock()
	m.record = rec
	m.mu.Unlock()

	m.schedule(rec.AccessToken)
	log.Info().Str("email", rec.UserEmail).Msg("resumed persisted session")
	return true
}

// Logout destroys the session: timer cancelled, memory and durable store
// cleared. Safe to call when already logged out.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.record = nil
	m.stopTimerLocked()
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session store")
	}
	log.Info().Msg("logged out")
}

// AccessToken returns a token fit to put in an Authorization header. Empty
// string (and nil error) means logged out. A token inside the refresh margin
// is refreshed before being returned; terminal refresh failures propagate.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tok := m.Snapshot().AccessToken
	if tok == "" {
		return "", nil
	}
	if !NeedsRefresh(tok, m.margin) {
		return tok, nil
	}
	return m.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers join the same in-flight exchange and observe the same outcome, so
// at most one refresh call is ever on the wire.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		tok, err := m.doRefresh(ctx)
		return tok, err
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	refreshToken := m.Snapshot().RefreshToken
	if refreshToken == "" {
		m.expire()
		return "", ErrNoSession
	}

	// Joined callers share this one network call, so a single caller's
	// cancellation must not fail the others.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()

	pair, err := m.refresher.RefreshSession(rctx, refreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("session refresh failed, logging out")
		m.expire()
		return "", fmt.Errorf("%w: %s", ErrRefreshRejected, err)
	}
	if pair.RefreshToken == "" {
		// Rotation is optional server-side; keep the old one.
		pair.RefreshToken = refreshToken
	}

	m.mu.Lock()
	rec := Record{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if m.record != nil {
		rec.UserEmail = m.record.UserEmail
		rec.UserName = m.record.UserName
	}
	m.record = &rec
	m.mu.Unlock()

	if err := m.store.Save(&rec); err != nil {
		log.Warn().Err(err).Msg("failed to persist refreshed session")
	}
	m.schedule(pair.AccessToken)
	return pair.AccessToken, nil
}

// expire tears the session down after a terminal failure and fires the
// expiry hook so the application can send the user back to login.
func (m *Manager) expire() {
	m.mu.Lock()
	m.record = nil
	m.stopTimerLocked()
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session store")
	}
	if m.onExpired != nil {
		m.onExpired()
	}
}

// schedule arms the one-shot proactive refresh timer for the given token,
// cancelling any previously armed timer. A token already inside the margin
// gets no timer; the next token-consuming call refreshes it instead.
func (m *Manager) schedule(token string) {
	d := TimeToRefresh(token, m.margin)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	if m.closed || d == 0 {
		return
	}
	m.timer = time.AfterFunc(d, func() {
		if _, err := m.Refresh(context.Background()); err != nil {
			log.Warn().Err(err).Msg("proactive session refresh failed")
		}
	})
	log.Debug().Dur("in", d).Msg("scheduled proactive session refresh")
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Snapshot returns a copy of the current record, or a zero Record when
// logged out.
func (m *Manager) Snapshot() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return Record{}
	}
	return *m.record
}

// LoggedIn reports whether an access token is currently held. It says
// nothing about freshness.
func (m *Manager) LoggedIn() bool {
	return m.Snapshot().AccessToken != ""
}

// Close cancels the refresh timer and prevents new ones from being armed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopTimerLocked()
}

// Run blocks until ctx is cancelled, then shuts the scheduler down. Meant to
// be run in an errgroup alongside the rest of the application.
func (m *Manager) Run(ctx context.Context) error {
	<-ctx.Done()
	log.Info().Msg("stopping session refresh scheduler")
	m.Close()
	return ctx.Err()
}
