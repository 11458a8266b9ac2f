// Package session owns the signed-in identity: it follows the identity
// provider's auth-state events, keeps the backend access token in storage in
// step with them, and publishes the Session to observers.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/services/backend"
	"github.com/benvon/homehero/internal/storage"
)

// ErrNotSignedIn is returned when an operation needs a signed-in user.
var ErrNotSignedIn = errors.New("not signed in")

// errSuperseded stops a token exchange whose auth-state event is stale.
var errSuperseded = errors.New("superseded by a newer auth state")

// tokenSkew treats a backend token this close to its exp as already expired.
const tokenSkew = 30 * time.Second

// Options tunes a Manager. The zero value is usable.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
	// BackOff returns the retry policy for token exchange after a sign-in
	// event. Defaults to three exponential retries within ten seconds.
	BackOff func() backoff.BackOff
}

// DefaultBackOff is the token exchange retry policy.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 4 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// Manager is the single writer of the Session. Every method is safe for
// concurrent use; credential operations are not serialized against each
// other, and the last auth-state event decides who is signed in.
type Manager struct {
	provider Provider
	issuer   TokenIssuer
	store    storage.Store
	logger   *zap.Logger
	now      func() time.Time
	backOff  func() backoff.BackOff

	mu         sync.Mutex
	state      models.Session
	generation uint64
	subs       map[uint64]chan models.Session
	nextSub    uint64
	closed     bool
	inflight   int
	idle       chan struct{}

	// tokenMu orders writes and deletes of the persisted token
	tokenMu sync.Mutex

	ready     chan struct{}
	readyOnce sync.Once

	bgCtx    context.Context
	cancelBG context.CancelFunc
	wg       sync.WaitGroup

	unsubscribe func()
}

// NewManager starts following provider. The Session starts as loading with
// no user until the provider's first event.
func NewManager(provider Provider, issuer TokenIssuer, store storage.Store, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BackOff == nil {
		opts.BackOff = DefaultBackOff
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider: provider,
		issuer:   issuer,
		store:    store,
		logger:   opts.Logger,
		now:      opts.Now,
		backOff:  opts.BackOff,
		state:    models.Session{Loading: true},
		subs:     make(map[uint64]chan models.Session),
		ready:    make(chan struct{}),
		bgCtx:    bgCtx,
		cancelBG: cancel,
	}
	m.unsubscribe = provider.OnAuthStateChanged(m.handleAuthState)
	return m
}

// Close releases the provider subscription, waits for in-flight token
// exchanges to stop and closes every subscriber channel.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.unsubscribe()
	m.cancelBG()
	m.wg.Wait()

	m.mu.Lock()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.mu.Unlock()
	return nil
}

// handleAuthState applies one provider event. Events arrive one at a time.
func (m *Manager) handleAuthState(user *models.Identity) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.state.User = user.Clone()
	if user != nil {
		m.wg.Add(1)
		m.inflight++
	}
	m.mu.Unlock()

	if user != nil {
		m.logger.Debug("auth_state_signed_in", zap.String("uid", logger.SanitizeUserID(user.UID)))
		go m.exchangeToken(gen, user.Email)
	} else {
		m.logger.Debug("auth_state_signed_out")
		m.removeToken(m.bgCtx)
	}

	m.mu.Lock()
	m.state.Loading = false
	m.publishLocked()
	m.mu.Unlock()

	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.generation == gen
}

// exchangeToken fetches and persists a backend token for the event gen.
// Transient failures are retried; a newer event abandons the exchange.
func (m *Manager) exchangeToken(gen uint64, email string) {
	defer m.wg.Done()
	defer m.exchangeDone()
	ctx := m.bgCtx

	attempt := 0
	token, err := backoff.RetryWithData(func() (string, error) {
		if !m.isCurrent(gen) {
			return "", backoff.Permanent(errSuperseded)
		}
		attempt++
		tok, err := m.issuer.IssueToken(ctx, email)
		if err != nil && !backend.Retryable(err) {
			return "", backoff.Permanent(err)
		}
		return tok, err
	}, backoff.WithContext(m.backOff(), ctx))

	switch {
	case errors.Is(err, errSuperseded), errors.Is(err, context.Canceled):
		return
	case err != nil:
		m.logger.Warn("token_exchange_failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Int("attempts", attempt),
			zap.String("error", logger.SanitizeError(err)),
		)
		return
	}

	if m.persistToken(ctx, gen, token) {
		m.logger.Debug("token_exchanged", zap.String("email", logger.MaskEmail(email)), zap.Int("attempts", attempt))
	}
}

func (m *Manager) exchangeDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.inflight == 0 && m.idle != nil {
		close(m.idle)
		m.idle = nil
	}
}

// Settle blocks until no token exchange is in flight. A short-lived process
// calls it after signing in so the token is persisted before it exits.
func (m *Manager) Settle(ctx context.Context) error {
	m.mu.Lock()
	if m.inflight == 0 {
		m.mu.Unlock()
		return nil
	}
	if m.idle == nil {
		m.idle = make(chan struct{})
	}
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persistToken stores token unless a newer auth-state event has happened.
func (m *Manager) persistToken(ctx context.Context, gen uint64, token string) bool {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	if !m.isCurrent(gen) {
		return false
	}
	if err := m.store.Set(ctx, storage.KeyAccessToken, token); err != nil {
		m.logger.Warn("token_persist_failed", zap.String("error", logger.SanitizeError(err)))
		return false
	}
	return true
}

func (m *Manager) removeToken(ctx context.Context) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	if err := m.store.Delete(ctx, storage.KeyAccessToken); err != nil {
		m.logger.Warn("token_remove_failed", zap.String("error", logger.SanitizeError(err)))
	}
}

// WaitReady blocks until the provider has reported the initial sign-in state.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns a snapshot of the Session.
func (m *Manager) Current() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Subscribe returns a channel that receives the current Session and then
// every change. A slow reader only misses intermediate values; it always
// sees the latest. The channel is closed by unsubscribe or Close.
func (m *Manager) Subscribe() (<-chan models.Session, func()) {
	ch := make(chan models.Session, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.nextSub++
	id := m.nextSub
	m.subs[id] = ch
	ch <- m.state.Clone()
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// publishLocked must be called with m.mu held.
func (m *Manager) publishLocked() {
	for _, ch := range m.subs {
		s := m.state.Clone()
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Loading = loading
	m.publishLocked()
}

// operationFailed clears Loading after a failed credential operation. Before
// the provider's first event Loading stays set; that event clears it.
func (m *Manager) operationFailed() {
	select {
	case <-m.ready:
		m.setLoading(false)
	default:
	}
}

func (m *Manager) recordLogin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now()
	m.state.LastLoginTime = &t
	m.publishLocked()
}
