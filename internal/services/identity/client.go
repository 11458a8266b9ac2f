// Package identity implements the identity-provider port on top of the
// Identity Toolkit REST API: email/password accounts, Google sign-in,
// profile updates, password reset and auth-state notifications.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/storage"
)

// refreshMargin is how long before expiry an ID token is refreshed.
const refreshMargin = time.Minute

// credential is what the client persists under storage.KeyIdentity.
type credential struct {
	IDToken      string          `json:"id_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
	User         models.Identity `json:"user"`
}

type event struct {
	user   *models.Identity
	target uint64 // 0 delivers to every listener
}

// Client is the identity provider. Auth-state changes are delivered to
// listeners in order from one dispatcher goroutine.
type Client struct {
	rest     *restClient
	verifier *Verifier
	google   *googleFlow
	store    storage.Store
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	cred *credential

	lmu       sync.Mutex
	listeners map[uint64]func(*models.Identity)
	nextID    uint64

	qmu       sync.Mutex
	queue     []event
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates the client and restores a persisted sign-in from cfg.Store.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	c := &Client{
		rest:      newRESTClient(cfg),
		store:     cfg.Store,
		logger:    cfg.Logger,
		now:       cfg.Now,
		listeners: make(map[uint64]func(*models.Identity)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if cfg.ProjectID != "" && cfg.JWKSURL != "" {
		c.verifier = NewVerifier(NewJWKSManager(cfg.HTTPClient), cfg.JWKSURL, cfg.ProjectID)
	}
	if cfg.Google != nil {
		c.google = newGoogleFlow(*cfg.Google, cfg.HTTPClient, cfg.Logger)
	}

	if err := c.restore(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.dispatch()

	return c, nil
}

func (c *Client) restore(ctx context.Context) error {
	raw, ok, err := c.store.Get(ctx, storage.KeyIdentity)
	if err != nil {
		return fmt.Errorf("failed to read persisted identity: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}

	var cred credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil || cred.RefreshToken == "" || cred.User.UID == "" {
		c.logger.Warn("persisted_identity_discarded", zap.String("error", logger.SanitizeError(err)))
		if delErr := c.store.Delete(ctx, storage.KeyIdentity); delErr != nil {
			return fmt.Errorf("failed to discard persisted identity: %w", delErr)
		}
		return nil
	}

	c.cred = &cred
	c.logger.Debug("identity_restored", zap.String("uid", logger.SanitizeUserID(cred.User.UID)))
	return nil
}

// Close stops event delivery. Listeners receive nothing after Close returns.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
	return nil
}

// CurrentUser returns a copy of the signed-in identity, or nil.
func (c *Client) CurrentUser() *models.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cred == nil {
		return nil
	}
	return c.cred.User.Clone()
}

// OnAuthStateChanged registers fn for auth-state changes. fn is first called
// with the current state, then after every sign-in and sign-out.
func (c *Client) OnAuthStateChanged(fn func(*models.Identity)) (unsubscribe func()) {
	c.lmu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.lmu.Unlock()

	c.enqueue(event{user: c.CurrentUser(), target: id})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			delete(c.listeners, id)
			c.lmu.Unlock()
		})
	}
}

func (c *Client) enqueue(ev event) {
	c.qmu.Lock()
	c.queue = append(c.queue, ev)
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) pop() (event, bool) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if len(c.queue) == 0 {
		return event{}, false
	}
	ev := c.queue[0]
	c.queue = c.queue[1:]
	return ev, true
}

func (c *Client) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		for {
			ev, ok := c.pop()
			if !ok {
				break
			}
			c.deliver(ev)
		}
	}
}

func (c *Client) deliver(ev event) {
	c.lmu.Lock()
	var fns []func(*models.Identity)
	if ev.target != 0 {
		if fn, ok := c.listeners[ev.target]; ok {
			fns = append(fns, fn)
		}
	} else {
		for _, fn := range c.listeners {
			fns = append(fns, fn)
		}
	}
	c.lmu.Unlock()

	for _, fn := range fns {
		fn(ev.user.Clone())
	}
}

// CreateAccount registers a new email/password account and signs it in.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (*models.Identity, error) {
	var resp authResponse
	err := c.rest.post(ctx, "create_account", "accounts:signUp", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.completeSignIn(ctx, "create_account", resp)
}

// SignIn signs in with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	var resp authResponse
	err := c.rest.post(ctx, "sign_in", "accounts:signInWithPassword", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.completeSignIn(ctx, "sign_in", resp)
}

// SignInWithFederated runs the Google consent flow in the user's browser and
// signs in with the resulting Google ID token.
func (c *Client) SignInWithFederated(ctx context.Context) (*models.Identity, error) {
	const op = "sign_in_federated"
	if c.google == nil {
		return nil, &ProviderError{Op: op, Code: CodeOperationNotAllowed, Message: "Google sign-in is not configured"}
	}

	googleIDToken, err := c.google.run(ctx)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	err = c.rest.post(ctx, op, "accounts:signInWithIdp", idpRequest{
		PostBody:            "id_token=" + googleIDToken + "&providerId=google.com",
		RequestURI:          "http://localhost",
		ReturnIdpCredential: true,
		ReturnSecureToken:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.completeSignIn(ctx, op, resp)
}

func (c *Client) completeSignIn(ctx context.Context, op string, resp authResponse) (*models.Identity, error) {
	if resp.IDToken == "" || resp.RefreshToken == "" {
		return nil, &ProviderError{Op: op, Code: CodeInternalError, Message: "provider returned no credential"}
	}

	if c.verifier != nil {
		claims, err := c.verifier.Verify(ctx, resp.IDToken)
		if err != nil {
			return nil, &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "ID token failed verification", Err: err}
		}
		if resp.LocalID != "" && claims.Sub != resp.LocalID {
			return nil, &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "ID token subject mismatch"}
		}
	}

	user, err := c.lookup(ctx, op, resp.IDToken)
	if err != nil {
		return nil, err
	}

	cred := &credential{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.now().Add(parseExpiresIn(resp.ExpiresIn)),
		User:         *user,
	}

	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()
	c.persist(ctx, cred)

	c.logger.Info("identity_signed_in",
		zap.String("op", op),
		zap.String("uid", logger.SanitizeUserID(user.UID)),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	c.enqueue(event{user: user.Clone()})
	return user, nil
}

// UpdateProfile changes the display name and photo URL of the signed-in
// user. No auth-state event is emitted; the uid does not change.
func (c *Client) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	const op = "update_profile"
	idToken, err := c.idToken(ctx, op)
	if err != nil {
		return err
	}

	req := updateRequest{
		IDToken:           idToken,
		DisplayName:       displayName,
		PhotoURL:          photoURL,
		ReturnSecureToken: true,
	}
	if displayName == "" {
		req.DeleteAttribute = append(req.DeleteAttribute, "DISPLAY_NAME")
	}
	if photoURL == "" {
		req.DeleteAttribute = append(req.DeleteAttribute, "PHOTO_URL")
	}

	var resp authResponse
	if err := c.rest.post(ctx, op, "accounts:update", req, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	if c.cred == nil {
		c.mu.Unlock()
		return &ProviderError{Op: op, Code: CodeNoCurrentUser, Message: "signed out during profile update"}
	}
	cred := *c.cred
	cred.User = *cred.User.WithProfile(displayName, photoURL)
	if resp.IDToken != "" {
		cred.IDToken = resp.IDToken
		cred.ExpiresAt = c.now().Add(parseExpiresIn(resp.ExpiresIn))
	}
	if resp.RefreshToken != "" {
		cred.RefreshToken = resp.RefreshToken
	}
	c.cred = &cred
	c.mu.Unlock()

	c.persist(ctx, &cred)
	return nil
}

// SendPasswordReset asks the provider to email a reset link to email.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.rest.post(ctx, "password_reset", "accounts:sendOobCode", oobRequest{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}, nil)
}

// SignOut forgets the local credential and notifies listeners.
func (c *Client) SignOut(ctx context.Context) error {
	c.clearCredential()
	c.enqueue(event{user: nil})

	if err := c.store.Delete(ctx, storage.KeyIdentity); err != nil {
		return &ProviderError{Op: "sign_out", Code: CodeInternalError, Message: "failed to remove persisted identity", Err: err}
	}
	c.logger.Info("identity_signed_out")
	return nil
}

func (c *Client) clearCredential() {
	c.mu.Lock()
	c.cred = nil
	c.mu.Unlock()
}

// IDToken returns a valid ID token for the signed-in user, refreshing it when
// it is about to expire.
func (c *Client) IDToken(ctx context.Context) (string, error) {
	return c.idToken(ctx, "id_token")
}

func (c *Client) idToken(ctx context.Context, op string) (string, error) {
	c.mu.Lock()
	cred := c.cred
	c.mu.Unlock()

	if cred == nil {
		return "", &ProviderError{Op: op, Code: CodeNoCurrentUser, Message: "no user is signed in"}
	}
	if c.now().Add(refreshMargin).Before(cred.ExpiresAt) {
		return cred.IDToken, nil
	}

	refreshed, err := c.rest.refresh(ctx, op, cred.RefreshToken)
	if err != nil {
		if CodeOf(err) == CodeInvalidUserToken {
			// The provider revoked the session; treat it as a sign-out
			c.logger.Warn("identity_session_revoked", zap.String("uid", logger.SanitizeUserID(cred.User.UID)))
			c.clearCredential()
			c.enqueue(event{user: nil})
			if delErr := c.store.Delete(ctx, storage.KeyIdentity); delErr != nil {
				c.logger.Warn("persisted_identity_delete_failed", zap.String("error", logger.SanitizeError(delErr)))
			}
		}
		return "", err
	}

	next := *cred
	next.IDToken = refreshed.IDToken
	next.RefreshToken = refreshed.RefreshToken
	next.ExpiresAt = c.now().Add(parseExpiresIn(refreshed.ExpiresIn))

	c.mu.Lock()
	if c.cred != nil && c.cred.User.UID == cred.User.UID {
		c.cred = &next
	}
	c.mu.Unlock()
	c.persist(ctx, &next)

	return next.IDToken, nil
}

// persist writes cred to the store. A failure only costs the restored
// sign-in on the next start, so it is logged rather than returned.
func (c *Client) persist(ctx context.Context, cred *credential) {
	data, err := json.Marshal(cred)
	if err == nil {
		err = c.store.Set(ctx, storage.KeyIdentity, string(data))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("persist_identity_failed", zap.String("error", logger.SanitizeError(err)))
	}
}

func (c *Client) lookup(ctx context.Context, op, idToken string) (*models.Identity, error) {
	var resp lookupResponse
	if err := c.rest.post(ctx, op, "accounts:lookup", lookupRequest{IDToken: idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, &ProviderError{Op: op, Code: CodeUserNotFound, Message: "account lookup returned no user"}
	}
	return resp.Users[0].identity(), nil
}
