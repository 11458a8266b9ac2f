package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/storage"
)

type offsetClock struct{ offset atomic.Int64 }

func (c *offsetClock) now() time.Time { return time.Now().Add(time.Duration(c.offset.Load())) }

func (c *offsetClock) advance(d time.Duration) { c.offset.Add(int64(d)) }

func newTestClient(t *testing.T, f *fakeToolkit, store storage.Store, clock *offsetClock) *Client {
	t.Helper()

	cfg := Config{
		APIKey:         testAPIKey,
		ProjectID:      testProjectID,
		IdentityURL:    f.identityURL(),
		SecureTokenURL: f.secureTokenURL(),
		JWKSURL:        f.jwksURL(),
		Store:          store,
	}
	if clock != nil {
		cfg.Now = clock.now
	}

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func subscribe(t *testing.T, c *Client) <-chan *models.Identity {
	t.Helper()
	events := make(chan *models.Identity, 16)
	unsubscribe := c.OnAuthStateChanged(func(u *models.Identity) { events <- u })
	t.Cleanup(unsubscribe)
	return events
}

func nextEvent(t *testing.T, events <-chan *models.Identity) *models.Identity {
	t.Helper()
	select {
	case u := <-events:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for auth state event")
		return nil
	}
}

func assertNoEvent(t *testing.T, events <-chan *models.Identity) {
	t.Helper()
	select {
	case u := <-events:
		t.Fatalf("unexpected auth state event: %+v", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing api key", Config{IdentityURL: "http://x", SecureTokenURL: "http://y", Store: store}},
		{"missing identity url", Config{APIKey: "k", SecureTokenURL: "http://y", Store: store}},
		{"missing secure token url", Config{APIKey: "k", IdentityURL: "http://x", Store: store}},
		{"missing store", Config{APIKey: "k", IdentityURL: "http://x", SecureTokenURL: "http://y"}},
		{"google without client id", Config{APIKey: "k", IdentityURL: "http://x", SecureTokenURL: "http://y", Store: store, Google: &GoogleConfig{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSignIn_EmitsEventsAndPersists(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	store := storage.NewMemoryStore()
	c := newTestClient(t, f, store, nil)
	events := subscribe(t, c)

	assert.Nil(t, nextEvent(t, events), "first event reports the signed-out startup state")

	user, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "Jane", user.DisplayName)
	assert.Equal(t, "password", user.ProviderID)
	assert.Equal(t, 2025, user.CreationTime.Year())
	require.NotNil(t, user.LastSignInTime)

	ev := nextEvent(t, events)
	require.NotNil(t, ev)
	assert.Equal(t, user.UID, ev.UID)

	raw, ok, err := store.Get(context.Background(), storage.KeyIdentity)
	require.NoError(t, err)
	require.True(t, ok)
	var cred credential
	require.NoError(t, json.Unmarshal([]byte(raw), &cred))
	assert.Equal(t, user.UID, cred.User.UID)
	assert.NotEmpty(t, cred.RefreshToken)
}

func TestSignIn_Errors(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"wrong password", "jane@example.com", "nope", CodeWrongPassword},
		{"unknown user", "nobody@example.com", "Secret1", CodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := c.SignIn(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, CodeOf(err))
			assert.ErrorIs(t, err, &ProviderError{Code: tt.wantCode})
		})
	}
	assert.Nil(t, c.CurrentUser())
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("taken@example.com", "Secret1", "")
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)

	_, err := c.CreateAccount(context.Background(), "taken@example.com", "Secret1")
	assert.Equal(t, CodeEmailAlreadyInUse, CodeOf(err))

	_, err = c.CreateAccount(context.Background(), "new@example.com", "abc")
	assert.Equal(t, CodeWeakPassword, CodeOf(err))
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "Password should be at least 6 characters", pErr.Message)

	user, err := c.CreateAccount(context.Background(), "new@example.com", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, user.UID, c.CurrentUser().UID)
}

func TestRestore_FirstEventIsPersistedUser(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	store := storage.NewMemoryStore()

	first := newTestClient(t, f, store, nil)
	user, err := first.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestClient(t, f, store, nil)
	ev := nextEvent(t, subscribe(t, second))
	require.NotNil(t, ev)
	assert.Equal(t, user.UID, ev.UID)
}

func TestRestore_CorruptCredentialDiscarded(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storage.KeyIdentity, "{not json"))

	c := newTestClient(t, f, store, nil)
	assert.Nil(t, nextEvent(t, subscribe(t, c)))

	_, ok, err := store.Get(context.Background(), storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	store := storage.NewMemoryStore()
	c := newTestClient(t, f, store, nil)
	events := subscribe(t, c)
	nextEvent(t, events)

	err := c.UpdateProfile(context.Background(), "Janet", "https://img.example.com/j.png")
	assert.Equal(t, CodeNoCurrentUser, CodeOf(err), "requires a signed-in user")

	_, err = c.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)
	nextEvent(t, events)

	require.NoError(t, c.UpdateProfile(context.Background(), "Janet", "https://img.example.com/j.png"))
	assert.Equal(t, "Janet", c.CurrentUser().DisplayName)
	assert.Equal(t, "https://img.example.com/j.png", c.CurrentUser().PhotoURL)
	assertNoEvent(t, events)

	raw, _, err := store.Get(context.Background(), storage.KeyIdentity)
	require.NoError(t, err)
	assert.Contains(t, raw, "Janet")
}

func TestIDToken_RefreshesWhenExpired(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	clock := &offsetClock{}
	c := newTestClient(t, f, storage.NewMemoryStore(), clock)

	_, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)

	first, err := c.IDToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.refreshes())

	clock.advance(2 * time.Hour)
	second, err := c.IDToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, f.refreshes())
}

func TestIDToken_RevokedSessionSignsOut(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	clock := &offsetClock{}
	store := storage.NewMemoryStore()
	c := newTestClient(t, f, store, clock)
	events := subscribe(t, c)
	nextEvent(t, events)

	_, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)
	require.NotNil(t, nextEvent(t, events))

	f.revoke()
	clock.advance(2 * time.Hour)

	_, err = c.IDToken(context.Background())
	assert.Equal(t, CodeInvalidUserToken, CodeOf(err))
	assert.Nil(t, nextEvent(t, events))
	assert.Nil(t, c.CurrentUser())

	_, ok, err := store.Get(context.Background(), storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	store := storage.NewMemoryStore()
	c := newTestClient(t, f, store, nil)
	events := subscribe(t, c)
	nextEvent(t, events)

	_, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)
	require.NotNil(t, nextEvent(t, events))

	require.NoError(t, c.SignOut(context.Background()))
	assert.Nil(t, nextEvent(t, events))
	assert.Nil(t, c.CurrentUser())

	_, ok, err := store.Get(context.Background(), storage.KeyIdentity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendPasswordReset(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)

	require.NoError(t, c.SendPasswordReset(context.Background(), "jane@example.com"))
	assert.Equal(t, []string{"jane@example.com"}, f.resets())

	err := c.SendPasswordReset(context.Background(), "nobody@example.com")
	assert.Equal(t, CodeUserNotFound, CodeOf(err))
}

func TestNetworkFailure(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)
	f.srv.Close()

	_, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
	assert.Equal(t, CodeNetworkRequestFailed, CodeOf(err))
}

func TestSignInWithFederated_NotConfigured(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)

	_, err := c.SignInWithFederated(context.Background())
	assert.Equal(t, CodeOperationNotAllowed, CodeOf(err))
}

func TestEventsDeliveredInOrder(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)
	events := subscribe(t, c)
	assert.Nil(t, nextEvent(t, events))

	for i := 0; i < 3; i++ {
		_, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
		require.NoError(t, err)
		require.NoError(t, c.SignOut(context.Background()))
	}

	for i := 0; i < 3; i++ {
		assert.NotNil(t, nextEvent(t, events), "sign-in %d", i)
		assert.Nil(t, nextEvent(t, events), "sign-out %d", i)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	f := newFakeToolkit(t)
	f.addUser("jane@example.com", "Secret1", "Jane")
	c := newTestClient(t, f, storage.NewMemoryStore(), nil)

	events := make(chan *models.Identity, 4)
	unsubscribe := c.OnAuthStateChanged(func(u *models.Identity) { events <- u })
	nextEvent(t, events)
	unsubscribe()
	unsubscribe()

	_, err := c.SignIn(context.Background(), "jane@example.com", "Secret1")
	require.NoError(t, err)
	assertNoEvent(t, events)
}

func TestRestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message  string
		wantCode string
		wantMsg  string
	}{
		{"EMAIL_EXISTS", CodeEmailAlreadyInUse, "EMAIL_EXISTS"},
		{"WEAK_PASSWORD : Password should be at least 6 characters", CodeWeakPassword, "Password should be at least 6 characters"},
		{"INVALID_LOGIN_CREDENTIALS", CodeInvalidCredential, "INVALID_LOGIN_CREDENTIALS"},
		{"TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", CodeTooManyRequests, "Access disabled"},
		{"SOMETHING_NEW", CodeInternalError, "SOMETHING_NEW"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			t.Parallel()
			err := restError("op", tt.message)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMsg, err.Message)
		})
	}
}

func TestProviderError_Is(t *testing.T) {
	t.Parallel()

	err := errors.Join(errors.New("context"), &ProviderError{Op: "sign_in", Code: CodeWrongPassword})
	assert.ErrorIs(t, err, &ProviderError{Code: CodeWrongPassword})
	assert.NotErrorIs(t, err, &ProviderError{Code: CodeUserNotFound})
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}
