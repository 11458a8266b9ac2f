package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "test-key"
	testProjectID = "homehero-test"
)

// signingKey is an RSA key published through a JWKS document.
type signingKey struct {
	private jwk.Key
	public  jwk.Set
}

func newSigningKey(t *testing.T) *signingKey {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "test-kid"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	return &signingKey{private: priv, public: set}
}

func (k *signingKey) sign(t *testing.T, build func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()

	tok, err := build(jwt.NewBuilder()).Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, k.private))
	require.NoError(t, err)
	return string(signed)
}

func (k *signingKey) serveJWKS(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(k.public)
	if err != nil {
		t.Errorf("marshal jwks: %v", err)
		return
	}
	_, _ = w.Write(data)
}

type fakeUser struct {
	uid         string
	email       string
	password    string
	displayName string
	photoURL    string
	providerID  string
	createdAt   time.Time
}

// fakeToolkit stands in for the Identity Toolkit and secure-token APIs.
type fakeToolkit struct {
	t   *testing.T
	key *signingKey
	srv *httptest.Server

	mu            sync.Mutex
	users         map[string]*fakeUser // by email
	idTokens      map[string]string    // token -> uid
	refreshTokens map[string]string    // token -> uid
	refreshCalls  int
	revoked       bool
	resetEmails   []string
}

func newFakeToolkit(t *testing.T) *fakeToolkit {
	t.Helper()

	f := &fakeToolkit{
		t:             t,
		key:           newSigningKey(t),
		users:         make(map[string]*fakeUser),
		idTokens:      make(map[string]string),
		refreshTokens: make(map[string]string),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeToolkit) identityURL() string    { return f.srv.URL + "/v1" }
func (f *fakeToolkit) secureTokenURL() string { return f.srv.URL + "/st" }
func (f *fakeToolkit) jwksURL() string        { return f.srv.URL + "/jwks" }

func (f *fakeToolkit) addUser(email, password, name string) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &fakeUser{
		uid:         uuid.NewString(),
		email:       email,
		password:    password,
		displayName: name,
		providerID:  "password",
		createdAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.users[email] = u
	return u
}

func (f *fakeToolkit) userByUID(uid string) *fakeUser {
	for _, u := range f.users {
		if u.uid == uid {
			return u
		}
	}
	return nil
}

// issue must be called with f.mu held.
func (f *fakeToolkit) issue(u *fakeUser) (idToken, refreshToken string) {
	now := time.Now()
	idToken = f.key.sign(f.t, func(b *jwt.Builder) *jwt.Builder {
		return b.Issuer(SecureTokenIssuerPrefix+testProjectID).
			Audience([]string{testProjectID}).
			Subject(u.uid).
			IssuedAt(now).
			Expiration(now.Add(time.Hour)).
			Claim("email", u.email).
			Claim("email_verified", false).
			Claim("jti", uuid.NewString())
	})
	refreshToken = "refresh-" + uuid.NewString()
	f.idTokens[idToken] = u.uid
	f.refreshTokens[refreshToken] = u.uid
	return idToken, refreshToken
}

func (f *fakeToolkit) fail(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": 400, "message": message},
	})
}

func (f *fakeToolkit) reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeToolkit) authReply(w http.ResponseWriter, u *fakeUser) {
	idToken, refreshToken := f.issue(u)
	f.reply(w, authResponse{
		LocalID:      u.uid,
		Email:        u.email,
		DisplayName:  u.displayName,
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    "3600",
	})
}

func (f *fakeToolkit) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/jwks" {
		f.key.serveJWKS(f.t, w)
		return
	}
	if r.URL.Query().Get("key") != testAPIKey {
		f.fail(w, "API_KEY_INVALID")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/st/token" {
		f.handleRefresh(w, r)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.fail(w, "INVALID_JSON")
		return
	}
	str := func(k string) string { s, _ := body[k].(string); return s }

	switch r.URL.Path {
	case "/v1/accounts:signUp":
		if _, exists := f.users[str("email")]; exists {
			f.fail(w, "EMAIL_EXISTS")
			return
		}
		if len(str("password")) < 6 {
			f.fail(w, "WEAK_PASSWORD : Password should be at least 6 characters")
			return
		}
		u := &fakeUser{uid: uuid.NewString(), email: str("email"), password: str("password"), providerID: "password", createdAt: time.Now().UTC()}
		f.users[u.email] = u
		f.authReply(w, u)

	case "/v1/accounts:signInWithPassword":
		u, ok := f.users[str("email")]
		if !ok {
			f.fail(w, "EMAIL_NOT_FOUND")
			return
		}
		if u.password != str("password") {
			f.fail(w, "INVALID_PASSWORD")
			return
		}
		f.authReply(w, u)

	case "/v1/accounts:signInWithIdp":
		post, err := url.ParseQuery(str("postBody"))
		if err != nil || post.Get("id_token") == "" || post.Get("providerId") != "google.com" {
			f.fail(w, "INVALID_IDP_RESPONSE")
			return
		}
		email := "google.user@example.com"
		u, ok := f.users[email]
		if !ok {
			u = &fakeUser{uid: uuid.NewString(), email: email, displayName: "Google User", providerID: "google.com", createdAt: time.Now().UTC()}
			f.users[email] = u
		}
		f.authReply(w, u)

	case "/v1/accounts:lookup":
		uid, ok := f.idTokens[str("idToken")]
		if !ok {
			f.fail(w, "INVALID_ID_TOKEN")
			return
		}
		u := f.userByUID(uid)
		f.reply(w, map[string]any{"users": []map[string]any{{
			"localId":          u.uid,
			"email":            u.email,
			"emailVerified":    false,
			"displayName":      u.displayName,
			"photoUrl":         u.photoURL,
			"createdAt":        strconv.FormatInt(u.createdAt.UnixMilli(), 10),
			"lastLoginAt":      strconv.FormatInt(time.Now().UnixMilli(), 10),
			"providerUserInfo": []map[string]any{{"providerId": u.providerID}},
		}}})

	case "/v1/accounts:update":
		uid, ok := f.idTokens[str("idToken")]
		if !ok {
			f.fail(w, "INVALID_ID_TOKEN")
			return
		}
		u := f.userByUID(uid)
		u.displayName = str("displayName")
		u.photoURL = str("photoUrl")
		f.reply(w, map[string]any{"localId": u.uid, "email": u.email, "displayName": u.displayName, "photoUrl": u.photoURL})

	case "/v1/accounts:sendOobCode":
		if _, ok := f.users[str("email")]; !ok {
			f.fail(w, "EMAIL_NOT_FOUND")
			return
		}
		f.resetEmails = append(f.resetEmails, str("email"))
		f.reply(w, map[string]any{"email": str("email")})

	default:
		f.t.Errorf("unexpected toolkit path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeToolkit) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls++
	if err := r.ParseForm(); err != nil {
		f.fail(w, "INVALID_ARGUMENT")
		return
	}
	if f.revoked {
		f.fail(w, "TOKEN_EXPIRED")
		return
	}
	uid, ok := f.refreshTokens[r.PostForm.Get("refresh_token")]
	if !ok || r.PostForm.Get("grant_type") != "refresh_token" {
		f.fail(w, "INVALID_REFRESH_TOKEN")
		return
	}
	idToken, refreshToken := f.issue(f.userByUID(uid))
	f.reply(w, map[string]string{
		"id_token":      idToken,
		"refresh_token": refreshToken,
		"expires_in":    "3600",
		"user_id":       uid,
	})
}

func (f *fakeToolkit) resets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resetEmails...)
}

func (f *fakeToolkit) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeToolkit) revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = true
}
