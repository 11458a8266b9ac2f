package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/benvon/homehero/internal/middleware"
)

const (
	googleIssuer = "https://accounts.google.com"
	callbackPath = "/callback"
)

// GoogleConfig configures the browser-based Google sign-in flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// CallbackAddr is the loopback address the redirect lands on; port 0
	// picks a free port.
	CallbackAddr string
	// IssuerURL defaults to Google's issuer. Tests point it at a fake.
	IssuerURL string
	// OpenBrowser presents the consent URL to the user.
	OpenBrowser func(authURL string) error
	// Timeout bounds how long the user has to finish consent.
	Timeout time.Duration
}

type callbackResult struct {
	code string
	err  error
}

type googleFlow struct {
	cfg        GoogleConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.Mutex
	provider *gooidc.Provider
}

func newGoogleFlow(cfg GoogleConfig, httpClient *http.Client, log *zap.Logger) *googleFlow {
	if cfg.IssuerURL == "" {
		cfg.IssuerURL = googleIssuer
	}
	if cfg.CallbackAddr == "" {
		cfg.CallbackAddr = "127.0.0.1:0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = func(authURL string) error {
			_, err := fmt.Fprintf(os.Stderr, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)
			return err
		}
	}
	return &googleFlow{cfg: cfg, httpClient: httpClient, logger: log}
}

func (g *googleFlow) clientContext(ctx context.Context) context.Context {
	ctx = gooidc.ClientContext(ctx, g.httpClient)
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

// discover fetches the issuer's discovery document once.
func (g *googleFlow) discover(ctx context.Context) (*gooidc.Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.provider != nil {
		return g.provider, nil
	}
	p, err := gooidc.NewProvider(g.clientContext(ctx), g.cfg.IssuerURL)
	if err != nil {
		return nil, err
	}
	g.provider = p
	return p, nil
}

// run performs authorization code + PKCE against the issuer through a
// loopback redirect and returns the verified Google ID token.
func (g *googleFlow) run(ctx context.Context) (string, error) {
	const op = "sign_in_federated"

	provider, err := g.discover(ctx)
	if err != nil {
		return "", networkError(op, fmt.Errorf("oidc discovery: %w", err))
	}

	ln, err := net.Listen("tcp", g.cfg.CallbackAddr)
	if err != nil {
		return "", &ProviderError{Op: op, Code: CodeInternalError, Message: "failed to open callback listener", Err: err}
	}

	conf := &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		RedirectURL:  "http://" + ln.Addr().String() + callbackPath,
		Scopes:       []string{gooidc.ScopeOpenID, "email", "profile"},
		Endpoint:     provider.Endpoint(),
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	pkce := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware("homehero-oauth-callback"),
		middleware.Recover(g.logger),
		middleware.Logging(g.logger),
		middleware.SecurityHeaders(),
	)
	router.HandleFunc(callbackPath, g.callbackHandler(state, results)).Methods(http.MethodGet)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Warn("oauth_callback_server_failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(pkce),
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	if err := g.cfg.OpenBrowser(authURL); err != nil {
		return "", &ProviderError{Op: op, Code: CodePopupClosedByUser, Message: "could not open the sign-in page", Err: err}
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var res callbackResult
	select {
	case <-waitCtx.Done():
		return "", &ProviderError{Op: op, Code: CodePopupClosedByUser, Message: "sign-in was not completed", Err: waitCtx.Err()}
	case res = <-results:
	}
	if res.err != nil {
		return "", res.err
	}

	octx := g.clientContext(ctx)
	token, err := conf.Exchange(octx, res.code, oauth2.VerifierOption(pkce))
	if err != nil {
		return "", &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "authorization code exchange failed", Err: err}
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "no id_token in token response"}
	}

	idToken, err := provider.Verifier(&gooidc.Config{ClientID: g.cfg.ClientID}).Verify(octx, rawIDToken)
	if err != nil {
		return "", &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "Google ID token failed verification", Err: err}
	}
	if idToken.Nonce != nonce {
		return "", &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "nonce mismatch"}
	}

	return rawIDToken, nil
}

func (g *googleFlow) callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	const op = "sign_in_federated"
	deliver := func(r callbackResult) {
		select {
		case results <- r:
		default:
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		if e := q.Get("error"); e != "" {
			code := CodeInvalidCredential
			if e == "access_denied" {
				code = CodePopupClosedByUser
			}
			deliver(callbackResult{err: &ProviderError{Op: op, Code: code, Message: q.Get("error_description")}})
			writeCallbackPage(w, "Sign-in was cancelled. You can close this window.")
			return
		}

		code := q.Get("code")
		if code == "" {
			deliver(callbackResult{err: &ProviderError{Op: op, Code: CodeInvalidCredential, Message: "callback carried no code"}})
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		deliver(callbackResult{code: code})
		writeCallbackPage(w, "Signed in to HomeHero. You can close this window.")
	}
}

func writeCallbackPage(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, msg)
}
