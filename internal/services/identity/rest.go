package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/telemetry"
)

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
}

type updateRequest struct {
	IDToken           string   `json:"idToken"`
	DisplayName       string   `json:"displayName,omitempty"`
	PhotoURL          string   `json:"photoUrl,omitempty"`
	DeleteAttribute   []string `json:"deleteAttribute,omitempty"`
	ReturnSecureToken bool     `json:"returnSecureToken"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

// authResponse covers signUp, signInWithPassword, signInWithIdp and update.
type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type lookupResponse struct {
	Users []accountInfo `json:"users"`
}

type accountInfo struct {
	LocalID          string `json:"localId"`
	Email            string `json:"email"`
	EmailVerified    bool   `json:"emailVerified"`
	DisplayName      string `json:"displayName"`
	PhotoURL         string `json:"photoUrl"`
	CreatedAt        string `json:"createdAt"`
	LastLoginAt      string `json:"lastLoginAt"`
	ProviderUserInfo []struct {
		ProviderID string `json:"providerId"`
	} `json:"providerUserInfo"`
}

func (a accountInfo) identity() *models.Identity {
	id := &models.Identity{
		UID:           a.LocalID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		PhotoURL:      a.PhotoURL,
		EmailVerified: a.EmailVerified,
		ProviderID:    "password",
		CreationTime:  parseMillis(a.CreatedAt),
	}
	if len(a.ProviderUserInfo) > 0 && a.ProviderUserInfo[0].ProviderID != "" {
		id.ProviderID = a.ProviderUserInfo[0].ProviderID
	}
	if t := parseMillis(a.LastLoginAt); !t.IsZero() {
		id.LastSignInTime = &t
	}
	return id
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseMillis parses the millisecond epoch strings the API uses for times.
func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// parseExpiresIn parses a seconds count, defaulting to one hour.
func parseExpiresIn(s string) time.Duration {
	secs, err := strconv.Atoi(s)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

type restClient struct {
	apiKey         string
	identityURL    string
	secureTokenURL string
	httpClient     *http.Client
	logger         *zap.Logger
}

func newRESTClient(cfg Config) *restClient {
	return &restClient{
		apiKey:         cfg.APIKey,
		identityURL:    cfg.IdentityURL,
		secureTokenURL: cfg.SecureTokenURL,
		httpClient:     cfg.HTTPClient,
		logger:         cfg.Logger,
	}
}

func (r *restClient) endpoint(base, method string) string {
	return base + "/" + method + "?key=" + url.QueryEscape(r.apiKey)
}

// post sends a JSON request to an Identity Toolkit method.
func (r *restClient) post(ctx context.Context, op, method string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Op: op, Code: CodeInternalError, Message: "failed to encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(r.identityURL, method), bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Op: op, Code: CodeInternalError, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(ctx, op, method, req, out)
}

// refresh trades a refresh token for a new ID token.
func (r *restClient) refresh(ctx context.Context, op, refreshToken string) (*refreshResponse, error) {
	form := url.Values{
		"grant_type":    []string{"refresh_token"},
		"refresh_token": []string{refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(r.secureTokenURL, "token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Op: op, Code: CodeInternalError, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := r.do(ctx, op, "token", req, &out); err != nil {
		return nil, err
	}
	if out.IDToken == "" {
		return nil, &ProviderError{Op: op, Code: CodeInvalidUserToken, Message: "refresh returned no token"}
	}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return &out, nil
}

func (r *restClient) do(ctx context.Context, op, method string, req *http.Request, out any) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "identity."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("identity.method", method)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, CodeOf(err))
		}
		span.End()
	}()
	req = req.WithContext(ctx)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("identity_request_failed", zap.String("op", op), zap.String("error", logger.SanitizeError(err)))
		return networkError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return networkError(op, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			pErr := restError(op, apiErr.Error.Message)
			r.logger.Debug("identity_request_rejected",
				zap.String("op", op),
				zap.Int("status", resp.StatusCode),
				zap.String("code", pErr.Code),
			)
			return pErr
		}
		return &ProviderError{Op: op, Code: CodeInternalError, Message: fmt.Sprintf("provider returned status %d", resp.StatusCode)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &ProviderError{Op: op, Code: CodeInternalError, Message: "failed to decode response", Err: err}
		}
	}
	return nil
}
