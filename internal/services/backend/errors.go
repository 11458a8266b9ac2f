package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited indicates the client-side request budget is exhausted
	ErrRateLimited = errors.New("rate limited")
	// ErrNoTokenSource indicates an authenticated call on a client without a token source
	ErrNoTokenSource = errors.New("no token source configured")
	// ErrEmptyToken indicates the token endpoint answered without a token
	ErrEmptyToken = errors.New("token endpoint returned an empty token")
)

// RequestError is a non-2xx answer from the backend. Message is the
// backend's own explanation and is empty when the body carried none.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, msg)
}

// newRequestError takes the message from a {"message": "..."} or
// {"error": "..."} body.
func newRequestError(op string, status int, body []byte) *RequestError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = strings.TrimSpace(payload.Message)
		if msg == "" {
			msg = strings.TrimSpace(payload.Error)
		}
	}
	return &RequestError{Op: op, StatusCode: status, Message: msg}
}

// TokenExchangeError is a failed /jwt call. The user stays signed in with the
// identity provider; authenticated calls fail until a later exchange succeeds.
type TokenExchangeError struct {
	Email string
	Err   error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the bearer token.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// Retryable reports whether repeating the call could succeed: transport
// failures, rate limiting and 5xx answers. Other 4xx answers and context
// cancellation are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	if errors.Is(err, ErrEmptyToken) || errors.Is(err, ErrNoTokenSource) {
		return false
	}
	code := StatusCode(err)
	if code == 0 {
		return true
	}
	return code == http.StatusTooManyRequests || code >= 500
}
