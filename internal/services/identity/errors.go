package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical error codes. Pages map these to user messages.
const (
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeWeakPassword         = "auth/weak-password"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeUserDisabled         = "auth/user-disabled"
	CodePopupClosedByUser    = "auth/popup-closed-by-user"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeRequiresRecentLogin  = "auth/requires-recent-login"
	CodeInvalidUserToken     = "auth/invalid-user-token"
	CodeNoCurrentUser        = "auth/no-current-user"
	CodeInternalError        = "auth/internal-error"
)

// ProviderError is a rejected identity-provider operation.
type ProviderError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches another *ProviderError with the same code, so callers can write
// errors.Is(err, &identity.ProviderError{Code: identity.CodeWrongPassword}).
func (e *ProviderError) Is(target error) bool {
	var t *ProviderError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// CodeOf returns the canonical code carried by err, or "".
func CodeOf(err error) string {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ""
}

// restCodes maps Identity Toolkit error messages to canonical codes.
var restCodes = map[string]string{
	"EMAIL_EXISTS":                   CodeEmailAlreadyInUse,
	"INVALID_EMAIL":                  CodeInvalidEmail,
	"MISSING_EMAIL":                  CodeInvalidEmail,
	"WEAK_PASSWORD":                  CodeWeakPassword,
	"MISSING_PASSWORD":               CodeWrongPassword,
	"EMAIL_NOT_FOUND":                CodeUserNotFound,
	"USER_NOT_FOUND":                 CodeUserNotFound,
	"INVALID_PASSWORD":               CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":      CodeInvalidCredential,
	"INVALID_IDP_RESPONSE":           CodeInvalidCredential,
	"USER_DISABLED":                  CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    CodeTooManyRequests,
	"OPERATION_NOT_ALLOWED":          CodeOperationNotAllowed,
	"PASSWORD_LOGIN_DISABLED":        CodeOperationNotAllowed,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": CodeRequiresRecentLogin,
	"TOKEN_EXPIRED":                  CodeInvalidUserToken,
	"INVALID_ID_TOKEN":               CodeInvalidUserToken,
	"INVALID_REFRESH_TOKEN":          CodeInvalidUserToken,
	"USER_DISABLED_OR_DELETED":       CodeInvalidUserToken,
}

// restError converts an Identity Toolkit error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func restError(op, message string) *ProviderError {
	key, detail, _ := strings.Cut(message, " : ")
	key = strings.TrimSpace(key)

	code, ok := restCodes[key]
	if !ok {
		code = CodeInternalError
	}
	if detail == "" {
		detail = key
	}
	return &ProviderError{Op: op, Code: code, Message: strings.TrimSpace(detail)}
}

func networkError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Code: CodeNetworkRequestFailed, Message: "network request failed", Err: err}
}
