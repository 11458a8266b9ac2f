package pages

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/benvon/homehero/internal/services/backend"
	"github.com/benvon/homehero/internal/services/identity"
	"github.com/benvon/homehero/internal/session"
	"github.com/benvon/homehero/internal/validation"
)

// Page rule violations
var (
	ErrLoginRequired = errors.New("login required")
	ErrOwnService    = errors.New("cannot book own service")
	ErrNotOwner      = errors.New("service belongs to another provider")
	ErrEmailRequired = errors.New("email required")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrNotFound      = errors.New("not found")
)

const (
	genericMessage = "Something went wrong. Please try again."
	// maxServerMessage caps backend text shown to the user
	maxServerMessage = 200
)

var sentinelMessages = []struct {
	err error
	msg string
}{
	{ErrLoginRequired, "Please login to continue"},
	{session.ErrNotSignedIn, "Please login to continue"},
	{ErrOwnService, "You cannot book your own service"},
	{ErrNotOwner, "You can only edit your own services"},
	{ErrEmailRequired, "Please enter your email first"},
	{ErrInvalidPrice, "Please enter a valid price"},
	{ErrNotFound, "Service not found"},
	{backend.ErrRateLimited, "Too many requests. Please wait a moment and try again."},
}

// providerMessages are the sign-in and registration failures a user can act on.
var providerMessages = map[string]string{
	identity.CodeEmailAlreadyInUse:    "This email is already registered",
	identity.CodeInvalidEmail:         "Invalid email address",
	identity.CodeWeakPassword:         "Password is too weak",
	identity.CodeUserNotFound:         "No account found with this email",
	identity.CodeWrongPassword:        "Incorrect password",
	identity.CodeInvalidCredential:    "Incorrect email or password",
	identity.CodeUserDisabled:         "This account has been disabled",
	identity.CodeTooManyRequests:      "Too many attempts. Please try again later.",
	identity.CodeNetworkRequestFailed: "Network error. Please check your connection.",
}

// Failure is an error a page reports to the user. Message is the text shown.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// Message returns the sentence to show for err. Errors that did not come
// from a page get the generic message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return describe(err, genericMessage, true)
}

// fail wraps err with the page's fallback message. Backend explanations are
// not shown.
func fail(err error, fallback string) error {
	return &Failure{Message: describe(err, fallback, false), Err: err}
}

// failServer is fail for actions whose backend explanation the user should see.
func failServer(err error, fallback string) error {
	return &Failure{Message: describe(err, fallback, true), Err: err}
}

func describe(err error, fallback string, serverMessage bool) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return validation.Message(err)
	}
	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}
	if code := identity.CodeOf(err); code != "" {
		if msg, ok := providerMessages[code]; ok {
			return msg
		}
		return fallback
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	if serverMessage {
		var reqErr *backend.RequestError
		if errors.As(err, &reqErr) && reqErr.Message != "" {
			return truncate(reqErr.Message)
		}
	}
	return fallback
}

func truncate(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= maxServerMessage {
		return string(r)
	}
	return string(r[:maxServerMessage]) + "..."
}
