package session

import (
	"context"

	"github.com/benvon/homehero/internal/models"
)

// Provider is the identity provider the manager drives.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignInWithFederated(ctx context.Context) (*models.Identity, error)
	UpdateProfile(ctx context.Context, displayName, photoURL string) error
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
	// OnAuthStateChanged reports the current sign-in state, then every change.
	// Calls are sequential and in order.
	OnAuthStateChanged(fn func(*models.Identity)) (unsubscribe func())
}

// TokenIssuer exchanges a signed-in identity's email for a backend token.
type TokenIssuer interface {
	IssueToken(ctx context.Context, email string) (string, error)
}
