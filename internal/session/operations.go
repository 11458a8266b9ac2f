package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/services/backend"
	"github.com/benvon/homehero/internal/storage"
)

// CreateAccount registers a new identity. The provider signs it in, which
// arrives as an auth-state event.
func (m *Manager) CreateAccount(ctx context.Context, email, password string) (*models.Identity, error) {
	m.setLoading(true)
	user, err := m.provider.CreateAccount(ctx, email, password)
	if err != nil {
		m.operationFailed()
		return nil, err
	}
	return user, nil
}

// SignIn authenticates with email and password and records the login time.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	m.setLoading(true)
	user, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		m.operationFailed()
		m.logger.Info("sign_in_failed", zap.String("email", logger.MaskEmail(email)), zap.String("error", logger.SanitizeError(err)))
		return nil, err
	}
	m.recordLogin()
	return user, nil
}

// SignInWithFederatedProvider runs the provider's interactive consent flow
// and records the login time.
func (m *Manager) SignInWithFederatedProvider(ctx context.Context) (*models.Identity, error) {
	m.setLoading(true)
	user, err := m.provider.SignInWithFederated(ctx)
	if err != nil {
		m.operationFailed()
		return nil, err
	}
	m.recordLogin()
	return user, nil
}

// UpdateProfile pushes the new display name and photo URL to the provider,
// then merges them into the local user.
func (m *Manager) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	if err := m.provider.UpdateProfile(ctx, displayName, photoURL); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.User != nil {
		m.state.User = m.state.User.WithProfile(displayName, photoURL)
		m.publishLocked()
	}
	return nil
}

// RequestPasswordReset asks the provider to email a reset link.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	return m.provider.SendPasswordReset(ctx, email)
}

// SignOut ends the provider session and removes the persisted token.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	m.setLoading(true)
	if err := m.provider.SignOut(ctx); err != nil {
		m.operationFailed()
		return err
	}

	m.clearTokenAfterSignOut(ctx, gen)
	return nil
}

// clearTokenAfterSignOut abandons the exchange for the old identity and
// removes its token, unless a sign-in event arrived after the provider's
// sign-out. That newer event owns the token.
func (m *Manager) clearTokenAfterSignOut(ctx context.Context, gen uint64) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	m.mu.Lock()
	if m.generation != gen && m.state.User != nil {
		m.mu.Unlock()
		return
	}
	m.generation++
	m.mu.Unlock()

	if err := m.store.Delete(ctx, storage.KeyAccessToken); err != nil {
		m.logger.Warn("token_remove_failed", zap.String("error", logger.SanitizeError(err)))
	}
}

// AccessToken returns the persisted backend token, or "" when there is none
// or it has expired.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	token, ok, err := m.store.Get(ctx, storage.KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	if !ok || backend.TokenExpired(token, m.now(), tokenSkew) {
		return "", nil
	}
	return token, nil
}

// EnsureToken exchanges the signed-in user's email for a fresh backend token
// and persists it. It is the re-sync path after a failed exchange.
func (m *Manager) EnsureToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	user := m.state.User.Clone()
	gen := m.generation
	m.mu.Unlock()

	if user == nil {
		return "", ErrNotSignedIn
	}

	token, err := m.issuer.IssueToken(ctx, user.Email)
	if err != nil {
		m.logger.Warn("token_resync_failed",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.String("error", logger.SanitizeError(err)),
		)
		return "", err
	}

	if !m.persistToken(ctx, gen, token) {
		// Signed out (or switched user) while the exchange was in flight
		if !m.Current().SignedIn() {
			return "", ErrNotSignedIn
		}
		return "", fmt.Errorf("auth state changed during token exchange: %w", ErrNotSignedIn)
	}
	m.logger.Debug("token_resynced", zap.String("email", logger.MaskEmail(user.Email)))
	return token, nil
}
