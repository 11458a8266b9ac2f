package pages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/validation"
)

// Register creates an account and then sets its display name and photo.
func (p *Pages) Register(ctx context.Context, form validation.RegisterForm) (*models.Identity, error) {
	form.Name = validation.SanitizeText(form.Name)
	if err := validation.Validate.Struct(form); err != nil {
		return nil, fail(err, "Please fill in all required fields")
	}

	user, err := p.session.CreateAccount(ctx, form.Email, form.Password)
	if err != nil {
		p.logger.Info("register_failed", zap.String("email", logger.MaskEmail(form.Email)), zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Failed to register. Please try again.")
	}
	if err := p.session.UpdateProfile(ctx, form.Name, form.PhotoURL); err != nil {
		p.logger.Warn("register_profile_failed", zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Failed to register. Please try again.")
	}
	return user.WithProfile(form.Name, form.PhotoURL), nil
}

// Login signs in with email and password.
func (p *Pages) Login(ctx context.Context, form validation.LoginForm) (*models.Identity, error) {
	if err := validation.Validate.Struct(form); err != nil {
		msg := validation.Message(err)
		if form.Email == "" || form.Password == "" {
			msg = "Please fill in all fields"
		}
		return nil, &Failure{Message: msg, Err: err}
	}

	user, err := p.session.SignIn(ctx, form.Email, form.Password)
	if err != nil {
		return nil, fail(err, "Failed to login. Please try again.")
	}
	return user, nil
}

// LoginWithGoogle runs the federated consent flow.
func (p *Pages) LoginWithGoogle(ctx context.Context) (*models.Identity, error) {
	user, err := p.session.SignInWithFederatedProvider(ctx)
	if err != nil {
		return nil, &Failure{Message: "Failed to login with Google", Err: err}
	}
	return user, nil
}

// ForgotPassword sends a reset link to email.
func (p *Pages) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return fail(ErrEmailRequired, "")
	}
	if err := p.session.RequestPasswordReset(ctx, email); err != nil {
		return &Failure{Message: "Failed to send reset email", Err: err}
	}
	return nil
}

// Logout signs the user out.
func (p *Pages) Logout(ctx context.Context) error {
	if err := p.session.SignOut(ctx); err != nil {
		return &Failure{Message: "Failed to logout", Err: err}
	}
	return nil
}

// ProfileView is what the profile page shows.
type ProfileView struct {
	DisplayName   string
	Email         string
	PhotoURL      string
	EmailVerified bool
	MemberSince   time.Time
	LastLogin     *time.Time
}

// Profile describes the signed-in user. LastLogin prefers the time recorded
// by this client over the provider's.
func (p *Pages) Profile() (*ProfileView, error) {
	s := p.session.Current()
	if s.User == nil {
		return nil, fail(ErrLoginRequired, "")
	}
	v := &ProfileView{
		DisplayName:   s.User.DisplayName,
		Email:         s.User.Email,
		PhotoURL:      s.User.PhotoURL,
		EmailVerified: s.User.EmailVerified,
		MemberSince:   s.User.CreationTime,
		LastLogin:     s.User.LastSignInTime,
	}
	if s.LastLoginTime != nil {
		v.LastLogin = s.LastLoginTime
	}
	return v, nil
}

// UpdateProfile changes the display name and photo URL.
func (p *Pages) UpdateProfile(ctx context.Context, form validation.ProfileForm) error {
	if _, err := p.user(); err != nil {
		return fail(err, "")
	}
	form.DisplayName = validation.SanitizeText(form.DisplayName)
	if err := validation.Validate.Struct(form); err != nil {
		return fail(err, "Name cannot be empty")
	}
	if err := p.session.UpdateProfile(ctx, form.DisplayName, form.PhotoURL); err != nil {
		return &Failure{Message: "Failed to update profile", Err: err}
	}
	return nil
}
