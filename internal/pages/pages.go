// Package pages holds the page-level controllers of the client. Each one
// loads what its page shows, applies the page's own rule checks, calls the
// backend and turns failures into the sentence the user sees.
package pages

import (
	"context"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/services/backend"
)

const (
	// PlaceholderImage is used when a provider leaves the image URL empty
	PlaceholderImage = "https://via.placeholder.com/400x300"
	// DefaultProviderName is shown for providers without a display name
	DefaultProviderName = "Service Provider"
	// AnonymousReviewer is the review author for users without a display name
	AnonymousReviewer = "Anonymous"
	// HomeServiceLimit is how many services the home page features
	HomeServiceLimit = 6
	// DefaultRating is the pre-selected star rating of a new review
	DefaultRating = 5
)

// Backend is the slice of the REST client the pages use.
type Backend interface {
	ListServices(ctx context.Context, limit int) ([]models.Service, error)
	GetService(ctx context.Context, id string) (*models.Service, error)
	CreateService(ctx context.Context, svc models.Service) (*backend.MutationResult, error)
	UpdateService(ctx context.Context, id, email string, svc models.Service) (*backend.MutationResult, error)
	DeleteService(ctx context.Context, id, email string) (*backend.MutationResult, error)
	MyServices(ctx context.Context, email string) ([]models.Service, error)
	Categories(ctx context.Context) ([]string, error)
	Bookings(ctx context.Context, email string) ([]models.Booking, error)
	CreateBooking(ctx context.Context, b models.Booking) (*backend.MutationResult, error)
	CancelBooking(ctx context.Context, id, email string) (*backend.MutationResult, error)
	AddReview(ctx context.Context, serviceID string, r models.Review) (*backend.MutationResult, error)
}

// Session is the slice of the session manager the pages use.
type Session interface {
	Current() models.Session
	CreateAccount(ctx context.Context, email, password string) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	SignInWithFederatedProvider(ctx context.Context) (*models.Identity, error)
	UpdateProfile(ctx context.Context, displayName, photoURL string) error
	RequestPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}

// Pages bundles the controllers over one backend and one session.
type Pages struct {
	backend Backend
	session Session
	logger  *zap.Logger
}

// New creates the page controllers
func New(b Backend, s Session, logger *zap.Logger) *Pages {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pages{backend: b, session: s, logger: logger}
}

// user returns the signed-in identity or ErrLoginRequired.
func (p *Pages) user() (*models.Identity, error) {
	u := p.session.Current().User
	if u == nil {
		return nil, ErrLoginRequired
	}
	return u, nil
}

func providerName(u *models.Identity) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return DefaultProviderName
}

func reviewerName(u *models.Identity) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return AnonymousReviewer
}
