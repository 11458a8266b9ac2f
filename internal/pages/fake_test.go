package pages

import (
	"context"
	"sync"

	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/services/backend"
)

// fakeBackend records writes and answers reads from its fields. errs makes
// one operation fail.
type fakeBackend struct {
	mu sync.Mutex

	services   []models.Service
	categories []string
	bookings   []models.Booking
	errs       map[string]error

	limits   []int
	created  []models.Service
	updated  []models.Service
	booked   []models.Booking
	reviews  []models.Review
	deleted  []string
	canceled []string
}

func (f *fakeBackend) fail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *fakeBackend) ListServices(_ context.Context, limit int) ([]models.Service, error) {
	if err := f.fail("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	out := f.services
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]models.Service(nil), out...), nil
}

func (f *fakeBackend) GetService(_ context.Context, id string) (*models.Service, error) {
	if err := f.fail("get"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.services {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, &backend.RequestError{Op: "get_service", StatusCode: 404, Message: "Service not found"}
}

func (f *fakeBackend) CreateService(_ context.Context, svc models.Service) (*backend.MutationResult, error) {
	if err := f.fail("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, svc)
	return &backend.MutationResult{Acknowledged: true, InsertedID: "new-service"}, nil
}

func (f *fakeBackend) UpdateService(_ context.Context, _, _ string, svc models.Service) (*backend.MutationResult, error) {
	if err := f.fail("update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, svc)
	return &backend.MutationResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeBackend) DeleteService(_ context.Context, id, _ string) (*backend.MutationResult, error) {
	if err := f.fail("delete"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return &backend.MutationResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (f *fakeBackend) MyServices(_ context.Context, email string) ([]models.Service, error) {
	if err := f.fail("mine"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Service
	for _, s := range f.services {
		if s.ProviderEmail == email {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeBackend) Categories(context.Context) ([]string, error) {
	if err := f.fail("categories"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.categories...), nil
}

func (f *fakeBackend) Bookings(context.Context, string) ([]models.Booking, error) {
	if err := f.fail("bookings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Booking(nil), f.bookings...), nil
}

func (f *fakeBackend) CreateBooking(_ context.Context, b models.Booking) (*backend.MutationResult, error) {
	if err := f.fail("book"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = append(f.booked, b)
	return &backend.MutationResult{Acknowledged: true, InsertedID: "new-booking"}, nil
}

func (f *fakeBackend) CancelBooking(_ context.Context, id, _ string) (*backend.MutationResult, error) {
	if err := f.fail("cancel"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, id)
	return &backend.MutationResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (f *fakeBackend) AddReview(_ context.Context, _ string, r models.Review) (*backend.MutationResult, error) {
	if err := f.fail("review"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, r)
	return &backend.MutationResult{Acknowledged: true, ModifiedCount: 1}, nil
}

// fakeSession signs in whoever it is told to.
type fakeSession struct {
	state   models.Session
	account *models.Identity
	err     error
	resets  []string
}

func (s *fakeSession) Current() models.Session { return s.state.Clone() }

func (s *fakeSession) signIn() (*models.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.state.User = s.account.Clone()
	return s.account.Clone(), nil
}

func (s *fakeSession) CreateAccount(context.Context, string, string) (*models.Identity, error) {
	return s.signIn()
}

func (s *fakeSession) SignIn(context.Context, string, string) (*models.Identity, error) {
	return s.signIn()
}

func (s *fakeSession) SignInWithFederatedProvider(context.Context) (*models.Identity, error) {
	return s.signIn()
}

func (s *fakeSession) UpdateProfile(_ context.Context, name, photo string) error {
	if s.err != nil {
		return s.err
	}
	s.state.User = s.state.User.WithProfile(name, photo)
	return nil
}

func (s *fakeSession) RequestPasswordReset(_ context.Context, email string) error {
	if s.err != nil {
		return s.err
	}
	s.resets = append(s.resets, email)
	return nil
}

func (s *fakeSession) SignOut(context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.state.User = nil
	return nil
}

func signedIn(u *models.Identity) *fakeSession {
	return &fakeSession{state: models.Session{User: u}, account: u}
}

func bob() *models.Identity {
	return &models.Identity{UID: "uid-bob", Email: "bob@example.com", DisplayName: "Bob"}
}

func carol() *models.Identity {
	return &models.Identity{UID: "uid-carol", Email: "carol@example.com"}
}

func sampleServices() []models.Service {
	return []models.Service{
		{ID: "s1", ServiceName: "House Cleaning", Category: "Cleaning", Price: 50, Description: "Deep clean", ProviderName: "Bob", ProviderEmail: "bob@example.com", ImageURL: "https://img.example.com/s1.png"},
		{ID: "s2", ServiceName: "Pipe Repair", Category: "Plumbing", Price: 80, Description: "Leaks fixed", ProviderName: "Carol", ProviderEmail: "carol@example.com"},
		{ID: "s3", ServiceName: "Drain Unclogging", Category: "Plumbing", Price: 40, Description: "Fast", ProviderName: "Bob", ProviderEmail: "bob@example.com"},
	}
}
