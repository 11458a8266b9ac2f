package pages

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benvon/homehero/internal/catalog"
	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/services/backend"
	"github.com/benvon/homehero/internal/validation"
)

// Home returns the featured services.
func (p *Pages) Home(ctx context.Context) ([]models.Service, error) {
	services, err := p.backend.ListServices(ctx, HomeServiceLimit)
	if err != nil {
		p.logger.Warn("home_fetch_failed", zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Failed to load services")
	}
	return services, nil
}

// ServicesView is the browse page: every service, the category choices and
// the subset matching the current criteria.
type ServicesView struct {
	All        []models.Service
	Categories []string
	Criteria   catalog.Criteria
	Visible    []models.Service
}

// Apply replaces the criteria and recomputes Visible.
func (v *ServicesView) Apply(c catalog.Criteria) {
	v.Criteria = c
	v.Visible = catalog.Filter(v.All, c)
}

// Services loads the browse page. Services and categories are fetched
// concurrently; a failed category fetch falls back to the default list.
func (p *Pages) Services(ctx context.Context, c catalog.Criteria) (*ServicesView, error) {
	var (
		services   []models.Service
		categories []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		services, err = p.backend.ListServices(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = p.backend.Categories(gctx)
		if err != nil {
			p.logger.Info("categories_fetch_failed", zap.String("error", logger.SanitizeError(err)))
			categories = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		p.logger.Warn("services_fetch_failed", zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Failed to load services")
	}

	v := &ServicesView{All: services, Categories: catalog.CategoryOptions(categories)}
	v.Apply(c)
	return v, nil
}

// ServiceDetails loads one service. A missing service reports ErrNotFound.
func (p *Pages) ServiceDetails(ctx context.Context, id string) (*models.Service, error) {
	svc, err := p.backend.GetService(ctx, id)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, fail(ErrNotFound, "Service not found")
		}
		p.logger.Warn("service_fetch_failed", zap.String("service_id", id), zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Service not found")
	}
	if svc == nil || svc.ID == "" {
		return nil, fail(ErrNotFound, "Service not found")
	}
	return svc, nil
}

// Book books svc for the signed-in user on date (YYYY-MM-DD). The price is
// copied from the service.
func (p *Pages) Book(ctx context.Context, svc *models.Service, date string) (*models.Booking, error) {
	user, err := p.user()
	if err != nil {
		return nil, &Failure{Message: "Please login to book a service", Err: err}
	}
	form := validation.BookingForm{BookingDate: date}
	if err := validation.Validate.Struct(form); err != nil {
		return nil, fail(err, "Please select a booking date")
	}
	if svc.OwnedBy(user.Email) {
		return nil, fail(ErrOwnService, "")
	}

	b := models.Booking{
		ServiceID:     svc.ID,
		ServiceName:   svc.ServiceName,
		ServiceImage:  svc.ImageURL,
		UserEmail:     user.Email,
		UserName:      user.DisplayName,
		ProviderEmail: svc.ProviderEmail,
		ProviderName:  svc.ProviderName,
		Price:         svc.Price,
		BookingDate:   date,
	}
	res, err := p.backend.CreateBooking(ctx, b)
	if err != nil {
		p.logger.Warn("booking_failed", zap.String("service_id", svc.ID), zap.String("error", logger.SanitizeError(err)))
		return nil, failServer(err, "Failed to book service")
	}
	if res != nil {
		b.ID = res.InsertedID
	}
	b.Status = models.BookingStatusPending
	p.logger.Info("service_booked", zap.String("service_id", svc.ID), zap.String("booking_id", b.ID))
	return &b, nil
}
