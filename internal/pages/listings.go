package pages

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/catalog"
	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/validation"
)

// MyServicesView is a provider's own listings.
type MyServicesView struct {
	Email    string
	Services []models.Service
	Stats    catalog.ProviderSummary
}

// MyServices loads the signed-in provider's listings.
func (p *Pages) MyServices(ctx context.Context) (*MyServicesView, error) {
	user, err := p.user()
	if err != nil {
		return nil, fail(err, "")
	}
	services, err := p.backend.MyServices(ctx, user.Email)
	if err != nil {
		p.logger.Warn("my_services_fetch_failed", zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Failed to fetch your services")
	}
	v := &MyServicesView{Email: user.Email, Services: services}
	v.Stats = catalog.ProviderStats(v.Services)
	return v, nil
}

// DeleteService deletes one listing. The listing leaves v only once the
// backend confirms.
func (p *Pages) DeleteService(ctx context.Context, v *MyServicesView, id string) error {
	if _, err := p.backend.DeleteService(ctx, id, v.Email); err != nil {
		p.logger.Warn("service_delete_failed", zap.String("service_id", id), zap.String("error", logger.SanitizeError(err)))
		return fail(err, "Failed to delete service")
	}

	kept := make([]models.Service, 0, len(v.Services))
	for _, s := range v.Services {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	v.Services = kept
	v.Stats = catalog.ProviderStats(kept)
	p.logger.Info("service_deleted", zap.String("service_id", id))
	return nil
}

// serviceFromForm validates form and builds the record sent to the backend.
// The provider is always the signed-in user.
func serviceFromForm(form validation.ServiceForm, user *models.Identity) (models.Service, error) {
	form = form.Sanitize()
	if err := validation.Validate.Struct(form); err != nil {
		return models.Service{}, err
	}
	price, ok := form.ParsedPrice()
	if !ok {
		return models.Service{}, ErrInvalidPrice
	}
	image := form.ImageURL
	if image == "" {
		image = PlaceholderImage
	}
	return models.Service{
		ServiceName:   form.ServiceName,
		Category:      form.Category,
		Price:         price,
		Description:   form.Description,
		ImageURL:      image,
		ProviderName:  providerName(user),
		ProviderEmail: user.Email,
	}, nil
}

// AddService creates a listing owned by the signed-in user and returns its id.
func (p *Pages) AddService(ctx context.Context, form validation.ServiceForm) (string, error) {
	user, err := p.user()
	if err != nil {
		return "", fail(err, "")
	}
	svc, err := serviceFromForm(form, user)
	if err != nil {
		return "", fail(err, "Please fill in all required fields")
	}

	res, err := p.backend.CreateService(ctx, svc)
	if err != nil {
		p.logger.Warn("service_create_failed", zap.String("error", logger.SanitizeError(err)))
		return "", failServer(err, "Failed to add service. Please try again.")
	}
	id := ""
	if res != nil {
		id = res.InsertedID
	}
	p.logger.Info("service_created", zap.String("service_id", id), zap.String("category", svc.Category))
	return id, nil
}

// EditService loads a listing for editing. Only its provider may edit it.
func (p *Pages) EditService(ctx context.Context, id string) (validation.ServiceForm, error) {
	user, err := p.user()
	if err != nil {
		return validation.ServiceForm{}, fail(err, "")
	}
	svc, err := p.backend.GetService(ctx, id)
	if err != nil {
		return validation.ServiceForm{}, fail(err, "Failed to load service details")
	}
	if !svc.OwnedBy(user.Email) {
		return validation.ServiceForm{}, fail(ErrNotOwner, "")
	}
	return formFromService(svc), nil
}

func formFromService(svc *models.Service) validation.ServiceForm {
	return validation.ServiceForm{
		ServiceName: svc.ServiceName,
		Category:    svc.Category,
		Price:       formatPrice(svc.Price),
		Description: svc.Description,
		ImageURL:    svc.ImageURL,
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// UpdateService replaces a listing the signed-in user owns.
func (p *Pages) UpdateService(ctx context.Context, id string, form validation.ServiceForm) error {
	user, err := p.user()
	if err != nil {
		return fail(err, "")
	}
	current, err := p.backend.GetService(ctx, id)
	if err != nil {
		return fail(err, "Failed to load service details")
	}
	if !current.OwnedBy(user.Email) {
		return fail(ErrNotOwner, "")
	}

	svc, err := serviceFromForm(form, user)
	if err != nil {
		return fail(err, "Please fill in all required fields")
	}
	if _, err := p.backend.UpdateService(ctx, id, user.Email, svc); err != nil {
		p.logger.Warn("service_update_failed", zap.String("service_id", id), zap.String("error", logger.SanitizeError(err)))
		return failServer(err, "Failed to update service. Please try again.")
	}
	p.logger.Info("service_updated", zap.String("service_id", id))
	return nil
}
