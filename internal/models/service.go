package models

import "time"

// Service is a listing offered by a provider. The backend owns it; the client
// only reads it and, for the owner, submits full replacements.
type Service struct {
	ID            string    `json:"_id,omitempty"`
	ServiceName   string    `json:"serviceName" validate:"required,max=200"`
	Category      string    `json:"category" validate:"required"`
	Price         float64   `json:"price" validate:"gt=0"`
	Description   string    `json:"description" validate:"required,max=5000"`
	ImageURL      string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	ProviderName  string    `json:"providerName"`
	ProviderEmail string    `json:"providerEmail" validate:"required,email"`
	AverageRating *float64  `json:"averageRating,omitempty"`
	Reviews       []Review  `json:"reviews,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// OwnedBy reports whether email is the service's provider.
func (s *Service) OwnedBy(email string) bool {
	return email != "" && s.ProviderEmail == email
}

// Review is a rating left by a customer on a service.
type Review struct {
	UserEmail string    `json:"userEmail" validate:"required,email"`
	UserName  string    `json:"userName,omitempty"`
	Rating    int       `json:"rating" validate:"min=1,max=5"`
	Comment   string    `json:"comment" validate:"required,max=2000"`
	Date      time.Time `json:"date,omitzero"`
}
