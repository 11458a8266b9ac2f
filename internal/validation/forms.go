package validation

import (
	"strconv"
	"strings"
)

// RegisterForm is the sign-up form
type RegisterForm struct {
	Name            string `validate:"required,notblank,max=100"`
	Email           string `validate:"required,email"`
	PhotoURL        string `validate:"omitempty,url"`
	Password        string `validate:"required,min=6,mixed_case"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// LoginForm is the email/password sign-in form
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// ProfileForm is the profile edit form
type ProfileForm struct {
	DisplayName string `validate:"required,notblank,max=100"`
	PhotoURL    string `validate:"omitempty,url"`
}

// ReviewForm is the review left on a completed or pending booking
type ReviewForm struct {
	Rating  int    `validate:"min=1,max=5"`
	Comment string `validate:"required,notblank,max=2000"`
}

// BookingForm carries the date a customer picked for a booking
type BookingForm struct {
	BookingDate string `validate:"required,booking_date"`
}

// ServiceForm is the raw add/update service form. Price arrives as typed text.
type ServiceForm struct {
	ServiceName string `validate:"required,notblank,max=200"`
	Category    string `validate:"required"`
	Price       string `validate:"required"`
	Description string `validate:"required,notblank,max=5000"`
	ImageURL    string `validate:"omitempty,url"`
}

// ParsedPrice returns the form's price, or ok=false when it is not a positive number.
func (f ServiceForm) ParsedPrice() (float64, bool) {
	p, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
	if err != nil || p <= 0 {
		return 0, false
	}
	return p, true
}

// Sanitize trims and strips control characters from every free-text field.
func (f ServiceForm) Sanitize() ServiceForm {
	return ServiceForm{
		ServiceName: SanitizeText(f.ServiceName),
		Category:    SanitizeText(f.Category),
		Price:       strings.TrimSpace(f.Price),
		Description: SanitizeText(f.Description),
		ImageURL:    strings.TrimSpace(f.ImageURL),
	}
}
