package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate

	// Now is the clock booking dates are checked against. Tests replace it.
	Now = time.Now
)

// BookingDateLayout is the format of a booking date ("2026-10-19").
const BookingDateLayout = "2006-01-02"

func init() {
	Validate = validator.New()

	// Register custom validators
	// These should never fail in normal operation, but panic loudly if they do
	if err := Validate.RegisterValidation("mixed_case", validateMixedCase); err != nil {
		panic(fmt.Sprintf("failed to register mixed_case validator: %v", err))
	}
	if err := Validate.RegisterValidation("booking_date", validateBookingDate); err != nil {
		panic(fmt.Sprintf("failed to register booking_date validator: %v", err))
	}
	if err := Validate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(fmt.Sprintf("failed to register notblank validator: %v", err))
	}
}

// validateMixedCase requires at least one upper-case and one lower-case letter
func validateMixedCase(fl validator.FieldLevel) bool {
	var upper, lower bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return upper && lower
}

// validateBookingDate accepts a calendar date that is today or later
func validateBookingDate(fl validator.FieldLevel) bool {
	d, err := time.ParseInLocation(BookingDateLayout, fl.Field().String(), time.Local)
	if err != nil {
		return false
	}
	now := Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return !d.Before(today)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// Message turns a validation failure into the sentence shown to the user.
// Only the first failing field is reported, the way a form shows one toast.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		if err == nil {
			return ""
		}
		return err.Error()
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		if fe.Field() == "DisplayName" {
			return "Name cannot be empty"
		}
		if fe.Field() == "Comment" {
			return "Please write a review comment"
		}
		if fe.Field() == "BookingDate" {
			return "Please select a booking date"
		}
		return "Please fill in all required fields"
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Field() == "Password" {
			return fmt.Sprintf("Password must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "mixed_case":
		return "Password must contain uppercase and lowercase letters"
	case "eqfield":
		return "Passwords do not match"
	case "gt", "gte":
		if fe.Field() == "Price" {
			return "Please enter a valid price"
		}
		return fmt.Sprintf("%s is out of range", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "booking_date":
		return "Please select a booking date from today onwards"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
