package pages

import (
	"context"

	"go.uber.org/zap"

	"github.com/benvon/homehero/internal/catalog"
	"github.com/benvon/homehero/internal/logger"
	"github.com/benvon/homehero/internal/models"
	"github.com/benvon/homehero/internal/validation"
)

// MyBookingsView is a customer's bookings.
type MyBookingsView struct {
	Email    string
	Bookings []models.Booking
	Stats    catalog.BookingSummary
}

func (v *MyBookingsView) find(id string) (int, bool) {
	for i := range v.Bookings {
		if v.Bookings[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// MyBookings loads the signed-in user's bookings.
func (p *Pages) MyBookings(ctx context.Context) (*MyBookingsView, error) {
	user, err := p.user()
	if err != nil {
		return nil, fail(err, "")
	}
	bookings, err := p.backend.Bookings(ctx, user.Email)
	if err != nil {
		p.logger.Warn("bookings_fetch_failed", zap.String("error", logger.SanitizeError(err)))
		return nil, fail(err, "Failed to fetch your bookings")
	}
	v := &MyBookingsView{Email: user.Email, Bookings: bookings}
	v.Stats = catalog.BookingStats(v.Bookings)
	return v, nil
}

// CancelBooking cancels a booking. The booking leaves v only once the
// backend confirms.
func (p *Pages) CancelBooking(ctx context.Context, v *MyBookingsView, id string) error {
	if i, ok := v.find(id); ok && !catalog.Cancellable(v.Bookings[i]) {
		return &Failure{Message: "Only pending bookings can be cancelled"}
	}
	if _, err := p.backend.CancelBooking(ctx, id, v.Email); err != nil {
		p.logger.Warn("booking_cancel_failed", zap.String("booking_id", id), zap.String("error", logger.SanitizeError(err)))
		return fail(err, "Failed to cancel booking")
	}

	kept := make([]models.Booking, 0, len(v.Bookings))
	for _, b := range v.Bookings {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	v.Bookings = kept
	v.Stats = catalog.BookingStats(kept)
	p.logger.Info("booking_cancelled", zap.String("booking_id", id))
	return nil
}

// Review posts a review for the service of booking id and marks the
// booking reviewed. A zero rating means DefaultRating.
func (p *Pages) Review(ctx context.Context, v *MyBookingsView, id string, rating int, comment string) error {
	user, err := p.user()
	if err != nil {
		return fail(err, "")
	}
	i, ok := v.find(id)
	if !ok {
		return &Failure{Message: "Booking not found", Err: ErrNotFound}
	}
	booking := v.Bookings[i]
	if !catalog.Reviewable(booking) {
		return &Failure{Message: "This booking cannot be reviewed"}
	}

	if rating == 0 {
		rating = DefaultRating
	}
	form := validation.ReviewForm{Rating: rating, Comment: validation.SanitizeText(comment)}
	if err := validation.Validate.Struct(form); err != nil {
		return fail(err, "Please write a review comment")
	}

	review := models.Review{
		UserEmail: user.Email,
		UserName:  reviewerName(user),
		Rating:    form.Rating,
		Comment:   form.Comment,
	}
	if _, err := p.backend.AddReview(ctx, booking.ServiceID, review); err != nil {
		p.logger.Warn("review_failed", zap.String("service_id", booking.ServiceID), zap.String("error", logger.SanitizeError(err)))
		return failServer(err, "Failed to add review")
	}

	v.Bookings[i].HasReviewed = true
	p.logger.Info("review_added", zap.String("service_id", booking.ServiceID), zap.Int("rating", rating))
	return nil
}
