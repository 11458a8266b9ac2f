package catalog

import "github.com/benvon/homehero/internal/models"

// DefaultCategories is offered when the backend's category list is unavailable.
var DefaultCategories = []string{
	"Cleaning",
	"Plumbing",
	"Electrical",
	"Gardening",
	"Painting",
	"Carpentry",
	"HVAC",
}

// CategoryOptions returns the choices for a category picker: AllCategories
// followed by fetched, or by DefaultCategories when fetched is empty.
func CategoryOptions(fetched []string) []string {
	src := fetched
	if len(src) == 0 {
		src = DefaultCategories
	}
	out := make([]string, 0, len(src)+1)
	out = append(out, AllCategories)
	for _, c := range src {
		if c == AllCategories || c == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ProviderSummary is the header of a provider's own listings page.
type ProviderSummary struct {
	TotalServices int
	AveragePrice  float64
	TotalReviews  int
}

// ProviderStats summarizes a provider's services. AveragePrice is 0 for none.
func ProviderStats(services []models.Service) ProviderSummary {
	var sum ProviderSummary
	var total float64
	for _, s := range services {
		total += s.Price
		sum.TotalReviews += len(s.Reviews)
	}
	sum.TotalServices = len(services)
	if sum.TotalServices > 0 {
		sum.AveragePrice = total / float64(sum.TotalServices)
	}
	return sum
}

// BookingSummary is the header of a customer's bookings page.
type BookingSummary struct {
	Total      int
	Pending    int
	TotalSpent float64
}

// BookingStats counts bookings. TotalSpent sums every booking's price,
// cancelled ones included, matching what the bookings page has always shown.
func BookingStats(bookings []models.Booking) BookingSummary {
	sum := BookingSummary{Total: len(bookings)}
	for _, b := range bookings {
		if b.Status == models.BookingStatusPending {
			sum.Pending++
		}
		sum.TotalSpent += b.Price
	}
	return sum
}

// Reviewable reports whether the customer can still review b.
func Reviewable(b models.Booking) bool {
	return !b.HasReviewed && b.Status != models.BookingStatusCancelled
}

// Cancellable reports whether b can still be cancelled.
func Cancellable(b models.Booking) bool {
	return b.Status == models.BookingStatusPending
}
