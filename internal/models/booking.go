package models

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a customer's booking of a service
type Booking struct {
	ID            string        `json:"_id,omitempty"`
	ServiceID     string        `json:"serviceId" validate:"required"`
	ServiceName   string        `json:"serviceName,omitempty"`
	ServiceImage  string        `json:"serviceImage,omitempty"`
	UserEmail     string        `json:"userEmail" validate:"required,email"`
	UserName      string        `json:"userName,omitempty"`
	ProviderName  string        `json:"providerName,omitempty"`
	ProviderEmail string        `json:"providerEmail,omitempty"`
	Price         float64       `json:"price" validate:"gte=0"`
	BookingDate   string        `json:"bookingDate" validate:"required,booking_date"`
	Status        BookingStatus `json:"status,omitempty"`
	HasReviewed   bool          `json:"hasReviewed,omitempty"`
}
