package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/benvon/homehero/internal/models"
)

// MutationResult is the acknowledgement the backend returns for writes.
type MutationResult struct {
	Acknowledged  bool   `json:"acknowledged"`
	InsertedID    string `json:"insertedId,omitempty"`
	MatchedCount  int    `json:"matchedCount,omitempty"`
	ModifiedCount int    `json:"modifiedCount,omitempty"`
	DeletedCount  int    `json:"deletedCount,omitempty"`
}

func emailQuery(email string) url.Values {
	return url.Values{"email": []string{email}}
}

func servicePath(id string) string {
	return "/services/" + url.PathEscape(id)
}

// IssueToken exchanges email for a backend token. It needs no bearer token.
// Failures are *TokenExchangeError.
func (c *Client) IssueToken(ctx context.Context, email string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, call{
		op:     "issue_token",
		method: http.MethodPost,
		path:   "/jwt",
		body:   map[string]string{"email": email},
	}, &resp)
	if err != nil {
		return "", &TokenExchangeError{Email: email, Err: err}
	}
	if resp.Token == "" {
		return "", &TokenExchangeError{Email: email, Err: ErrEmptyToken}
	}
	return resp.Token, nil
}

// ListServices returns the public catalog. limit <= 0 means no cap.
func (c *Client) ListServices(ctx context.Context, limit int) ([]models.Service, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	var out []models.Service
	err := c.do(ctx, call{op: "list_services", method: http.MethodGet, path: "/services", query: q}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetService fetches one service. A persisted token is sent when present.
func (c *Client) GetService(ctx context.Context, id string) (*models.Service, error) {
	var out models.Service
	err := c.do(ctx, call{op: "get_service", method: http.MethodGet, path: servicePath(id), auth: authOptional}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateService submits a new service owned by svc.ProviderEmail.
func (c *Client) CreateService(ctx context.Context, svc models.Service) (*MutationResult, error) {
	var out MutationResult
	err := c.do(ctx, call{op: "create_service", method: http.MethodPost, path: "/services", body: svc, auth: authRequired}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateService replaces the service id owned by email.
func (c *Client) UpdateService(ctx context.Context, id, email string, svc models.Service) (*MutationResult, error) {
	var out MutationResult
	err := c.do(ctx, call{
		op:     "update_service",
		method: http.MethodPatch,
		path:   servicePath(id),
		query:  emailQuery(email),
		body:   svc,
		auth:   authRequired,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteService deletes the service id owned by email.
func (c *Client) DeleteService(ctx context.Context, id, email string) (*MutationResult, error) {
	var out MutationResult
	err := c.do(ctx, call{
		op:     "delete_service",
		method: http.MethodDelete,
		path:   servicePath(id),
		query:  emailQuery(email),
		auth:   authRequired,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MyServices lists the services owned by email.
func (c *Client) MyServices(ctx context.Context, email string) ([]models.Service, error) {
	var out []models.Service
	err := c.do(ctx, call{op: "my_services", method: http.MethodGet, path: "/my-services", query: emailQuery(email), auth: authRequired}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists the distinct category names.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, call{op: "categories", method: http.MethodGet, path: "/categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Bookings lists the bookings made by email.
func (c *Client) Bookings(ctx context.Context, email string) ([]models.Booking, error) {
	var out []models.Booking
	err := c.do(ctx, call{op: "bookings", method: http.MethodGet, path: "/bookings", query: emailQuery(email), auth: authRequired}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBooking books a service.
func (c *Client) CreateBooking(ctx context.Context, b models.Booking) (*MutationResult, error) {
	var out MutationResult
	err := c.do(ctx, call{op: "create_booking", method: http.MethodPost, path: "/bookings", body: b, auth: authRequired}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelBooking cancels the booking id made by email.
func (c *Client) CancelBooking(ctx context.Context, id, email string) (*MutationResult, error) {
	var out MutationResult
	err := c.do(ctx, call{
		op:     "cancel_booking",
		method: http.MethodDelete,
		path:   "/bookings/" + url.PathEscape(id),
		query:  emailQuery(email),
		auth:   authRequired,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AddReview attaches a review to serviceID.
func (c *Client) AddReview(ctx context.Context, serviceID string, r models.Review) (*MutationResult, error) {
	var out MutationResult
	err := c.do(ctx, call{
		op:     "add_review",
		method: http.MethodPost,
		path:   servicePath(serviceID) + "/review",
		body:   r,
		auth:   authRequired,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
