// Package scheduling wraps the external booking provider's REST API. The
// provider is an opaque collaborator: this client only needs well-formed
// success and failure indicators back.
package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/retryhttp"
)

// ErrNotConfigured is returned by a nil client. Handlers translate it into
// a neutral "not available" answer instead of failing the call.
var ErrNotConfigured = errors.New("scheduling provider not configured")

// Slot is one bookable time window offered by the provider.
type Slot struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	Label     string `json:"label"`
}

// Booking is the provider's confirmation of a booked slot.
type Booking struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
}

// BookingRequest carries everything the provider needs to book a job visit.
type BookingRequest struct {
	CalendarID    string `json:"calendar_id"`
	SlotID        string `json:"slot_id,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Address       string `json:"address,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Client talks to the booking provider through the retrying transport.
type Client struct {
	baseURL    string
	apiKey     string
	calendarID string
	http       *retryhttp.Client
	log        *logger.Logger
}

// New builds the scheduling client, or nil when no provider is configured.
// All methods on a nil client return ErrNotConfigured.
func New(cfg interface {
	config.SchedulingConfig
	config.RetryConfig
}, log *logger.Logger) *Client {
	if !cfg.IsSchedulingEnabled() {
		return nil
	}
	return &Client{
		baseURL:    cfg.GetSchedulingAPIURL(),
		apiKey:     cfg.GetSchedulingAPIKey(),
		calendarID: cfg.GetSchedulingCalendarID(),
		http: retryhttp.New(
			retryhttp.WithTimeout(cfg.GetOutboundTimeout()),
			retryhttp.WithMaxRetries(cfg.GetOutboundMaxRetries()),
		),
		log: log,
	}
}

// Availability asks the provider for open slots matching the caller's
// preference. Both preference fields are free text; the provider does the
// interpretation.
func (c *Client) Availability(ctx context.Context, preferredDay, preferredTime string) ([]Slot, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}

	payload := map[string]string{
		"calendar_id":    c.calendarID,
		"preferred_day":  preferredDay,
		"preferred_time": preferredTime,
	}
	result, err := c.http.PostJSON(ctx, c.baseURL+"/availability", payload, c.headers())
	if err != nil {
		return nil, fmt.Errorf("scheduling availability: %w", err)
	}

	var body struct {
		Slots []Slot `json:"slots"`
	}
	if err := json.Unmarshal(result.Body, &body); err != nil {
		return nil, fmt.Errorf("scheduling availability: decode: %w", err)
	}
	return body.Slots, nil
}

// Book books a slot. The provider either confirms with an id or rejects;
// a rejection comes back as an error from the transport layer.
func (c *Client) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	if req.CalendarID == "" {
		req.CalendarID = c.calendarID
	}

	result, err := c.http.PostJSON(ctx, c.baseURL+"/bookings", req, c.headers())
	if err != nil {
		return nil, fmt.Errorf("scheduling book: %w", err)
	}

	var booking Booking
	if err := json.Unmarshal(result.Body, &booking); err != nil {
		return nil, fmt.Errorf("scheduling book: decode: %w", err)
	}
	if booking.ID == "" {
		return nil, errors.New("scheduling book: provider returned no booking id")
	}
	return &booking, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}
