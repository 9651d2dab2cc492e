// Package notify sends SMS messages to the business owner through an
// external SMS gateway.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/phone"
)

// Client talks to the SMS gateway. A nil client no-ops, so SMS alerts stay
// optional.
type Client struct {
	baseURL    string
	apiKey     string
	fromNumber string
	http       *http.Client
	log        *logger.Logger
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

// NewClient builds the gateway client, or nil when no gateway is
// configured.
func NewClient(cfg config.SMSConfig, log *logger.Logger) *Client {
	if !cfg.IsSMSEnabled() {
		return nil
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetSMSGatewayURL(), "/"),
		apiKey:     cfg.GetSMSGatewayKey(),
		fromNumber: cfg.GetSMSFromNumber(),
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// SendSMS sends one message. The destination is normalized to E.164
// before sending.
func (c *Client) SendSMS(ctx context.Context, to, message string) error {
	if c == nil {
		return nil
	}

	payload := smsRequest{
		To:      phone.NormalizeE164(to),
		From:    c.fromNumber,
		Message: message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
