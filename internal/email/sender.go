// Package email delivers owner alert emails over the business's own SMTP
// server.
package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"receptionist_backend/platform/config"
)

// AlertSender sends plain alert emails via SMTP. A nil sender no-ops, so
// email stays optional.
type AlertSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	ownerTo   string
}

// NewAlertSender builds the sender from SMTP settings, or nil when email
// alerting is not configured.
func NewAlertSender(cfg config.EmailConfig) *AlertSender {
	if !cfg.IsEmailEnabled() {
		return nil
	}
	return &AlertSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		ownerTo:   cfg.GetOwnerAlertEmail(),
	}
}

// SafetyAlert describes an emergency call for the owner email.
type SafetyAlert struct {
	CallID          string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	ProblemSummary  string
}

// SendSafetyAlert emails the owner about a safety-emergency call.
func (s *AlertSender) SendSafetyAlert(ctx context.Context, alert SafetyAlert) error {
	if s == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A caller reported a possible safety emergency.\n\n")
	if alert.CustomerName != "" {
		fmt.Fprintf(&b, "Caller:  %s\n", alert.CustomerName)
	}
	if alert.CustomerPhone != "" {
		fmt.Fprintf(&b, "Phone:   %s\n", alert.CustomerPhone)
	}
	if alert.CustomerAddress != "" {
		fmt.Fprintf(&b, "Address: %s\n", alert.CustomerAddress)
	}
	if alert.ProblemSummary != "" {
		fmt.Fprintf(&b, "Problem: %s\n", alert.ProblemSummary)
	}
	fmt.Fprintf(&b, "\nCall reference: %s\n", alert.CallID)

	return s.send(ctx, "EMERGENCY: safety issue reported by caller", b.String())
}

func (s *AlertSender) send(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(s.ownerTo); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
