package notify

import (
	"context"
	"fmt"

	"receptionist_backend/internal/email"
	"receptionist_backend/internal/events"
	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
)

// Module subscribes to alert-worthy domain events and notifies the owner
// out of band. It keeps the webhook handler path thin: handlers publish
// events and move on, delivery happens here.
type Module struct {
	sms        *Client
	mail       *email.AlertSender
	ownerPhone string
	business   string
	log        *logger.Logger
}

// NewModule wires the notification module. Either channel may be nil.
func NewModule(sms *Client, mail *email.AlertSender, cfg interface {
	config.SMSConfig
	config.BusinessConfig
}, log *logger.Logger) *Module {
	return &Module{
		sms:        sms,
		mail:       mail,
		ownerPhone: cfg.GetOwnerAlertPhone(),
		business:   cfg.GetBusinessName(),
		log:        log,
	}
}

// RegisterHandlers subscribes to the relevant domain events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.SafetyEmergencyName, m)
	bus.Subscribe(events.SyncFailedName, m)
	m.log.Info("notify module registered event handlers")
}

// Handle routes events to the appropriate notification.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.SafetyEmergency:
		return m.handleSafetyEmergency(ctx, e)
	case events.SyncFailed:
		m.log.WithCallID(e.CallID).Warn("dashboard sync failed",
			"endpoint", e.Endpoint, "attempts", e.Attempts, "reason", e.Reason)
		return nil
	default:
		return nil
	}
}

func (m *Module) handleSafetyEmergency(ctx context.Context, e events.SafetyEmergency) error {
	if m.ownerPhone != "" && m.sms != nil {
		msg := fmt.Sprintf("%s EMERGENCY: caller reported a safety issue", m.business)
		if e.CustomerPhone != "" {
			msg += fmt.Sprintf(", callback %s", e.CustomerPhone)
		}
		if e.CustomerAddress != "" {
			msg += fmt.Sprintf(", at %s", e.CustomerAddress)
		}
		if err := m.sms.SendSMS(ctx, m.ownerPhone, msg); err != nil {
			m.log.WithCallID(e.CallID).Error("owner sms alert failed", "error", err)
		}
	}

	if err := m.mail.SendSafetyAlert(ctx, email.SafetyAlert{
		CallID:          e.CallID,
		CustomerName:    e.CustomerName,
		CustomerPhone:   e.CustomerPhone,
		CustomerAddress: e.CustomerAddress,
		ProblemSummary:  e.ProblemSummary,
	}); err != nil {
		m.log.WithCallID(e.CallID).Error("owner email alert failed", "error", err)
	}
	return nil
}

var _ events.Handler = (*Module)(nil)
