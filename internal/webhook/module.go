// Package webhook provides the voice-platform bounded context: the tool
// endpoints invoked mid-call and the lifecycle endpoint that drives the
// post-call pipeline.
package webhook

import (
	apphttp "receptionist_backend/internal/http"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the webhook module. The service is
// built by the composition root so its collaborators (store, scheduler,
// dashboard, resync queue, event bus) can be shared with other modules.
func NewModule(svc *Service, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(svc, val, log)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the tool and lifecycle routes. The shared-secret
// middleware is already attached to ctx.Webhook; nothing here may mount
// outside that group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhook.POST("/retell", m.handler.HandleLifecycle)

	tools := ctx.Webhook.Group("/tools")
	tools.POST("/lookup-customer", m.handler.HandleLookupCustomer)
	tools.POST("/collect-problem", m.handler.HandleCollectProblem)
	tools.POST("/collect-equipment", m.handler.HandleCollectEquipment)
	tools.POST("/check-availability", m.handler.HandleCheckAvailability)
	tools.POST("/book-appointment", m.handler.HandleBookAppointment)
	tools.POST("/send-alert", m.handler.HandleSendAlert)
	tools.POST("/end-call", m.handler.HandleEndCall)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
