package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"receptionist_backend/platform/httpkit"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/validator"
)

// Handler binds inbound voice-platform payloads, validates them, and
// dispatches to the service. Malformed payloads are 4xx and never retried;
// tool handlers themselves always answer 200 with a speakable message.
type Handler struct {
	svc *Service
	val *validator.Validator
	log *logger.Logger
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(svc *Service, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, val: val, log: log}
}

// bind decodes and validates a request body. Returns false after writing
// the error response.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) HandleLookupCustomer(c *gin.Context) {
	var req LookupCustomerRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.LookupCustomer(c.Request.Context(), req)
	h.log.ToolCall("lookup-customer", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

func (h *Handler) HandleCollectProblem(c *gin.Context) {
	var req CollectProblemRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.CollectProblem(c.Request.Context(), req)
	h.log.ToolCall("collect-problem", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

func (h *Handler) HandleCollectEquipment(c *gin.Context) {
	var req CollectEquipmentRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.CollectEquipment(c.Request.Context(), req)
	h.log.ToolCall("collect-equipment", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

func (h *Handler) HandleCheckAvailability(c *gin.Context) {
	var req CheckAvailabilityRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.CheckAvailability(c.Request.Context(), req)
	h.log.ToolCall("check-availability", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

func (h *Handler) HandleBookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.BookAppointment(c.Request.Context(), req)
	h.log.ToolCall("book-appointment", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

func (h *Handler) HandleSendAlert(c *gin.Context) {
	var req SendAlertRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.SendAlert(c.Request.Context(), req)
	h.log.ToolCall("send-alert", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

func (h *Handler) HandleEndCall(c *gin.Context) {
	var req EndCallRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.svc.EndCall(c.Request.Context(), req)
	h.log.ToolCall("end-call", req.Call.CallID, resp.Success)
	httpkit.OK(c, resp)
}

// HandleLifecycle receives the voice platform's lifecycle events. Only
// call_analyzed is processed; every other event type is acknowledged and
// dropped so nothing gets double-processed.
func (h *Handler) HandleLifecycle(c *gin.Context) {
	var ev LifecycleEvent
	if !h.bind(c, &ev) {
		return
	}

	if ev.Event != "call_analyzed" {
		h.log.WebhookEvent(ev.Event, ev.Call.CallID, false)
		httpkit.OK(c, gin.H{"received": true, "processed": false})
		return
	}

	if err := h.svc.ProcessAnalyzed(c.Request.Context(), ev.Call); err != nil {
		h.log.WithCallID(ev.Call.CallID).Error("analysis processing failed", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "processing failed", nil)
		return
	}
	h.log.WebhookEvent(ev.Event, ev.Call.CallID, true)
	httpkit.OK(c, gin.H{"received": true, "processed": true})
}
