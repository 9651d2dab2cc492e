package webhook

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"receptionist_backend/internal/classify"
	"receptionist_backend/internal/dashboard"
	"receptionist_backend/internal/events"
	"receptionist_backend/internal/reconcile"
	"receptionist_backend/internal/scheduling"
	"receptionist_backend/internal/session"
	"receptionist_backend/platform/config"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/phone"
)

// Loop-guard operation names.
const (
	opLookupCustomer    = "lookup_customer"
	opCheckAvailability = "check_availability"
	opBookAppointment   = "book_appointment"
)

// Store is the session persistence surface the webhook service needs.
type Store interface {
	Get(ctx context.Context, callID string) (*session.CallSession, error)
	Upsert(ctx context.Context, s *session.CallSession) error
	MarkSynced(ctx context.Context, callID string) error
	FindLatestByPhone(ctx context.Context, phone, excludeCallID string) (*session.CallSession, error)
}

// Scheduler is the booking provider surface.
type Scheduler interface {
	Availability(ctx context.Context, preferredDay, preferredTime string) ([]scheduling.Slot, error)
	Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Booking, error)
}

// Syncer delivers classified sessions downstream.
type Syncer interface {
	Send(ctx context.Context, s *session.CallSession, cls classify.Classification) dashboard.SendResult
}

// ResyncEnqueuer schedules a deferred dashboard re-sync for a call.
type ResyncEnqueuer interface {
	Enqueue(ctx context.Context, callID string) error
}

// Service implements the tool and lifecycle operations. Every tool path
// follows the same discipline: read session, mutate, upsert the full
// record. Store failures never fail the live call; handlers continue with
// best-effort defaults.
type Service struct {
	store     Store
	scheduler Scheduler
	dash      Syncer
	resync    ResyncEnqueuer
	bus       events.Bus
	business  config.BusinessConfig
	log       *logger.Logger
}

// NewService wires the webhook service. scheduler and dash may wrap nil
// clients; resync may be nil when no queue is configured.
func NewService(store Store, scheduler Scheduler, dash Syncer, resync ResyncEnqueuer, bus events.Bus, business config.BusinessConfig, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		scheduler: scheduler,
		dash:      dash,
		resync:    resync,
		bus:       bus,
		business:  business,
		log:       log,
	}
}

// load fetches the session for a call, creating one lazily on first
// sight. An unavailable store yields a fresh in-memory session so the
// conversation can continue.
func (s *Service) load(ctx context.Context, call CallRef) *session.CallSession {
	cs, err := s.store.Get(ctx, call.CallID)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		cs = session.NewCallSession(call.CallID)
	default:
		s.log.StoreError("get", err)
		cs = session.NewCallSession(call.CallID)
	}

	if cs.Direction == "" {
		cs.Direction = call.Direction
	}
	if call.FromNumber != "" && session.StringValue(cs.FromNumber) == "" {
		session.SetString(&cs.FromNumber, call.FromNumber)
	}
	if call.ToNumber != "" && session.StringValue(cs.ToNumber) == "" {
		session.SetString(&cs.ToNumber, call.ToNumber)
	}
	cs.AdvanceStatus(session.StatusInProgress)
	return cs
}

// persist upserts the session, logging rather than failing when the store
// is down.
func (s *Service) persist(ctx context.Context, cs *session.CallSession) {
	if err := s.store.Upsert(ctx, cs); err != nil {
		s.log.StoreError("upsert", err)
	}
}

// LookupCustomer recognizes repeat callers by phone number from prior
// call sessions.
func (s *Service) LookupCustomer(ctx context.Context, req LookupCustomerRequest) LookupResponse {
	cs := s.load(ctx, req.Call)
	cs.RecordVisit(opLookupCustomer)

	number := req.Args.Phone
	if number == "" {
		number = req.Call.FromNumber
	}
	number = phone.NormalizeE164(number)
	session.SetString(&cs.CustomerPhone, number)

	prior, err := s.store.FindLatestByPhone(ctx, number, cs.CallID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.log.StoreError("find_by_phone", err)
		}
		s.persist(ctx, cs)
		return LookupResponse{
			Found:   false,
			Success: true,
			Message: "I don't see an account for this number, no problem, I can set you up as a new customer.",
		}
	}

	if session.StringValue(cs.CustomerName) == "" {
		cs.CustomerName = prior.CustomerName
	}
	if session.StringValue(cs.CustomerAddress) == "" {
		cs.CustomerAddress = prior.CustomerAddress
	}
	s.persist(ctx, cs)

	name := session.StringValue(prior.CustomerName)
	msg := "Welcome back! I found your previous call with us."
	if name != "" {
		msg = fmt.Sprintf("Welcome back, %s! I found your details from a previous call.", name)
	} else if spoken := phone.Display(number); spoken != "" {
		msg = fmt.Sprintf("Welcome back! I found a previous call from %s.", spoken)
	}
	return LookupResponse{
		Found:           true,
		Success:         true,
		Message:         msg,
		CustomerName:    name,
		CustomerAddress: session.StringValue(prior.CustomerAddress),
		LastOutcome:     string(prior.Outcome),
	}
}

// CollectProblem records the caller's problem description. A safety
// emergency flag raises urgency to the top and alerts the owner
// immediately, before the call even ends.
func (s *Service) CollectProblem(ctx context.Context, req CollectProblemRequest) ToolResponse {
	cs := s.load(ctx, req.Call)

	session.SetString(&cs.ProblemDescription, req.Args.Description)
	session.SetString(&cs.ProblemDuration, req.Args.Duration)
	session.SetString(&cs.ProblemOnset, req.Args.Onset)
	session.SetString(&cs.ProblemPattern, req.Args.Pattern)
	session.SetString(&cs.PriorFixAttempts, req.Args.PriorFixAttempts)
	session.SetString(&cs.LastAgentState, "collect_problem")

	if req.Args.Urgency != "" {
		applyUrgencyFloor(cs, session.Urgency(req.Args.Urgency))
	}
	if req.Args.SafetyEmergency || reconcile.ContainsSafetyHazard(req.Args.Description) {
		s.flagEmergency(ctx, cs)
	}

	s.persist(ctx, cs)
	return ToolResponse{Success: true, Message: "Got it, I've noted the problem details."}
}

// CollectEquipment records equipment facts for later classification.
func (s *Service) CollectEquipment(ctx context.Context, req CollectEquipmentRequest) ToolResponse {
	cs := s.load(ctx, req.Call)

	session.SetString(&cs.EquipmentType, req.Args.EquipmentType)
	session.SetString(&cs.EquipmentBrand, req.Args.Brand)
	session.SetString(&cs.EquipmentLocation, req.Args.Location)
	session.SetString(&cs.EquipmentAge, req.Args.Age)
	session.SetString(&cs.LastAgentState, "collect_equipment")

	s.persist(ctx, cs)
	return ToolResponse{Success: true, Message: "Thanks, I've recorded the equipment details."}
}

// CheckAvailability queries the booking provider for open slots. Repeated
// invocations trip the loop guard and tell the agent to move on.
func (s *Service) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) AvailabilityResponse {
	cs := s.load(ctx, req.Call)
	cs.RecordVisit(opCheckAvailability)
	session.SetString(&cs.LastAgentState, "check_availability")
	looping := cs.IsLooping(opCheckAvailability, session.DefaultLoopThreshold)
	s.persist(ctx, cs)

	slots, err := s.scheduler.Availability(ctx, req.Args.PreferredDay, req.Args.PreferredTime)
	if errors.Is(err, scheduling.ErrNotConfigured) {
		return AvailabilityResponse{
			Success:         false,
			Message:         "Online scheduling isn't available right now. We'll call back to confirm a time.",
			ForceTransition: looping,
		}
	}
	if err != nil {
		s.log.WithCallID(req.Call.CallID).Error("availability check failed", "error", err)
		return AvailabilityResponse{
			Success:         false,
			Message:         "I couldn't reach the schedule just now. We'll call back to confirm a time.",
			ForceTransition: looping,
		}
	}
	if len(slots) == 0 {
		return AvailabilityResponse{
			Success:         true,
			Message:         "I don't see any openings for that time. Would another day work?",
			ForceTransition: looping,
		}
	}

	labels := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.Label != "" {
			labels = append(labels, slot.Label)
		} else {
			labels = append(labels, slot.StartTime)
		}
	}
	return AvailabilityResponse{
		Success:         true,
		Message:         "Here are the openings I found: " + strings.Join(labels, ", "),
		Slots:           labels,
		ForceTransition: looping,
	}
}

// BookAppointment books a visit. The loop guard caps retry cycles; the
// service-area check turns clearly out-of-area addresses away before
// anything is booked.
func (s *Service) BookAppointment(ctx context.Context, req BookAppointmentRequest) BookingResponse {
	cs := s.load(ctx, req.Call)
	cs.RecordVisit(opBookAppointment)
	cs.BookingAttempted = true
	session.SetString(&cs.LastAgentState, "booking")
	looping := cs.IsLooping(opBookAppointment, session.DefaultLoopThreshold)

	session.SetString(&cs.CustomerName, req.Args.CustomerName)
	session.SetString(&cs.CustomerPhone, req.Args.CustomerPhone)
	session.SetString(&cs.CustomerAddress, req.Args.Address)

	if addr := session.StringValue(cs.CustomerAddress); addr != "" && !s.inServiceArea(addr) {
		cs.Outcome = session.OutcomeOutOfArea
		s.persist(ctx, cs)
		return BookingResponse{
			Success:         false,
			Message:         "I'm sorry, that address is outside our service area.",
			ForceTransition: true,
		}
	}

	booking, err := s.scheduler.Book(ctx, scheduling.BookingRequest{
		SlotID:        req.Args.SlotID,
		StartTime:     req.Args.StartTime,
		CustomerName:  session.StringValue(cs.CustomerName),
		CustomerPhone: session.StringValue(cs.CustomerPhone),
		Address:       session.StringValue(cs.CustomerAddress),
		Notes:         session.StringValue(cs.ProblemDescription),
	})
	if errors.Is(err, scheduling.ErrNotConfigured) {
		cs.Outcome = session.OutcomeCallbackRequested
		s.persist(ctx, cs)
		return BookingResponse{
			Success:         false,
			Message:         "I can't book that directly right now, but we'll call back shortly to confirm a time.",
			ForceTransition: true,
		}
	}
	if err != nil {
		s.log.WithCallID(req.Call.CallID).Error("booking failed", "error", err)
		s.persist(ctx, cs)
		return BookingResponse{
			Success:         false,
			Message:         "That time didn't go through. Should we try a different slot?",
			ForceTransition: looping,
		}
	}

	cs.BookingConfirmed = true
	session.SetString(&cs.BookingID, booking.ID)
	if t, parseErr := time.Parse(time.RFC3339, booking.StartTime); parseErr == nil {
		cs.ScheduledTime = &t
	}
	s.persist(ctx, cs)

	return BookingResponse{
		Success:       true,
		Message:       "You're all set, the appointment is booked.",
		BookingID:     booking.ID,
		ScheduledTime: booking.StartTime,
		// A confirmed booking always moves the conversation forward.
		ForceTransition: true,
	}
}

// SendAlert marks the call as a safety emergency and alerts the owner via
// the event bus subscribers (SMS, email).
func (s *Service) SendAlert(ctx context.Context, req SendAlertRequest) ToolResponse {
	cs := s.load(ctx, req.Call)

	if req.Args.Message != "" && session.StringValue(cs.ProblemDescription) == "" {
		session.SetString(&cs.ProblemDescription, req.Args.Message)
	}
	s.flagEmergency(ctx, cs)
	s.persist(ctx, cs)

	return ToolResponse{Success: true, Message: "I've alerted the team. Help is on the way."}
}

// EndCall finalizes the outcome and marks the session ended.
func (s *Service) EndCall(ctx context.Context, req EndCallRequest) ToolResponse {
	cs := s.load(ctx, req.Call)

	if outcome, ok := session.ParseOutcome(req.Args.Outcome); ok {
		cs.Outcome = outcome
	}
	if req.Args.Summary != "" && session.StringValue(cs.CallSummary) == "" {
		session.SetString(&cs.CallSummary, req.Args.Summary)
	}
	now := time.Now().UTC()
	if cs.EndedAt == nil {
		cs.EndedAt = &now
	}
	cs.AdvanceStatus(session.StatusEnded)
	s.persist(ctx, cs)

	return ToolResponse{Success: true, Message: "Thanks for calling, goodbye."}
}

// flagEmergency sets the safety fields and publishes the alert event once
// per call.
func (s *Service) flagEmergency(ctx context.Context, cs *session.CallSession) {
	alreadyFlagged := cs.SafetyEmergency
	cs.SafetyEmergency = true
	cs.Urgency = session.UrgencyEmergency
	if cs.Outcome == session.OutcomeUnset {
		cs.Outcome = session.OutcomeSafetyEmergency
	}
	if alreadyFlagged {
		return
	}

	s.bus.Publish(ctx, events.SafetyEmergency{
		BaseEvent:       events.NewBaseEvent(),
		CallID:          cs.CallID,
		CustomerName:    session.StringValue(cs.CustomerName),
		CustomerPhone:   firstNonEmpty(session.StringValue(cs.CustomerPhone), session.StringValue(cs.FromNumber)),
		CustomerAddress: session.StringValue(cs.CustomerAddress),
		ProblemSummary:  session.StringValue(cs.ProblemDescription),
	})
}

// ProcessAnalyzed runs the post-call pipeline: reconcile all evidence,
// classify, persist the analyzed session, deliver downstream, and mark
// synced. Redelivering the same event converges to the same state.
func (s *Service) ProcessAnalyzed(ctx context.Context, call LifecycleCall) error {
	stored, err := s.store.Get(ctx, call.CallID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.log.StoreError("get", err)
		}
		stored = nil
	}

	wasFlagged := stored != nil && stored.SafetyEmergency

	cs := reconcile.Reconcile(stored, call.analysis())
	cs.AdvanceStatus(session.StatusAnalyzed)
	cls := classify.Run(classifyInput(cs))
	s.persist(ctx, cs)

	if cs.SafetyEmergency && !wasFlagged {
		s.bus.Publish(ctx, events.SafetyEmergency{
			BaseEvent:       events.NewBaseEvent(),
			CallID:          cs.CallID,
			CustomerName:    session.StringValue(cs.CustomerName),
			CustomerPhone:   firstNonEmpty(session.StringValue(cs.CustomerPhone), session.StringValue(cs.FromNumber)),
			CustomerAddress: session.StringValue(cs.CustomerAddress),
			ProblemSummary:  session.StringValue(cs.ProblemDescription),
		})
	}

	res := s.dash.Send(ctx, cs, cls)
	switch res.Status {
	case dashboard.StatusAccepted:
		if err := s.store.MarkSynced(ctx, cs.CallID); err != nil && !errors.Is(err, session.ErrNotFound) {
			s.log.StoreError("mark_synced", err)
		}
	case dashboard.StatusSkipped:
		// No dashboard configured; the session simply stays unsynced.
	default:
		s.bus.Publish(ctx, events.SyncFailed{
			BaseEvent: events.NewBaseEvent(),
			CallID:    cs.CallID,
			Endpoint:  string(res.Status),
			Attempts:  res.Attempts,
			Reason:    errString(res.Err),
		})
		if res.Status == dashboard.StatusRetriable && s.resync != nil {
			if err := s.resync.Enqueue(ctx, cs.CallID); err != nil {
				s.log.WithCallID(cs.CallID).Error("resync enqueue failed", "error", err)
			}
		}
	}

	s.bus.Publish(ctx, events.CallAnalyzed{
		BaseEvent:     events.NewBaseEvent(),
		CallID:        cs.CallID,
		Outcome:       string(cs.Outcome),
		Urgency:       string(cs.Urgency),
		PriorityColor: cls.Priority.Color,
		RevenueTier:   cls.Revenue.TierName,
		CallType:      cls.Derived.CallType,
	})
	return nil
}

// classifyInput projects a reconciled session into the classifier input.
func classifyInput(cs *session.CallSession) classify.Input {
	ts := cs.CreatedAt
	if cs.StartedAt != nil {
		ts = *cs.StartedAt
	}
	return classify.Input{
		ProblemText:      session.StringValue(cs.ProblemDescription),
		EquipmentType:    session.StringValue(cs.EquipmentType),
		EquipmentBrand:   session.StringValue(cs.EquipmentBrand),
		EquipmentAge:     session.StringValue(cs.EquipmentAge),
		TranscriptText:   session.StringValue(cs.Transcript),
		Sentiment:        session.StringValue(cs.UserSentiment),
		DisconnectReason: session.StringValue(cs.DisconnectionReason),
		BookingConfirmed: cs.BookingConfirmed,
		SafetyEmergency:  cs.SafetyEmergency,
		Direction:        cs.Direction,
		Timestamp:        ts,
	}
}

var zipPattern = regexp.MustCompile(`\b(\d{5})\b`)

// inServiceArea reports whether an address ZIP falls inside the configured
// service-area prefixes. Addresses without a ZIP, and businesses without
// configured prefixes, pass.
func (s *Service) inServiceArea(address string) bool {
	prefixes := s.business.GetServiceAreaZIPPrefixes()
	if len(prefixes) == 0 {
		return true
	}
	m := zipPattern.FindStringSubmatch(address)
	if m == nil {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(m[1], prefix) {
			return true
		}
	}
	return false
}

// applyUrgencyFloor raises the session urgency to at least the given tier.
func applyUrgencyFloor(cs *session.CallSession, floor session.Urgency) {
	rank := map[session.Urgency]int{
		session.UrgencyLow:       0,
		session.UrgencyMedium:    1,
		session.UrgencyHigh:      2,
		session.UrgencyEmergency: 3,
	}
	if rank[floor] > rank[cs.Urgency] {
		cs.Urgency = floor
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
