package classify

// DerivedFields are the coarse categorical fields the dashboard filters on.
// Each is total: every call maps to some value, with explicit fallbacks.
type DerivedFields struct {
	CallType   string `json:"call_type"`
	WorkType   string `json:"work_type"`
	CallerType string `json:"caller_type"`
	Intent     string `json:"intent"`
}

// Call types.
const (
	CallTypeEmergency       = "emergency_service"
	CallTypeBookedJob       = "booked_job"
	CallTypeLead            = "lead"
	CallTypeCustomerService = "customer_service"
	CallTypeNonService      = "non_service"
	CallTypeOther           = "other"
)

// Work types.
const (
	WorkTypeHVACRepair      = "hvac_repair"
	WorkTypeHVACMaintenance = "hvac_maintenance"
	WorkTypeInstallation    = "installation"
	WorkTypePlumbing        = "plumbing"
	WorkTypeElectrical      = "electrical"
	WorkTypeUnknown         = "unknown"
)

// Caller types.
const (
	CallerExisting    = "existing_customer"
	CallerNew         = "new_customer"
	CallerPropertyPro = "property_professional"
	CallerCommercial  = "commercial"
	CallerNonCustomer = "non_customer"
)

// Intents.
const (
	IntentEmergencyHelp = "emergency_help"
	IntentBookService   = "book_service"
	IntentRequestQuote  = "request_quote"
	IntentComplaint     = "complaint"
	IntentInformation   = "information"
	IntentNone          = "none"
)

// Derive computes the coarse fields from the taxonomy tags plus booking and
// safety state. Order matters within each switch: the most specific signal
// wins, and the final arm is always a fallback so no call comes out untyped.
func Derive(in Input, tags TaxonomyTags, revenue RevenueEstimate) DerivedFields {
	return DerivedFields{
		CallType:   deriveCallType(in, tags),
		WorkType:   deriveWorkType(tags),
		CallerType: deriveCallerType(tags),
		Intent:     deriveIntent(in, tags, revenue),
	}
}

func deriveCallType(in Input, tags TaxonomyTags) string {
	switch {
	case in.SafetyEmergency || len(tags[CategoryHazard]) > 0:
		return CallTypeEmergency
	case in.BookingConfirmed:
		return CallTypeBookedJob
	case len(tags[CategoryNonCustomer]) > 0:
		return CallTypeNonService
	case len(tags[CategoryRetentionRisk]) > 0 && len(tags[CategoryServiceType]) == 0:
		return CallTypeCustomerService
	case len(tags[CategoryServiceType]) > 0 || len(tags[CategoryRevenueOpportunity]) > 0:
		return CallTypeLead
	default:
		return CallTypeOther
	}
}

func deriveWorkType(tags TaxonomyTags) string {
	svc := tags[CategoryServiceType]
	has := func(labels ...string) bool {
		for _, l := range labels {
			if tags.Has(CategoryServiceType, l) {
				return true
			}
		}
		return false
	}

	switch {
	case has("installation_quote"):
		return WorkTypeInstallation
	case has("plumbing_leak", "drain_clog", "water_heater", "gas_line_service"):
		return WorkTypePlumbing
	case has("electrical_panel", "wiring_issue", "generator_service"):
		return WorkTypeElectrical
	case has("maintenance_tuneup", "inspection"):
		return WorkTypeHVACMaintenance
	case len(svc) > 0:
		return WorkTypeHVACRepair
	default:
		return WorkTypeUnknown
	}
}

func deriveCallerType(tags TaxonomyTags) string {
	switch {
	case len(tags[CategoryNonCustomer]) > 0:
		return CallerNonCustomer
	case tags.Has(CategoryCallerRelationship, "existing_customer") ||
		tags.Has(CategoryCallerRelationship, "returning_customer") ||
		tags.Has(CategoryCallerRelationship, "home_warranty_holder"):
		return CallerExisting
	case tags.Has(CategoryCallerRelationship, "property_manager") ||
		tags.Has(CategoryCallerRelationship, "landlord") ||
		tags.Has(CategoryCallerRelationship, "realtor") ||
		tags.Has(CategoryCallerRelationship, "builder_contractor"):
		return CallerPropertyPro
	case tags.Has(CategoryCallerRelationship, "commercial_contact") ||
		tags.Has(CategoryRevenueOpportunity, "commercial_account"):
		return CallerCommercial
	default:
		return CallerNew
	}
}

func deriveIntent(in Input, tags TaxonomyTags, revenue RevenueEstimate) string {
	switch {
	case in.SafetyEmergency || len(tags[CategoryHazard]) > 0:
		return IntentEmergencyHelp
	case in.BookingConfirmed:
		return IntentBookService
	case revenue.Tier >= TierReplacement || tags.Has(CategoryServiceType, "installation_quote"):
		return IntentRequestQuote
	case tags.Has(CategoryRetentionRisk, "billing_complaint") ||
		tags.Has(CategoryRetentionRisk, "past_bad_experience") ||
		tags.Has(CategoryRetentionRisk, "long_wait_complaint"):
		return IntentComplaint
	case len(tags[CategoryServiceType]) > 0:
		return IntentBookService
	case len(tags[CategoryNonCustomer]) > 0:
		return IntentNone
	default:
		return IntentInformation
	}
}
