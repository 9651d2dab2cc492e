package classify

import (
	"regexp"
	"strings"
	"time"
)

// Taxonomy categories. Every tag emitted by the tagger belongs to exactly
// one of these nine categories.
const (
	CategoryHazard             = "hazard"
	CategoryUrgency            = "urgency"
	CategoryServiceType        = "service_type"
	CategoryRevenueOpportunity = "revenue_opportunity"
	CategoryRetentionRisk      = "retention_risk"
	CategoryAccessLogistics    = "access_logistics"
	CategoryCallerRelationship = "caller_relationship"
	CategoryNonCustomer        = "non_customer"
	CategorySituationalContext = "situational_context"
)

// TaxonomyTags maps category to the labels detected within it. Categories
// with no matches are omitted.
type TaxonomyTags map[string][]string

// Has reports whether tags contains label under category.
func (t TaxonomyTags) Has(category, label string) bool {
	for _, l := range t[category] {
		if l == label {
			return true
		}
	}
	return false
}

// Count returns the total number of labels across all categories.
func (t TaxonomyTags) Count() int {
	n := 0
	for _, labels := range t {
		n += len(labels)
	}
	return n
}

// detector binds a label to either a keyword list or a predicate. Exactly
// one of keywords or match is set.
type detector struct {
	label    string
	keywords []string
	match    func(in Input) bool
}

func (d detector) fires(in Input, text string) bool {
	if d.match != nil {
		return d.match(in)
	}
	return containsAny(text, d.keywords)
}

// taxonomy is the full detector table, keyed by category. Detector order
// within a category is the emission order of its labels.
var taxonomy = map[string][]detector{
	CategoryHazard: {
		{label: "gas_leak", keywords: []string{"gas leak", "smell gas", "smells like gas", "smelling gas", "rotten egg smell", "sulfur smell"}},
		{label: "carbon_monoxide", keywords: []string{"carbon monoxide", "co detector", "co alarm", "carbon monoxide alarm"}},
		{label: "electrical_burning", keywords: []string{"burning smell", "burning odor", "smells like burning", "electrical smell", "smell of burning"}},
		{label: "sparking_wires", keywords: []string{"sparking", "sparks", "arcing", "exposed wire", "exposed wiring"}},
		{label: "water_near_electrical", keywords: []string{"water near the panel", "water in the outlet", "leaking on the furnace", "water dripping on the unit", "water on electrical"}},
		{label: "refrigerant_leak", keywords: []string{"refrigerant leak", "freon leak", "hissing sound", "chemical smell", "ice on the lines"}},
		{label: "overheating_equipment", keywords: []string{"overheating", "too hot to touch", "unit is smoking", "furnace is glowing", "very hot to the touch"}},
		{label: "smoke", keywords: []string{"smoke coming", "see smoke", "smoke from the vent", "smoke in the house"}},
		{label: "flooding", keywords: []string{"flooding", "flooded", "water everywhere", "standing water", "water pouring"}},
		{label: "frozen_pipes_bursting", keywords: []string{"pipe burst", "burst pipe", "frozen pipe", "pipes are frozen", "pipe cracked"}},
		{label: "sewage_backup", keywords: []string{"sewage", "sewer backup", "sewer smell", "backing up into", "raw sewage"}},
		{label: "no_heat_vulnerable_occupant", keywords: []string{"no heat and my mother", "elderly and no heat", "baby and no heat", "newborn", "oxygen machine", "medical equipment at home"}},
	},
	CategoryUrgency: {
		{label: "no_cooling", keywords: []string{"no cooling", "ac is not working", "air conditioner stopped", "ac stopped", "no cold air", "blowing warm air", "not cooling"}},
		{label: "no_heating", keywords: []string{"no heat", "furnace is not working", "heater stopped", "no hot air", "not heating", "heat went out"}},
		{label: "complete_outage", keywords: []string{"completely dead", "won't turn on", "wont turn on", "totally stopped", "nothing happens", "no power to the unit"}},
		{label: "water_damage_active", keywords: []string{"actively leaking", "still leaking", "water is spreading", "dripping through the ceiling", "water damage"}},
		{label: "same_day_request", keywords: []string{"today", "right away", "as soon as possible", "asap", "this morning", "this afternoon", "immediately"}},
		{label: "after_hours_call", match: func(in Input) bool { return isAfterHours(in.Timestamp) }},
		{label: "business_downtime", keywords: []string{"can't open the store", "losing business", "customers are leaving", "restaurant is", "walk-in cooler", "office is too"}},
		{label: "vulnerable_occupant", keywords: []string{"elderly", "my mother is", "my father is", "infant", "small children", "disabled", "health condition"}},
		{label: "worsening_symptom", keywords: []string{"getting worse", "worse every day", "louder than before", "spreading", "more often now"}},
		{label: "repeat_failure", keywords: []string{"again", "keeps happening", "third time", "second time this", "same problem as", "happened before"}},
	},
	CategoryServiceType: {
		{label: "ac_repair", keywords: []string{"air conditioner", "air conditioning", "a/c", " ac ", "cooling system", "central air"}},
		{label: "heating_repair", keywords: []string{"heater", "heating system", "no heat", "heat is out"}},
		{label: "furnace_repair", keywords: []string{"furnace"}},
		{label: "heat_pump_service", keywords: []string{"heat pump"}},
		{label: "boiler_service", keywords: []string{"boiler", "radiator"}},
		{label: "water_heater", keywords: []string{"water heater", "hot water heater", "no hot water", "tankless"}},
		{label: "thermostat", keywords: []string{"thermostat"}},
		{label: "duct_work", keywords: []string{"duct", "ductwork", "vents are"}},
		{label: "ventilation", keywords: []string{"ventilation", "exhaust fan", "air quality", "humidity problem", "humidifier"}},
		{label: "refrigeration_commercial", keywords: []string{"walk-in cooler", "walk in freezer", "commercial refrigerat", "reach-in cooler", "ice machine"}},
		{label: "plumbing_leak", keywords: []string{"pipe is leaking", "leak under the sink", "faucet", "toilet is leaking", "water line"}},
		{label: "drain_clog", keywords: []string{"clogged", "drain is", "backed up drain", "slow drain", "garbage disposal"}},
		{label: "electrical_panel", keywords: []string{"breaker", "electrical panel", "fuse box", "tripping"}},
		{label: "wiring_issue", keywords: []string{"wiring", "outlet not working", "lights flickering", "dead outlet"}},
		{label: "maintenance_tuneup", keywords: []string{"tune-up", "tune up", "tuneup", "annual maintenance", "seasonal service", "check-up", "checkup", "filter change"}},
		{label: "installation_quote", keywords: []string{"new system", "install a new", "replacement quote", "estimate for a new", "quote on a new", "new unit"}},
		{label: "inspection", keywords: []string{"inspection", "inspect the", "safety check", "pre-purchase"}},
		{label: "gas_line_service", keywords: []string{"gas line", "gas pipe", "gas hookup", "gas connection"}},
		{label: "generator_service", keywords: []string{"generator", "backup power", "standby power"}},
		{label: "zoning_controls", keywords: []string{"zoning", "zone control", "one room is hot", "uneven temperature", "rooms are different temperature"}},
	},
	CategoryRevenueOpportunity: {
		{label: "full_replacement", keywords: []string{"replace the whole", "full replacement", "whole new system", "replace the unit", "time for a new"}},
		{label: "new_installation", keywords: []string{"new construction", "never had ac", "adding central air", "first time install", "install from scratch"}},
		{label: "system_upgrade", keywords: []string{"upgrade", "more efficient", "high efficiency", "better system", "variable speed"}},
		{label: "obsolete_refrigerant", keywords: []string{"r-22", "r22", "freon"}},
		{label: "aging_equipment", match: func(in Input) bool {
			age, ok := parseEquipmentAge(in.EquipmentAge, in.Timestamp)
			return ok && age >= 15
		}},
		{label: "repeated_repairs", keywords: []string{"keeps breaking", "fixed it twice", "repaired it last year and", "always something wrong", "money pit"}},
		{label: "high_utility_bills", keywords: []string{"electric bill", "utility bill", "energy bill", "bill went up", "costing a fortune to run"}},
		{label: "multi_unit_property", keywords: []string{"all the units", "several units", "multiple systems", "both units", "two systems", "duplex", "fourplex"}},
		{label: "commercial_account", keywords: []string{"our building", "our office", "our restaurant", "our store", "commercial property", "business location"}},
		{label: "financing_interest", keywords: []string{"financing", "payment plan", "monthly payments", "afford"}},
		{label: "maintenance_plan_interest", keywords: []string{"maintenance plan", "service plan", "membership", "annual contract", "service agreement"}},
		{label: "duct_replacement", keywords: []string{"replace the ducts", "new ductwork", "ducts are old", "redo the ductwork"}},
		{label: "iaq_upgrade", keywords: []string{"air purifier", "uv light", "whole house filter", "allergies", "air scrubber"}},
		{label: "smart_thermostat_upgrade", keywords: []string{"smart thermostat", "nest", "ecobee", "wifi thermostat"}},
	},
	CategoryRetentionRisk: {
		{label: "competitor_mentioned", keywords: []string{"another company", "other company", "someone else quoted", "got a quote from", "competitor"}},
		{label: "price_shopping", keywords: []string{"how much do you charge", "cheapest", "best price", "price match", "shopping around", "comparing prices"}},
		{label: "past_bad_experience", keywords: []string{"last time you", "bad experience", "wasn't happy with", "didn't fix it right", "messed up"}},
		{label: "long_wait_complaint", keywords: []string{"been waiting", "took too long", "still waiting", "nobody called me back", "no one called back"}},
		{label: "cancel_threat", keywords: []string{"cancel my", "going to cancel", "find someone else", "take my business elsewhere"}},
		{label: "second_opinion", keywords: []string{"second opinion", "someone already looked", "another tech said", "verify the diagnosis"}},
		{label: "diy_attempted", keywords: []string{"i tried to fix", "i replaced the", "i already changed", "watched a video", "did it myself"}},
		{label: "warranty_dispute", keywords: []string{"should be under warranty", "warranty covers", "not paying for", "covered under the warranty"}},
		{label: "billing_complaint", keywords: []string{"overcharged", "bill was wrong", "charged me twice", "invoice is wrong", "dispute the charge"}},
		{label: "trust_concern", keywords: []string{"don't trust", "ripped off", "scam", "trying to upsell", "didn't need it"}},
	},
	CategoryAccessLogistics: {
		{label: "gated_community", keywords: []string{"gated community", "gate code", "need a code to get in", "call from the gate"}},
		{label: "tenant_occupied", keywords: []string{"my tenant", "the tenant", "renters are", "tenant will let you in"}},
		{label: "landlord_approval_needed", keywords: []string{"ask my landlord", "landlord has to approve", "owner needs to approve", "check with the owner first"}},
		{label: "rooftop_unit", keywords: []string{"rooftop", "on the roof", "roof access"}},
		{label: "crawlspace_access", keywords: []string{"crawlspace", "crawl space", "under the house"}},
		{label: "attic_access", keywords: []string{"in the attic", "attic unit", "attic access"}},
		{label: "pet_on_premises", keywords: []string{"my dog", "our dog", "dogs in the yard", "cat will", "pets at home"}},
		{label: "key_lockbox", keywords: []string{"lockbox", "key under", "hide a key", "leave the door unlocked", "garage code"}},
		{label: "parking_restriction", keywords: []string{"parking is", "no parking", "park in the", "permit parking", "loading dock"}},
		{label: "business_hours_only", keywords: []string{"only during business hours", "before we open", "after we close", "while the store is closed"}},
		{label: "occupant_not_home", keywords: []string{"won't be home", "not home until", "at work during", "nobody will be there"}},
		{label: "remote_location", keywords: []string{"out in the country", "rural", "off the main road", "hard to find", "long driveway"}},
	},
	CategoryCallerRelationship: {
		{label: "existing_customer", keywords: []string{"you guys installed", "you were out here", "you serviced", "we use you for", "customer of yours", "in your system"}},
		{label: "returning_customer", keywords: []string{"last year you", "you came out before", "used you before", "called you last"}},
		{label: "property_manager", keywords: []string{"property manager", "property management", "i manage the", "manage several properties"}},
		{label: "landlord", keywords: []string{"my rental", "i'm the landlord", "i am the landlord", "my tenant's", "rental property i own"}},
		{label: "tenant", keywords: []string{"i'm renting", "i am renting", "i rent the", "my landlord said to call", "we're tenants"}},
		{label: "commercial_contact", keywords: []string{"facilities manager", "office manager", "calling for our company", "on behalf of the business"}},
		{label: "home_warranty_holder", keywords: []string{"home warranty", "american home shield", "warranty company sent", "through my warranty"}},
		{label: "referral", keywords: []string{"referred by", "recommended you", "neighbor uses you", "friend told me", "saw your truck"}},
		{label: "realtor", keywords: []string{"realtor", "real estate agent", "closing on a house", "for my listing"}},
		{label: "builder_contractor", keywords: []string{"general contractor", "i'm a builder", "i am a builder", "we're remodeling for a client", "sub it out"}},
		{label: "family_calling_for_occupant", keywords: []string{"calling for my mom", "calling for my dad", "my parents' house", "my mother's house", "my father's house"}},
		{label: "new_customer", match: func(in Input) bool { return false }}, // set by fallback below
	},
	CategoryNonCustomer: {
		{label: "telemarketer", keywords: []string{"special offer", "limited time offer", "promotional", "free consultation for"}},
		{label: "vendor_pitch", keywords: []string{"we supply", "our product line", "distributor", "wholesale pricing", "vendor"}},
		{label: "job_seeker", keywords: []string{"are you hiring", "job opening", "apply for", "looking for work", "send my resume"}},
		{label: "wrong_number", keywords: []string{"wrong number", "who is this", "didn't mean to call", "sorry wrong"}},
		{label: "robocall_suspected", keywords: []string{"press 1", "press one", "this is an automated", "do not hang up", "final notice"}},
		{label: "survey_request", keywords: []string{"survey", "few questions about your business", "market research"}},
		{label: "charity_solicitation", keywords: []string{"donation", "fundraiser", "charity", "sponsor our"}},
		{label: "marketing_pitch", keywords: []string{"seo", "google listing", "google ranking", "website for your business", "social media marketing", "lead generation service"}},
		{label: "recruiter", keywords: []string{"recruiting", "staffing agency", "candidates for you", "hiring needs"}},
		{label: "supplier_rep", keywords: []string{"parts supplier", "equipment dealer", "new supplier", "account manager for"}},
		{label: "insurance_sales", keywords: []string{"business insurance quote", "liability coverage", "insurance rates", "workers comp quote"}},
		{label: "test_call", keywords: []string{"just testing", "test call", "testing the line", "checking if this works"}},
	},
	CategorySituationalContext: {
		{label: "heat_wave", keywords: []string{"heat wave", "hottest day", "100 degrees", "triple digits", "record heat"}},
		{label: "cold_snap", keywords: []string{"cold snap", "freezing outside", "below zero", "coldest night", "hard freeze"}},
		{label: "storm_damage", keywords: []string{"storm", "lightning", "hail", "tree fell", "wind damage", "hurricane"}},
		{label: "power_outage_area", keywords: []string{"power outage", "power went out", "power came back", "after the outage", "surge"}},
		{label: "holiday_period", keywords: []string{"holiday", "thanksgiving", "christmas", "new year", "fourth of july", "guests coming"}},
		{label: "weekend_call", match: func(in Input) bool { return isWeekend(in.Timestamp) }},
		{label: "night_call", match: func(in Input) bool { return isNight(in.Timestamp) }},
		{label: "new_home_purchase", keywords: []string{"just bought", "just moved in", "new house", "closed last", "first summer in the house"}},
		{label: "recent_renovation", keywords: []string{"remodel", "renovation", "just finished the addition", "new addition", "converted the garage"}},
		{label: "home_sale_pending", keywords: []string{"selling the house", "listing the house", "before we sell", "buyer's inspection", "closing next"}},
		{label: "insurance_claim", keywords: []string{"insurance claim", "adjuster", "filing a claim", "insurance company said"}},
		{label: "previous_service_visit", keywords: []string{"tech was out", "since the last visit", "after the repair", "after your guy left"}},
		{label: "under_warranty", keywords: []string{"still under warranty", "under manufacturer warranty", "warranty period", "registered the warranty"}},
		{label: "rental_turnover", keywords: []string{"between tenants", "new tenant moving", "turnover", "make ready", "vacant unit"}},
		{label: "vacation_property", keywords: []string{"vacation home", "second home", "cabin", "airbnb", "short term rental"}},
	},
}

// categoryOrder fixes the iteration order of Tags output construction.
var categoryOrder = []string{
	CategoryHazard,
	CategoryUrgency,
	CategoryServiceType,
	CategoryRevenueOpportunity,
	CategoryRetentionRisk,
	CategoryAccessLogistics,
	CategoryCallerRelationship,
	CategoryNonCustomer,
	CategorySituationalContext,
}

// Tags runs every detector over the input and returns the labels that fired,
// grouped by category. Multi-label within a category is expected: a gas leak
// call legitimately carries hazard, urgency, and service-type labels at once.
func Tags(in Input) TaxonomyTags {
	text := in.combinedText()
	equip := in.equipmentText()

	out := TaxonomyTags{}
	for _, category := range categoryOrder {
		var labels []string
		for _, d := range taxonomy[category] {
			haystack := text
			if category == CategoryServiceType || category == CategoryRevenueOpportunity {
				haystack = text + "\n" + equip
			}
			if d.fires(in, haystack) {
				labels = append(labels, d.label)
			}
		}
		if len(labels) > 0 {
			out[category] = labels
		}
	}

	// A caller who shows no relationship evidence and is not a non-customer
	// is treated as a new customer.
	if len(out[CategoryCallerRelationship]) == 0 && len(out[CategoryNonCustomer]) == 0 && text != "\n" {
		out[CategoryCallerRelationship] = []string{"new_customer"}
	}

	return out
}

// LabelCount returns the total number of labels in the taxonomy table.
func LabelCount() int {
	n := 0
	for _, ds := range taxonomy {
		n += len(ds)
	}
	return n
}

func isAfterHours(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	h := t.Hour()
	return h < 8 || h >= 17 || isWeekend(t)
}

func isWeekend(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func isNight(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	h := t.Hour()
	return h < 6 || h >= 21
}

var (
	ageYearsPattern     = regexp.MustCompile(`(\d{1,2})\s*(?:\+\s*)?(?:years?|yrs?)`)
	ageInstalledPattern = regexp.MustCompile(`(?:installed|put in|from|built in)\s*(?:in\s*)?((?:19|20)\d{2})`)
	ageBarePattern      = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
)

// parseEquipmentAge extracts an equipment age in years from free text such
// as "about 18 years old", "installed in 2009", or a bare "18". Ages outside
// 0 through 50 are discarded as implausible.
func parseEquipmentAge(raw string, now time.Time) (int, bool) {
	if raw == "" {
		return 0, false
	}
	lowered := strings.ToLower(raw)

	if m := ageBarePattern.FindStringSubmatch(lowered); m != nil {
		return validAge(atoiSafe(m[1]))
	}
	if m := ageYearsPattern.FindStringSubmatch(lowered); m != nil {
		return validAge(atoiSafe(m[1]))
	}
	if m := ageInstalledPattern.FindStringSubmatch(lowered); m != nil {
		year := atoiSafe(m[1])
		ref := now
		if ref.IsZero() {
			ref = time.Now()
		}
		return validAge(ref.Year() - year)
	}
	return 0, false
}

func validAge(age int) (int, bool) {
	if age < 0 || age > 50 {
		return 0, false
	}
	return age, true
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
