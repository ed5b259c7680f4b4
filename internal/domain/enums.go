// Package domain defines the core domain models for the travel planner.
package domain

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentSuggestions Intent = "SUGGESTIONS"
	IntentItinerary   Intent = "ITINERARY"
	IntentFlights     Intent = "FLIGHTS"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TripType distinguishes one-way from round-trip flight options.
type TripType string

const (
	TripOneWay    TripType = "one-way"
	TripRoundTrip TripType = "round-trip"
)

// CurrencySource labels where a conversion rate came from.
type CurrencySource string

const (
	CurrencySourceIdentity CurrencySource = "identity"
	CurrencySourceLive     CurrencySource = "live"
	CurrencySourceFallback CurrencySource = "fallback_rates"
)

// LoopStatus describes how a reasoning loop terminated.
type LoopStatus string

const (
	LoopStatusFinal        LoopStatus = "final"
	LoopStatusClarify      LoopStatus = "clarify"
	LoopStatusIterationCap LoopStatus = "iteration_cap"
	LoopStatusTimeout      LoopStatus = "timeout"
	LoopStatusParseFailure LoopStatus = "parse_failure"
	LoopStatusFallback     LoopStatus = "fallback"
)

// ToolDecision is the policy verdict for a proposed tool call.
type ToolDecision string

const (
	ToolDecisionAllow   ToolDecision = "allow"
	ToolDecisionClarify ToolDecision = "clarify"
	ToolDecisionBlock   ToolDecision = "block"
)

// BudgetTier is the coarse spending preference of a traveler.
type BudgetTier string

const (
	BudgetTierBudget   BudgetTier = "Budget"
	BudgetTierModerate BudgetTier = "Moderate"
	BudgetTierLuxury   BudgetTier = "Luxury"
)

// CabinClass maps a budget tier to the flight cabin searched for.
func (b BudgetTier) CabinClass() string {
	switch b {
	case BudgetTierModerate:
		return "PREMIUM_ECONOMY"
	case BudgetTierLuxury:
		return "BUSINESS"
	default:
		return "ECONOMY"
	}
}
