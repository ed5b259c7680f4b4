package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

var (
	durationRe  = regexp.MustCompile(`(?i)(\d+)\s*(day|days|week|weeks|month|months)\b`)
	travelersRe = regexp.MustCompile(`(?i)(\d+)\s*(?:people|persons|person|travelers|travellers|adults|passengers|pax|guests)\b`)
	forNRe      = regexp.MustCompile(`(?i)\bfor\s+(\d+)\b(\s*(?:days?|weeks?|months?|nights?))?`)
	budgetRe    = regexp.MustCompile(`(?i)(?:under|below|less than|max(?:imum)?|up to|budget(?: of)?)\s*(?:\$|usd\s*)?\s*([\d,]+(?:\.\d+)?)`)
)

const maxTravelers = 50

// Entities are secondary slots that shape planning but never block it.
type Entities struct {
	DurationDays int
	Travelers    int
	Budget       *float64
	BudgetTier   domain.BudgetTier
}

// ExtractEntities reads trip length, party size and budget hints.
func ExtractEntities(input string) Entities {
	var e Entities
	lower := strings.ToLower(input)

	if m := durationRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch {
		case strings.HasPrefix(m[2], "week"):
			n *= 7
		case strings.HasPrefix(m[2], "month"):
			n *= 30
		}
		e.DurationDays = min(n, domain.MaxTripDays)
	}

	if m := travelersRe.FindStringSubmatch(lower); m != nil {
		e.Travelers, _ = strconv.Atoi(m[1])
	} else if m := forNRe.FindStringSubmatch(lower); m != nil && m[2] == "" {
		e.Travelers, _ = strconv.Atoi(m[1])
	} else if strings.Contains(lower, "solo") {
		e.Travelers = 1
	} else if strings.Contains(lower, "couple") || strings.Contains(lower, "honeymoon") {
		e.Travelers = 2
	}

	if m := budgetRe.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil && v > 0 {
			e.Budget = &v
		}
	}
	if e.Travelers > maxTravelers {
		e.Travelers = 0
	}

	switch {
	case containsAny(lower, "luxury", "five star", "5-star", "premium", "business class"):
		e.BudgetTier = domain.BudgetTierLuxury
	case containsAny(lower, "cheap", "budget", "affordable", "backpack", "low cost"):
		e.BudgetTier = domain.BudgetTierBudget
	case containsAny(lower, "mid-range", "moderate", "mid range"):
		e.BudgetTier = domain.BudgetTierModerate
	}
	return e
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
