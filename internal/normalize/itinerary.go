package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

var dayHeading = regexp.MustCompile(`(?im)^[ \t#*]*Day\s+(\d+)\b[^\n]*$`)

// DaySkeleton is the generic day-by-day plan used when no model output is
// available.
func DaySkeleton(destination string, days int) string {
	destination = orDefault(destination, "your destination")
	days = domain.TripDays(days, defaultTripLength)
	var b strings.Builder
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "Day %d:\n", d)
		fmt.Fprintf(&b, "- Morning: Explore %s's main attractions\n", destination)
		b.WriteString("- Afternoon: Local cuisine and cultural sites\n")
		b.WriteString("- Evening: Experience local nightlife/entertainment\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// CountDays returns how many distinct "Day N" headings text contains.
func CountDays(text string) int {
	seen := make(map[string]bool)
	for _, m := range dayHeading.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	return len(seen)
}

// EnsureDays returns text unchanged when it already covers every day;
// otherwise a generic breakdown is appended so each day has a plan.
func EnsureDays(text string, days int) string {
	days = domain.TripDays(days, defaultTripLength)
	text = strings.TrimSpace(text)
	if CountDays(text) >= days {
		return text
	}
	var b strings.Builder
	if text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	b.WriteString("Day-by-Day Breakdown:\n\n")
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&b, "Day %d:\n", d)
		b.WriteString("- Morning: Explore local attractions\n")
		b.WriteString("- Afternoon: Cultural activities and dining\n")
		b.WriteString("- Evening: Local entertainment\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// DailyPlans splits a day-by-day plan into "Day N" -> description. When a day
// appears more than once the first section wins.
func DailyPlans(text string) map[string]string {
	locs := dayHeading.FindAllStringSubmatchIndex(text, -1)
	plans := make(map[string]string, len(locs))
	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		key := fmt.Sprintf("Day %d", n)
		if _, exists := plans[key]; exists {
			continue
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		heading := strings.TrimSpace(text[loc[0]:loc[1]])
		body := strings.TrimSpace(text[loc[1]:end])
		// Keep inline content such as "Day 1: Arrive and rest".
		if idx := strings.Index(heading, ":"); idx >= 0 {
			if inline := strings.Trim(heading[idx+1:], " *"); inline != "" {
				body = strings.TrimSpace(inline + "\n" + body)
			}
		}
		plans[key] = body
	}
	return plans
}
