package intent

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

const (
	defaultLeadDays = 30
	defaultTripDays = 7
)

var (
	departurePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)departing on\s+([^,\n]+?)(?:\s+and|\s+returning)`),
		regexp.MustCompile(`(?i)departure.*?(\w+ \d{1,2}(?:st|nd|rd|th)?)`),
		regexp.MustCompile(`(?i)depart.*?(\w+ \d{1,2}(?:st|nd|rd|th)?)`),
		regexp.MustCompile(`(?i)leaving.*?(\w+ \d{1,2}(?:st|nd|rd|th)?)`),
	}
	returnPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)returning on\s+([^,\n]+?)(?:\s+for|\s+\.|$)`),
		regexp.MustCompile(`(?i)return.*?(\w+ \d{1,2}(?:st|nd|rd|th)?)`),
		regexp.MustCompile(`(?i)coming back.*?(\w+ \d{1,2}(?:st|nd|rd|th)?)`),
	}
	isoDate  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	ordinal  = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	yearless = []string{"January 2", "Jan 2", "1/2", "1-2", "2 January", "2 Jan"}
)

// Dates are the travel dates found in a request. When a date was not found
// the corresponding field holds the default (30 days out, a week-long trip).
type Dates struct {
	Departure      time.Time
	Return         time.Time
	DepartureFound bool
	ReturnFound    bool
}

// ExtractDates finds departure and return dates in input relative to now.
func ExtractDates(input string, now time.Time) Dates {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var d Dates

	d.Departure, d.DepartureFound = firstDate(input, departurePatterns, today)
	d.Return, d.ReturnFound = firstDate(input, returnPatterns, today)

	if !d.DepartureFound || !d.ReturnFound {
		for _, m := range isoDate.FindAllStringSubmatch(input, -1) {
			t, err := time.Parse(DateLayout, m[1])
			if err != nil {
				continue
			}
			switch {
			case !d.DepartureFound && !(d.ReturnFound && t.Equal(d.Return)):
				d.Departure, d.DepartureFound = t, true
			case !d.ReturnFound && !t.Equal(d.Departure):
				d.Return, d.ReturnFound = t, true
			}
		}
	}

	if !d.DepartureFound {
		d.Departure = today.AddDate(0, 0, defaultLeadDays)
	}
	if !d.ReturnFound || d.Return.Before(d.Departure) {
		d.Return = d.Departure.AddDate(0, 0, defaultTripDays)
		d.ReturnFound = false
	}
	return d
}

func firstDate(input string, patterns []*regexp.Regexp, today time.Time) (time.Time, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		if t, ok := ParseDate(m[1], today); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses an ISO date or a year-less date such as "July 10th",
// "Jul 10", "7/10" or "10 July". Year-less dates that already passed this
// year roll over to the next one.
func ParseDate(s string, today time.Time) (time.Time, bool) {
	s = strings.TrimRight(strings.TrimSpace(s), ".,!?")
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	clean := ordinal.ReplaceAllString(s, "$1")
	for _, layout := range yearless {
		t, err := time.Parse(layout, clean)
		if err != nil {
			continue
		}
		t = time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if t.Before(today) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}
