package normalize

import (
	"strconv"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/domain"
)

// Price parses a display price such as "$1,234.50", "USD 1,234" or
// "$40/night" by reading the first number in it. Strings without a number
// parse as 0.
func Price(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	v, err := strconv.ParseFloat(strings.TrimRight(s[start:end], "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// TotalCost is the sum of every flight, hotel and activity price.
func TotalCost(it domain.Itinerary) float64 {
	var total float64
	for _, f := range it.Flights {
		total += Price(f.Price)
	}
	for _, h := range it.Hotels {
		total += Price(h.Price)
	}
	for _, a := range it.Activities {
		total += Price(a.Price)
	}
	return round(total, 2)
}
