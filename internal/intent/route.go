package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/normalize"
)

var (
	iataParens = regexp.MustCompile(`\(([A-Z]{3})\)`)

	fromToPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)from\s+([^,\n]+(?:,\s*[^,\n]+)*)\s+(?:\([a-z]{3}\)\s+)?to\s+([^,\n]+(?:,\s*[^,\n]+)*)`),
		regexp.MustCompile(`(?i)from\s+([a-z\s,]+)\s+to\s+([a-z\s,]+)`),
		regexp.MustCompile(`(?i)flight.*from\s+([a-z\s,]+)\s+to\s+([a-z\s,]+)`),
	}

	inlineCode = regexp.MustCompile(`(?i)\s*\([a-z]{3}\)`)
	// Trailing clauses that follow a place name in "from X to Y on ..." text.
	placeTail = regexp.MustCompile(`(?i)\s+(?:on|for|in|at|by|departing|returning|leaving|next|this|with|and|around|between)\b.*$|\s*\d.*$`)
	iataLike  = regexp.MustCompile(`^[A-Za-z]{3}$`)

	cityPatterns = buildCityPatterns()
)

type cityPattern struct {
	name string
	re   *regexp.Regexp
}

func buildCityPatterns() []cityPattern {
	var out []cityPattern
	for _, city := range normalize.KnownCities() {
		out = append(out, cityPattern{
			name: city,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(city)) + `\b`),
		})
	}
	return out
}

// ExtractRoute returns the origin and destination named in input. Priority:
// two parenthesized airport codes, then "from X to Y" phrasing, then known
// city names disambiguated with preferredOrigin. Either value may be empty.
func ExtractRoute(input, preferredOrigin string) (origin, destination string) {
	preferred := displayCity(preferredOrigin)

	if codes := iataParens.FindAllStringSubmatch(strings.ToUpper(input), -1); len(codes) >= 2 {
		return normalize.CityForIATA(codes[0][1]), normalize.CityForIATA(codes[1][1])
	}

	lower := strings.ToLower(input)
	for _, re := range fromToPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		origin = placeFromText(m[1])
		destination = placeFromText(m[2])
		if origin != "" && destination != "" {
			return origin, destination
		}
		origin, destination = "", ""
	}

	detected := detectCities(lower)
	switch {
	case len(detected) == 1:
		destination = detected[0]
		if preferred != "" {
			return preferred, destination
		}
	case len(detected) > 1:
		if preferred != "" && containsFold(detected, preferred) {
			for _, city := range detected {
				if !strings.EqualFold(city, preferred) {
					return preferred, city
				}
			}
		} else {
			return detected[0], detected[1]
		}
	}

	if preferred != "" && destination == "" {
		origin = preferred
	}
	return origin, destination
}

// placeFromText cleans a captured place phrase and maps it to a known city
// when one is mentioned; otherwise the cleaned text is title-cased.
func placeFromText(text string) string {
	text = inlineCode.ReplaceAllString(text, "")
	text = strings.TrimRight(strings.TrimSpace(text), ",")
	lower := strings.ToLower(text)
	for _, c := range cityPatterns {
		if strings.Contains(lower, strings.ToLower(c.name)) {
			return c.name
		}
	}
	text = strings.TrimSpace(placeTail.ReplaceAllString(text, ""))
	text = strings.TrimRight(text, ",.!? ")
	return titleWords(text)
}

// detectCities lists known cities in order of first mention.
func detectCities(lower string) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, c := range cityPatterns {
		if loc := c.re.FindStringIndex(lower); loc != nil {
			hits = append(hits, hit{c.name, loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

// displayCity turns a preference like "lhr" or "new york" into a display name.
func displayCity(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if iataLike.MatchString(s) {
		if city := normalize.CityForIATA(s); city != strings.ToUpper(s) {
			return city
		}
	}
	for _, c := range cityPatterns {
		if strings.EqualFold(c.name, s) {
			return c.name
		}
	}
	return s
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
