package normalize

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/cities.yaml
var citiesYAML []byte

type cityTables struct {
	Airports    map[string]string `yaml:"airports"`
	HotelCities map[string]string `yaml:"hotel_cities"`
	IATACities  map[string]string `yaml:"iata_cities"`
}

var tables = mustLoadTables(citiesYAML)

func mustLoadTables(raw []byte) cityTables {
	t, err := loadTables(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func loadTables(raw []byte) (cityTables, error) {
	var t cityTables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("failed to parse city tables: %w", err)
	}
	if len(t.Airports) == 0 || len(t.HotelCities) == 0 || len(t.IATACities) == 0 {
		return t, fmt.Errorf("city tables are incomplete")
	}
	return t, nil
}

// AirportCode maps a city name to an airport code. Unmapped names fall back
// to the upper-cased input; this is a heuristic and never fails.
func AirportCode(city string) string {
	key := strings.ToLower(strings.TrimSpace(city))
	if code, ok := tables.Airports[key]; ok {
		return code
	}
	return strings.ToUpper(strings.TrimSpace(city))
}

// HotelCityCode maps a city name to a hotel search city code, falling back
// to the first three letters upper-cased.
func HotelCityCode(city string) string {
	key := strings.ToLower(strings.TrimSpace(city))
	if code, ok := tables.HotelCities[key]; ok {
		return code
	}
	r := []rune(strings.TrimSpace(city))
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// CityForIATA returns the display city for an airport code, or the upper-cased
// code itself when unknown.
func CityForIATA(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if city, ok := tables.IATACities[code]; ok {
		return city
	}
	return code
}

// KnownCities lists the display names of recognised cities, longest first so
// that "New York" wins over any shorter overlapping name.
func KnownCities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, city := range tables.IATACities {
		if !seen[city] {
			seen[city] = true
			out = append(out, city)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
