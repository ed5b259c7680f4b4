package normalize

import (
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
)

const (
	maxHotels    = 10
	maxAmenities = 5
)

// HotelQuery is the request context a hotel result is normalized against.
type HotelQuery struct {
	Location string
}

type amadeusHotels struct {
	Data []struct {
		Name    string `json:"name"`
		HotelID string `json:"hotelId"`
		Rating  any    `json:"rating"`
		Address struct {
			Lines    []string `json:"lines"`
			CityName string   `json:"cityName"`
		} `json:"address"`
		Amenities []string `json:"amenities"`
	} `json:"data"`
}

var baseAmenities = []string{"Free WiFi", "Air Conditioning", "Restaurant"}

// Hotels returns canonical hotel options, or FallbackHotels when the provider
// result is unusable.
func Hotels(res provider.Result, q HotelQuery) []domain.HotelOption {
	var payload amadeusHotels
	if f := res.Decode(&payload); f != nil {
		return FallbackHotels(q.Location)
	}

	var out []domain.HotelOption
	for _, h := range payload.Data {
		if strings.TrimSpace(h.Name) == "" {
			continue
		}
		address := strings.Join(h.Address.Lines, ", ")
		if address == "" {
			address = orDefault(h.Address.CityName, q.Location)
		}
		out = append(out, HotelOption(domain.HotelOption{
			Name:      titleCase(h.Name),
			Price:     "Price on request",
			Rating:    ratingString(h.Rating),
			Address:   address,
			Amenities: h.Amenities,
		}))
		if len(out) == maxHotels {
			break
		}
	}
	if len(out) == 0 {
		return FallbackHotels(q.Location)
	}
	return out
}

var hotelTiers = []struct {
	minPrice int
	suffix   string
}{
	{40, "Inn"},     // Budget
	{90, "Hotel"},   // Mid-Range
	{200, "Resort"}, // Luxury
}

// FallbackHotels synthesizes a budget, mid-range and luxury option.
func FallbackHotels(location string) []domain.HotelOption {
	location = orDefault(strings.TrimSpace(location), "City Center")
	out := make([]domain.HotelOption, 0, len(hotelTiers))
	for i, tier := range hotelTiers {
		amenities := append([]string(nil), baseAmenities...)
		if i > 0 {
			amenities = append(amenities, "Fitness Center")
		}
		if i > 1 {
			amenities = append(amenities, "Swimming Pool")
		}
		out = append(out, domain.HotelOption{
			Name:        location + " " + tier.suffix,
			Price:       fmt.Sprintf("$%d/night", tier.minPrice+20*i),
			Rating:      fmt.Sprintf("%.1f", 3.5+0.7*float64(i)),
			Address:     "Downtown " + location,
			Amenities:   amenities,
			IsSynthetic: true,
		})
	}
	return out
}

// HotelOption re-validates an already canonical option.
func HotelOption(h domain.HotelOption) domain.HotelOption {
	h.Name = orDefault(h.Name, "Unnamed hotel")
	h.Price = orDefault(h.Price, "Price on request")
	h.Rating = orDefault(h.Rating, "N/A")
	h.Address = orDefault(h.Address, "Address unavailable")
	h.Amenities = capList(compact(h.Amenities), maxAmenities)
	if len(h.Amenities) == 0 {
		h.Amenities = append([]string(nil), baseAmenities...)
	}
	return h
}

func ratingString(v any) string {
	switch r := v.(type) {
	case float64:
		return fmt.Sprintf("%.1f", r)
	case string:
		return r
	default:
		return ""
	}
}
