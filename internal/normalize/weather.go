package normalize

import (
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/navigator/internal/adapter/provider"
	"github.com/xiaot623/gogo/navigator/internal/domain"
)

type openWeatherPayload struct {
	Name string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

// Weather returns current conditions for location, or FallbackWeather.
func Weather(res provider.Result, location, date string) domain.WeatherInfo {
	var p openWeatherPayload
	if f := res.Decode(&p); f != nil || p.Main.Temp == nil {
		return FallbackWeather(location, date)
	}

	w := domain.WeatherInfo{
		Location:    orDefault(location, p.Name),
		Date:        date,
		Temperature: fmt.Sprintf("%.1f°C", *p.Main.Temp),
		Description: "N/A",
	}
	if len(p.Weather) > 0 && p.Weather[0].Description != "" {
		w.Description = p.Weather[0].Description
	}
	if p.Main.Humidity != nil {
		w.Humidity = fmt.Sprintf("%.0f%%", *p.Main.Humidity)
	}
	if p.Wind.Speed != nil {
		w.WindSpeed = fmt.Sprintf("%.1f m/s", *p.Wind.Speed)
	}
	return w
}

// FallbackWeather is returned whenever live weather is unavailable.
func FallbackWeather(location, date string) domain.WeatherInfo {
	return domain.WeatherInfo{
		Location:    strings.TrimSpace(location),
		Date:        date,
		Temperature: "N/A",
		Description: "Weather data unavailable",
		IsSynthetic: true,
	}
}

// WeatherInfo re-validates an already canonical value.
func WeatherInfo(w domain.WeatherInfo) domain.WeatherInfo {
	w.Temperature = orDefault(w.Temperature, "N/A")
	w.Description = orDefault(w.Description, "Weather data unavailable")
	return w
}
