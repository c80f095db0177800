package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire layout of DailyForecast.Date (ISO-8601 calendar date).
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	d.Time = t
	return nil
}

// DailyForecast is one day of a Forecast.
type DailyForecast struct {
	Date            Date    `json:"date"`
	Description     string  `json:"description"`
	TemperatureHigh float64 `json:"temperatureHigh"`
	TemperatureLow  float64 `json:"temperatureLow"`
	Humidity        int     `json:"humidity"`
	WindSpeed       float64 `json:"windSpeed"`
}

// Forecast is a seven-day forecast for a zip code, day 0 being the generation date.
type Forecast struct {
	Location string          `json:"location"`
	ZipCode  string          `json:"zipCode"`
	Days     []DailyForecast `json:"forecast"`
}
