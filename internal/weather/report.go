package weather

import (
	"strings"
	"time"
)

// Condition is a coarse classification of the weather description used to
// tint the report.
type Condition string

const (
	ConditionSunny   Condition = "sunny"
	ConditionCloudy  Condition = "cloudy"
	ConditionRainy   Condition = "rainy"
	ConditionDefault Condition = "default"
)

// ClassifyCondition maps a description such as "light rain" to a Condition.
func ClassifyCondition(description string) Condition {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "clear"):
		return ConditionSunny
	case strings.Contains(d, "cloud"):
		return ConditionCloudy
	case strings.Contains(d, "rain"), strings.Contains(d, "snow"):
		return ConditionRainy
	default:
		return ConditionDefault
	}
}

// Report is the current weather for one city.
type Report struct {
	City        string
	Country     string
	Units       string
	Temperature float64
	Description string
	Icon        string
	Humidity    int
	WindSpeed   float64
	Pressure    int
	// Precipitation is the last hour of rain, or snow when there is no rain, in mm.
	Precipitation float64
	Sunrise       time.Time
	Sunset        time.Time
	// UTCOffset is the city's offset from UTC in seconds.
	UTCOffset int
	FetchedAt time.Time
}

func (r Report) Condition() Condition {
	return ClassifyCondition(r.Description)
}

// LocalTime converts t to the city's local time.
func (r Report) LocalTime(t time.Time) time.Time {
	return t.In(time.FixedZone("", r.UTCOffset))
}

type unitLabels struct {
	temperature string
	speed       string
}

func labelsFor(units string) unitLabels {
	switch units {
	case "imperial":
		return unitLabels{temperature: "°F", speed: "mph"}
	case "standard":
		return unitLabels{temperature: "K", speed: "m/s"}
	default:
		return unitLabels{temperature: "°C", speed: "m/s"}
	}
}
