package tui

import (
	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/listctl"
	"github.com/pders01/citycast/internal/weather"
)

type View int

const (
	ViewCities View = iota
	ViewWeather
	ViewHelp
)

func (v View) String() string {
	switch v {
	case ViewCities:
		return "cities"
	case ViewWeather:
		return "weather"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

type pageLoadedMsg struct {
	ticket listctl.Ticket
	page   cities.Page
	err    error
}

type weatherRenderedMsg struct {
	seq     int
	report  weather.Report
	content string
	err     error
}

type searchDebounceFireMsg struct {
	seq int
}

type mapOpenedMsg struct {
	city cities.City
}

type errorMsg struct {
	err error
}
