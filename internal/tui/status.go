package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/listctl"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingCities  = "Loading cities…"
	MsgLoadingWeather = "Loading weather…"
	MsgAllLoaded      = "All cities loaded"
	MsgNoMatches      = "No matching cities"
	MsgNothingToRetry = "Nothing to retry"
	MsgSortCleared    = "Sort cleared"
)

func MsgCitiesCount(shown, total int, hasMore bool) string {
	suffix := ""
	if hasMore {
		suffix = "+"
	}
	if shown == total {
		return fmt.Sprintf("%d%s cities", total, suffix)
	}
	return fmt.Sprintf("%d of %d%s cities", shown, total, suffix)
}

func MsgSortedBy(spec listctl.SortSpec) string {
	if spec.IsNone() {
		return MsgSortCleared
	}
	return fmt.Sprintf("Sorted by %s (%s)", columnTitle(spec.Key), spec.Direction)
}

// MsgPageFailed describes a failed page load. Transport failures can be
// retried in place.
func MsgPageFailed(err error) string {
	if cities.IsTransportError(err) {
		return fmt.Sprintf("Loading failed: %v • ctrl+r to retry", err)
	}
	return fmt.Sprintf("Loading failed: %v", err)
}

func MsgCityNotFound(name string) string {
	return fmt.Sprintf("No weather data for %s", strings.TrimSpace(name))
}

func MsgOpenedMap(name string) string {
	return fmt.Sprintf("Opened map for %s", strings.TrimSpace(name))
}
