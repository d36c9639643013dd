package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxQueryLength bounds search terms and city names sent to remote APIs.
const MaxQueryLength = 256

// SanitizeQuery trims a free-text search term, flattens control whitespace
// and collapses runs of spaces.
func SanitizeQuery(input string) string {
	input = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)

	input = strings.Join(strings.Fields(input), " ")

	if r := []rune(input); len(r) > MaxQueryLength {
		input = strings.TrimSpace(string(r[:MaxQueryLength]))
	}
	return input
}

// CityName validates a city name used as a weather lookup key.
func CityName(name string) (string, error) {
	name = SanitizeQuery(name)
	if name == "" {
		return "", fmt.Errorf("city name cannot be empty")
	}
	if strings.ContainsAny(name, "<>\"`&?#/") {
		return "", fmt.Errorf("city name %q contains invalid characters", name)
	}
	return name, nil
}
