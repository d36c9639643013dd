package cities

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pders01/citycast/internal/debuglog"
)

var errMalformedResponse = errors.New("malformed listing response")

// modificationLayouts are the date formats seen in the dataset.
var modificationLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// decodeRecords extracts cities from a records listing body. It returns the
// decoded cities and the number of records on the wire; a record that cannot
// be decoded is dropped and logged instead of failing the page.
func decodeRecords(body []byte, page int) ([]City, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("%w: invalid JSON", errMalformedResponse)
	}

	records := gjson.GetBytes(body, "records")
	if !records.IsArray() {
		return nil, 0, fmt.Errorf("%w: missing records array", errMalformedResponse)
	}

	raw := records.Array()
	out := make([]City, 0, len(raw))
	for i, rec := range raw {
		city, err := decodeCity(rec.Get("fields"))
		if err != nil {
			debuglog.WithFields(map[string]any{
				"page":     page,
				"position": i,
				"recordid": rec.Get("recordid").String(),
			}).Warnf("dropping city record: %v", err)
			continue
		}
		out = append(out, city)
	}
	return out, len(raw), nil
}

func decodeCity(fields gjson.Result) (City, error) {
	if !fields.IsObject() {
		return City{}, errors.New("record has no fields object")
	}

	name := strings.TrimSpace(fields.Get("name").String())
	if name == "" {
		return City{}, errors.New("missing name")
	}
	country := strings.TrimSpace(fields.Get("country_code").String())
	if country == "" {
		return City{}, fmt.Errorf("city %q: missing country_code", name)
	}

	coords, err := decodeCoordinates(fields)
	if err != nil {
		return City{}, fmt.Errorf("city %q: %w", name, err)
	}

	return City{
		Name:             name,
		CountryCode:      country,
		Timezone:         fields.Get("timezone").String(),
		ModificationDate: parseModificationDate(fields.Get("modification_date").String()),
		LabelEn:          fields.Get("label_en").String(),
		Coordinates:      coords,
	}, nil
}

// decodeCoordinates reads the geo point, which the dataset publishes as
// [lat, lon], falling back to the separate lon/lat fields.
func decodeCoordinates(fields gjson.Result) (Coordinates, error) {
	if point := fields.Get("coordinates"); point.Exists() {
		parts := point.Array()
		if !point.IsArray() || len(parts) != 2 || parts[0].Type != gjson.Number || parts[1].Type != gjson.Number {
			return Coordinates{}, fmt.Errorf("unparseable coordinates %s", point.Raw)
		}
		return Coordinates{Lat: parts[0].Float(), Lon: parts[1].Float()}, nil
	}

	lon, lat := fields.Get("lon"), fields.Get("lat")
	if lon.Type == gjson.Number && lat.Type == gjson.Number {
		return Coordinates{Lon: lon.Float(), Lat: lat.Float()}, nil
	}
	if lon.Exists() || lat.Exists() {
		return Coordinates{}, fmt.Errorf("unparseable coordinates lon=%s lat=%s", lon.Raw, lat.Raw)
	}
	return Coordinates{}, nil
}

func parseModificationDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range modificationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	debuglog.Debugf("unrecognised modification_date %q", s)
	return time.Time{}
}
