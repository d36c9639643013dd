package listctl

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/pders01/citycast/internal/cities"
)

// SortKey names a City field the view can be ordered by.
type SortKey string

const (
	SortNone             SortKey = ""
	SortName             SortKey = "name"
	SortCountryCode      SortKey = "country_code"
	SortTimezone         SortKey = "timezone"
	SortModificationDate SortKey = "modification_date"
	SortLabelEn          SortKey = "label_en"
	SortCoordinates      SortKey = "coordinates"
)

// SortKeys lists the sortable keys in column order.
var SortKeys = []SortKey{
	SortName,
	SortCountryCode,
	SortTimezone,
	SortModificationDate,
	SortLabelEn,
	SortCoordinates,
}

// ParseSortKey maps a field name to its SortKey.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if k == SortNone || slices.Contains(SortKeys, k) {
		return k, nil
	}
	return SortNone, fmt.Errorf("unknown sort key %q", s)
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortSpec selects the view order. The zero value means insertion order.
type SortSpec struct {
	Key       SortKey
	Direction Direction
}

func (s SortSpec) IsNone() bool {
	return s.Key == SortNone
}

// ToggleSort returns the spec that results from requesting a sort on key.
// Requesting the current key while ascending flips to descending; any other
// request starts a fresh ascending sort.
func ToggleSort(current SortSpec, key SortKey) SortSpec {
	if key == SortNone {
		return SortSpec{}
	}
	if current.Key == key && current.Direction == Ascending {
		return SortSpec{Key: key, Direction: Descending}
	}
	return SortSpec{Key: key, Direction: Ascending}
}

// Compute filters records by a case-insensitive substring match on the name
// and orders the result according to spec. The input is never modified.
//
// Descending order is the reverse of the stable ascending order, so toggling
// the direction reverses the rendered sequence element for element.
func Compute(records []cities.City, term string, spec SortSpec) []cities.City {
	out := filter(records, term)
	if spec.IsNone() {
		return out
	}

	slices.SortStableFunc(out, func(a, b cities.City) int {
		return compare(a, b, spec.Key)
	})
	if spec.Direction == Descending {
		slices.Reverse(out)
	}
	return out
}

func filter(records []cities.City, term string) []cities.City {
	out := make([]cities.City, 0, len(records))
	needle := strings.ToLower(term)
	for _, c := range records {
		if needle == "" || strings.Contains(strings.ToLower(c.Name), needle) {
			out = append(out, c)
		}
	}
	return out
}

func compare(a, b cities.City, key SortKey) int {
	switch key {
	case SortName:
		return strings.Compare(a.Name, b.Name)
	case SortCountryCode:
		return strings.Compare(a.CountryCode, b.CountryCode)
	case SortTimezone:
		return strings.Compare(a.Timezone, b.Timezone)
	case SortModificationDate:
		return a.ModificationDate.Compare(b.ModificationDate)
	case SortLabelEn:
		return strings.Compare(a.LabelEn, b.LabelEn)
	case SortCoordinates:
		if c := cmp.Compare(a.Coordinates.Lon, b.Coordinates.Lon); c != 0 {
			return c
		}
		return cmp.Compare(a.Coordinates.Lat, b.Coordinates.Lat)
	default:
		return 0
	}
}
