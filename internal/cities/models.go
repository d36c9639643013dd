package cities

import (
	"fmt"
	"strings"
	"time"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// String renders the position as [lat, lon], the order the dataset uses.
func (c Coordinates) String() string {
	return fmt.Sprintf("[%.4f, %.4f]", c.Lat, c.Lon)
}

// City is one row of the remote city listing. Values are never modified after
// they have been decoded.
type City struct {
	Name             string      `json:"name"`
	CountryCode      string      `json:"country_code"`
	Timezone         string      `json:"timezone"`
	ModificationDate time.Time   `json:"modification_date"`
	LabelEn          string      `json:"label_en"`
	Coordinates      Coordinates `json:"coordinates"`
}

// Key identifies a row. Names repeat across countries, so the country code is
// part of the key.
func (c City) Key() string {
	return strings.ToLower(c.Name) + "|" + strings.ToUpper(c.CountryCode)
}

// Page is the result of fetching one page from a PagedSource.
type Page struct {
	Index   int
	Records []City
	// Last is true when the source returned fewer rows than its page size.
	Last bool
}
