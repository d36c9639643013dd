package tui

import (
	"github.com/charmbracelet/bubbles/table"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/listctl"
)

// Preferred column widths, in the order of listctl.SortKeys.
var baseColumnWidths = []int{24, 7, 24, 10, 20, 20}

const minColumnWidth = 4

func columnTitle(k listctl.SortKey) string {
	switch k {
	case listctl.SortName:
		return "Name"
	case listctl.SortCountryCode:
		return "Country"
	case listctl.SortTimezone:
		return "Timezone"
	case listctl.SortModificationDate:
		return "Modified"
	case listctl.SortLabelEn:
		return "Label"
	case listctl.SortCoordinates:
		return "Coordinates"
	default:
		return string(k)
	}
}

func columnWidths(total int) []int {
	widths := make([]int, len(baseColumnWidths))
	copy(widths, baseColumnWidths)

	sum := 0
	for _, w := range widths {
		sum += w
	}
	// Each cell carries one column of padding on both sides.
	avail := total - 2*len(widths)
	if total <= 0 || avail >= sum {
		return widths
	}
	for i, w := range widths {
		widths[i] = max(minColumnWidth, w*avail/sum)
	}
	return widths
}

func tableColumns(width int, spec listctl.SortSpec) []table.Column {
	widths := columnWidths(width)
	cols := make([]table.Column, len(listctl.SortKeys))
	for i, k := range listctl.SortKeys {
		title := columnTitle(k)
		if spec.Key == k {
			if spec.Direction == listctl.Descending {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		cols[i] = table.Column{Title: truncateEnd(title, widths[i]), Width: widths[i]}
	}
	return cols
}

func cityRow(c cities.City, widths []int) table.Row {
	return table.Row{
		c.Name,
		c.CountryCode,
		truncateMiddle(c.Timezone, widths[2]),
		formatDate(c.ModificationDate),
		c.LabelEn,
		c.Coordinates.String(),
	}
}

func tableRows(records []cities.City, width int) []table.Row {
	widths := columnWidths(width)
	rows := make([]table.Row, len(records))
	for i, c := range records {
		rows[i] = cityRow(c, widths)
	}
	return rows
}

func newCityTable() table.Model {
	t := table.New(
		table.WithColumns(tableColumns(0, listctl.SortSpec{})),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = TableHeaderStyle
	styles.Selected = TableSelectedStyle
	t.SetStyles(styles)
	return t
}
