package weather

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
)

// Markdown lays out a report as a markdown document.
func Markdown(r Report) string {
	labels := labelsFor(r.Units)

	var b strings.Builder
	title := r.City
	if r.Country != "" {
		title += ", " + r.Country
	}
	fmt.Fprintf(&b, "# Weather in %s\n\n", title)
	fmt.Fprintf(&b, "## %.1f %s\n\n", r.Temperature, labels.temperature)
	if r.Description != "" {
		fmt.Fprintf(&b, "**%s**\n\n", capitalize(r.Description))
	}

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Humidity | %d%% |\n", r.Humidity)
	fmt.Fprintf(&b, "| Wind speed | %.1f %s |\n", r.WindSpeed, labels.speed)
	fmt.Fprintf(&b, "| Pressure | %d hPa |\n", r.Pressure)
	fmt.Fprintf(&b, "| Precipitation | %.1f mm |\n", r.Precipitation)
	fmt.Fprintf(&b, "| Sunrise | %s |\n", r.clock(r.Sunrise))
	fmt.Fprintf(&b, "| Sunset | %s |\n", r.clock(r.Sunset))

	if !r.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "\n*Updated %s*\n", r.FetchedAt.Format("15:04:05"))
	}
	return b.String()
}

func (r Report) clock(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return r.LocalTime(t).Format("15:04")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// Renderer turns reports into terminal output with glamour. The underlying
// renderer is rebuilt only when the width changes noticeably.
type Renderer struct {
	style string

	mu       sync.Mutex
	renderer *glamour.TermRenderer
	width    int
}

// NewRenderer creates a renderer. style is a glamour standard style name, or
// "auto" to detect it from the terminal.
func NewRenderer(style string) *Renderer {
	if style == "" {
		style = "auto"
	}
	return &Renderer{style: style}
}

func (r *Renderer) Render(report Report, width int) (string, error) {
	tr, err := r.get(width)
	if err != nil {
		return "", err
	}
	out, err := tr.Render(Markdown(report))
	if err != nil {
		return "", fmt.Errorf("render weather report: %w", err)
	}
	return out, nil
}

func (r *Renderer) get(width int) (*glamour.TermRenderer, error) {
	wrap := width - 4
	if wrap < 40 {
		wrap = 40
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer != nil && abs(r.width-wrap) <= 10 {
		return r.renderer, nil
	}

	styleOpt := glamour.WithStandardStyle(r.style)
	if r.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	r.renderer = tr
	r.width = wrap
	return tr, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
