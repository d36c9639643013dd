package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/weather"
)

const AppName = "citycast"

const Tagline = "City Weather"

// LogoLines is the block-letter wordmark.
var LogoLines = []string{
	" ▄▄▄ ▀ ▄█▄ ▄  ▄  ▄▄▄  ▄▄▄   ▄▄▄ ▄█▄",
	"█    █  █  █▄▄█ █    █▄▄▄█ ▀▄▄   █ ",
	"▀▀▀▀ ▀  ▀▀ ▄▄▄▀  ▀▀▀ ▀   ▀ ▄▄▄▀  ▀▀",
}

const CompactLogo = `citycast ›`

// Banner gradient from dawn to dusk.
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#F39C12"),
	lipgloss.Color("#E67E22"),
	lipgloss.Color("#8E44AD"),
}

var (
	PrimaryColor   = lipgloss.Color("#F39C12")
	SecondaryColor = lipgloss.Color("#8E44AD")
	AccentColor    = lipgloss.Color("#4ECDC4")

	SurfaceColor = lipgloss.Color("#16213E")
	TextColor    = lipgloss.Color("#EAEAEA")
	MutedColor   = lipgloss.Color("#94A3B8")

	WarnColor    = lipgloss.Color("#FACC15")
	ErrorColor   = lipgloss.Color("#F87171")
	SuccessColor = lipgloss.Color("#4ADE80")
)

// Condition tints for the weather panel.
var conditionColors = map[weather.Condition]lipgloss.Color{
	weather.ConditionSunny:  lipgloss.Color("#F1C40F"),
	weather.ConditionCloudy: lipgloss.Color("#95A5A6"),
	weather.ConditionRainy:  lipgloss.Color("#3498DB"),
}

var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	StatusBarStyle     lipgloss.Style
	HelpStyle          lipgloss.Style
	SeparatorStyle     lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
	TableHeaderStyle   lipgloss.Style
	TableSelectedStyle lipgloss.Style
)

func init() {
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)
	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	StatusBarStyle = lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusWarnStyle = lipgloss.NewStyle().Foreground(WarnColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Foreground(SecondaryColor).
		Bold(true).
		Padding(0, 1)
	TableSelectedStyle = lipgloss.NewStyle().
		Foreground(SurfaceColor).
		Background(AccentColor).
		Bold(true)
}

// ApplyTheme replaces the palette with configured colors. Empty entries keep
// the built-in color.
func ApplyTheme(c config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	buildStyles()
}

// ConditionColor picks the panel tint for a weather condition.
func ConditionColor(c weather.Condition) lipgloss.Color {
	if color, ok := conditionColors[c]; ok {
		return color
	}
	return AccentColor
}

func GetWelcomeMessage() string {
	return GetCompactBanner("Fetching the first page of cities…")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	return lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, coloredLines...),
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the boxed startup banner.
func Banner(version string) string {
	lines := make([]string, 0, len(LogoLines)+2)
	lines = append(lines, LogoLines...)
	lines = append(lines, "")

	tagline := "    " + Tagline
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tagline = fmt.Sprintf("%s %s", tagline, version)
	}
	lines = append(lines, tagline)

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(BannerColors[i%len(BannerColors)]).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	border := lipgloss.Border{
		Top:         "═",
		Bottom:      "═",
		Left:        "║",
		Right:       "║",
		TopLeft:     "╔",
		TopRight:    "╗",
		BottomLeft:  "╚",
		BottomRight: "╝",
	}
	boxed := lipgloss.NewStyle().
		Border(border).
		BorderForeground(AccentColor).
		Padding(1, 3).
		MarginTop(1).
		Render(lipgloss.JoinVertical(lipgloss.Center, coloredLines...))

	separator := lipgloss.NewStyle().Foreground(AccentColor).Render("☼ ☁ ☂ ☁ ☼")

	return lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.NewStyle().Width(70).Align(lipgloss.Center).Render(boxed),
		lipgloss.NewStyle().Width(70).Align(lipgloss.Center).MarginBottom(1).Render(separator),
	)
}

func ShowBanner(version string) {
	fmt.Println(Banner(version))
}
