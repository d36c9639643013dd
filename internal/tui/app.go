package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/debuglog"
	"github.com/pders01/citycast/internal/listctl"
	"github.com/pders01/citycast/internal/validation"
	"github.com/pders01/citycast/internal/weather"
)

// WeatherProvider looks up the current weather for a city.
type WeatherProvider interface {
	Current(ctx context.Context, name, countryCode string) (weather.Report, error)
}

// MapOpener shows a city on a map outside the terminal.
type MapOpener interface {
	OpenMap(city cities.City) error
}

// Lines taken by everything except the table: header (2), search box (3),
// separator and status bar.
const listChrome = 7

type App struct {
	config     *config.Config
	keyHandler *KeyHandler
	keys       keyMap
	ctl        *listctl.Controller
	trigger    *listctl.Trigger
	weather    WeatherProvider
	renderer   *weather.Renderer
	opener     MapOpener

	table       table.Model
	searchInput textinput.Model
	viewport    viewport.Model
	spinner     spinner.Model
	help        help.Model

	view         View
	previousView View
	width        int
	height       int

	snapshot   listctl.Snapshot
	status     string
	statusKind StatusKind
	err        error

	searchSeq      int
	searchDebounce time.Duration

	selected       *cities.City
	report         *weather.Report
	loadingWeather bool
	weatherSeq     int
	weatherCancel  context.CancelFunc
}

func NewApp(cfg *config.Config, source cities.PagedSource, provider WeatherProvider, opener MapOpener) *App {
	ApplyTheme(cfg.UI.Colors)

	si := textinput.New()
	si.Placeholder = "Filter cities by name…"
	si.Prompt = "/ "
	si.CharLimit = validation.MaxQueryLength

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	debounce := cfg.UI.List.SearchDebounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	app := &App{
		config:         cfg,
		trigger:        listctl.NewTrigger(cfg.UI.List.ScrollThreshold),
		weather:        provider,
		renderer:       weather.NewRenderer("auto"),
		opener:         opener,
		table:          newCityTable(),
		searchInput:    si,
		viewport:       viewport.New(0, 0),
		spinner:        sp,
		help:           help.New(),
		view:           ViewCities,
		previousView:   ViewCities,
		searchDebounce: debounce,
	}

	app.ctl = listctl.NewController(source, listctl.Options{
		FetchTimeout: cfg.Source.FetchTimeout,
		OnCitySelected: func(c cities.City) {
			app.selected = &c
		},
	})
	if key, err := listctl.ParseSortKey(cfg.UI.List.Sort); err != nil {
		debuglog.Warnf("ignoring ui.list.sort: %v", err)
	} else if key != listctl.SortNone {
		app.ctl.SetSort(key)
	}
	app.ctl.Subscribe(app.applySnapshot)
	app.snapshot = app.ctl.Snapshot()

	app.keyHandler = NewKeyHandler(app, cfg)
	app.keys = newKeyMap(cfg)

	return app
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadNextPage(), tea.EnterAltScreen)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		// The first page is requested by Init.
		if a.snapshot.Total > 0 {
			cmds = append(cmds, a.checkScroll())
		}

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case spinner.TickMsg:
		if a.ctl.Loading() || a.loadingWeather {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case pageLoadedMsg:
		if !a.ctl.Complete(msg.ticket, msg.page, msg.err) {
			return a, nil
		}
		// Keep filling the screen while the unfiltered list is shorter than it.
		if msg.err == nil && a.snapshot.Term == "" {
			cmds = append(cmds, a.checkScroll())
		}

	case searchDebounceFireMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		a.ctl.SetSearchTerm(validation.SanitizeQuery(a.searchInput.Value()))
		a.table.GotoTop()
		a.trigger.Reset()

	case weatherRenderedMsg:
		if msg.seq != a.weatherSeq || a.view != ViewWeather {
			return a, nil
		}
		a.applyWeather(msg)

	case mapOpenedMsg:
		a.setStatus(MsgOpenedMap(msg.city.Name), StatusSuccess)

	case errorMsg:
		a.err = msg.err
		a.setStatus(msg.err.Error(), StatusError)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.table.SetWidth(width)
	a.table.SetHeight(max(3, height-listChrome))
	a.table.SetColumns(tableColumns(width, a.snapshot.Sort))
	a.table.SetRows(tableRows(a.snapshot.View, width))

	inputWidth := width - 6
	if inputWidth < 10 {
		inputWidth = width
	}
	a.searchInput.Width = inputWidth

	a.viewport.Width = max(0, width-2)
	a.viewport.Height = max(1, height-4)
	a.help.Width = width
}

// applySnapshot is the controller subscription. It runs synchronously inside
// controller calls made from Update.
func (a *App) applySnapshot(s listctl.Snapshot) {
	a.snapshot = s

	a.table.SetColumns(tableColumns(a.width, s.Sort))
	a.table.SetRows(tableRows(s.View, a.width))
	if len(s.View) > 0 {
		a.table.SetCursor(a.table.Cursor())
	}

	if a.view != ViewCities {
		return
	}
	a.err = nil
	switch s.Phase {
	case listctl.PhaseLoading:
		a.setStatus(MsgLoadingCities, StatusInfo)
	case listctl.PhaseError:
		a.err = s.Err
		a.setStatus(MsgPageFailed(s.Err), StatusError)
	case listctl.PhaseExhausted:
		a.setStatus(MsgAllLoaded+" • "+MsgCitiesCount(len(s.View), s.Total, false), StatusSuccess)
	default:
		a.setStatus(MsgCitiesCount(len(s.View), s.Total, s.HasMore), StatusInfo)
	}
	if s.Term != "" && len(s.View) == 0 && s.Phase != listctl.PhaseError {
		a.setStatus(MsgNoMatches, StatusWarn)
	}
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

// listViewport maps the table onto the scroll trigger's viewport. The table
// keeps the cursor on its last visible row while scrolling down.
func (a *App) listViewport() listctl.Viewport {
	height := a.table.Height()
	offset := a.table.Cursor() - height + 1
	if offset < 0 {
		offset = 0
	}
	return listctl.Viewport{
		Offset:        offset,
		Height:        height,
		ContentHeight: len(a.snapshot.View),
	}
}

// checkScroll requests the next page when the table nears its end. A failed
// page waits for an explicit retry.
func (a *App) checkScroll() tea.Cmd {
	if a.view != ViewCities || a.snapshot.Phase == listctl.PhaseError {
		return nil
	}
	if a.trigger.Observe(a.listViewport(), a.snapshot.Phase == listctl.PhaseLoading, a.snapshot.HasMore) {
		return a.loadNextPage()
	}
	return nil
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch a.view {
	case ViewCities:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.table.MoveUp(3)
		case tea.MouseButtonWheelDown:
			a.table.MoveDown(3)
			return a.checkScroll()
		}
	case ViewWeather:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) selectedRow() (cities.City, bool) {
	idx := a.table.Cursor()
	if idx < 0 || idx >= len(a.snapshot.View) {
		return cities.City{}, false
	}
	return a.snapshot.View[idx], true
}

// openWeather leaves the list for the weather panel. Leaving the list
// abandons any page fetch in flight.
func (a *App) openWeather(city cities.City) tea.Cmd {
	a.ctl.Cancel()
	a.previousView = a.view
	a.view = ViewWeather
	a.selected = &city
	a.report = nil
	a.err = nil
	a.loadingWeather = true
	a.viewport.SetContent("")
	a.setStatus(MsgLoadingWeather, StatusInfo)
	debuglog.WithFields(map[string]any{"city": city.Key()}).Debugf("opening weather view")
	return tea.Batch(a.spinner.Tick, a.fetchWeather(city))
}

func (a *App) applyWeather(msg weatherRenderedMsg) {
	a.loadingWeather = false
	a.weatherCancel = nil
	if msg.err != nil {
		a.err = msg.err
		a.setStatus(msg.err.Error(), StatusError)
		a.viewport.SetContent(renderCentered(a.viewport.Width, a.viewport.Height,
			StatusErrorStyle.Render("✗ "+msg.err.Error())+"\n\n"+renderHelp("ctrl+r to try again • esc to go back")))
		return
	}
	report := msg.report
	a.report = &report
	a.viewport.SetContent(msg.content)
	a.viewport.GotoTop()
	a.setStatus(fmt.Sprintf("%.1f • %s", report.Temperature, report.Description), StatusSuccess)
}

// closeWeather returns to the list and resumes paging where it stopped.
func (a *App) closeWeather() tea.Cmd {
	if a.weatherCancel != nil {
		a.weatherCancel()
		a.weatherCancel = nil
	}
	a.weatherSeq++
	a.loadingWeather = false
	a.view = ViewCities
	a.err = nil
	a.applySnapshot(a.ctl.Snapshot())
	a.trigger.Reset()
	return a.checkScroll()
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.ctl.Cancel()
	if a.weatherCancel != nil {
		a.weatherCancel()
	}
	return a, tea.Quit
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewCities:
		content = a.citiesView()
	case ViewWeather:
		content = a.weatherView()
	case ViewHelp:
		a.help.ShowAll = true
		content = lipgloss.JoinVertical(lipgloss.Top,
			renderHeader(CompactLogo+" help", "esc to go back", a.width),
			"",
			a.help.View(a.keys),
		)
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(max(0, a.height-2)).
		MaxHeight(max(0, a.height-2)).
		Render(content)

	separator := SeparatorStyle.Render(strings.Repeat("─", max(0, a.width)))
	return lipgloss.JoinVertical(lipgloss.Top, content, separator, a.statusBar())
}

func (a *App) citiesView() string {
	if a.snapshot.Total == 0 && a.snapshot.Phase == listctl.PhaseLoading {
		return renderCentered(a.width, max(0, a.height-2), GetWelcomeMessage())
	}

	subtitle := MsgCitiesCount(len(a.snapshot.View), a.snapshot.Total, a.snapshot.HasMore)
	if !a.snapshot.Sort.IsNone() {
		subtitle += " • " + MsgSortedBy(a.snapshot.Sort)
	}

	return lipgloss.JoinVertical(lipgloss.Top,
		renderHeader(CompactLogo+" cities", subtitle, a.width),
		renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
		a.table.View(),
	)
}

func (a *App) weatherView() string {
	title := CompactLogo + " weather"
	subtitle := ""
	if c := a.selected; c != nil {
		title = fmt.Sprintf("%s %s, %s", CompactLogo, c.Name, c.CountryCode)
		subtitle = strings.Join([]string{c.Timezone, c.Coordinates.String()}, " • ")
	}
	header := renderHeader(title, subtitle, a.width)

	if a.loadingWeather {
		return lipgloss.JoinVertical(lipgloss.Top, header,
			renderCentered(a.width, max(0, a.height-4), a.spinner.View()+" "+MsgLoadingWeather))
	}

	tint := AccentColor
	if a.report != nil {
		tint = ConditionColor(a.report.Condition())
	} else if a.err != nil {
		tint = ErrorColor
	}
	return lipgloss.JoinVertical(lipgloss.Top, header, renderPanel(a.viewport.View(), tint))
}

func (a *App) statusBar() string {
	var left string
	if a.ctl.Loading() || a.loadingWeather {
		left = a.spinner.View() + " "
	}
	left += a.statusKind.style().Render(a.status)

	hints := strings.Join(a.keyHandler.GetHelpForCurrentView(), " • ")
	line := left
	if hints != "" {
		if left != "" {
			line += renderMuted(" • ")
		}
		line += renderMuted(hints)
	}
	return StatusBarStyle.Width(a.width).MaxHeight(1).Render(line)
}
