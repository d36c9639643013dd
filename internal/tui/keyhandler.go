package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/listctl"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey}
}

func (kh *KeyHandler) bindings() config.KeyBindings {
	return kh.config.Keys.Bindings
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return kh.app.quit()
	}

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewCities && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case kh.bindings().Back:
		return kh.app, kh.clearSearch()
	case "enter", "tab", "down":
		kh.focusTable()
		return kh.app, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

// delegateToTextInput updates the search box and debounces the filter.
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	prev := kh.app.searchInput.Value()
	newSearchInput, cmd := kh.app.searchInput.Update(msg)
	kh.app.searchInput = newSearchInput

	if kh.app.searchInput.Value() != prev {
		return kh.app, tea.Batch(cmd, kh.app.scheduleSearch())
	}
	return kh.app, cmd
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.bindings()

	switch key {
	case b.Quit:
		model, cmd := kh.app.quit()
		return model, cmd, true
	case b.Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case b.Help:
		model, cmd := kh.toggleHelp()
		return model, cmd, true
	}

	switch kh.app.view {
	case ViewCities:
		return kh.handleCitiesCustomKeys(key)
	case ViewWeather:
		return kh.handleWeatherCustomKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleCitiesCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.bindings()

	switch key {
	case b.Search:
		kh.app.table.Blur()
		kh.app.searchInput.Focus()
		return kh.app, textinput.Blink, true
	case kh.modifierKey + b.Retry:
		return kh.app, kh.app.retryPage(), true
	case kh.modifierKey + b.OpenMap:
		if city, ok := kh.app.selectedRow(); ok {
			return kh.app, kh.app.openMap(city), true
		}
		return kh.app, nil, true
	case "enter":
		city, ok := kh.app.ctl.Select(kh.app.table.Cursor())
		if !ok {
			return kh.app, nil, true
		}
		return kh.app, kh.app.openWeather(city), true
	case "0":
		kh.app.ctl.ClearSort()
		kh.app.setStatus(MsgSortCleared, StatusInfo)
		return kh.app, nil, true
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(listctl.SortKeys) {
		spec := kh.app.ctl.SetSort(listctl.SortKeys[n-1])
		kh.app.setStatus(MsgSortedBy(spec), StatusInfo)
		return kh.app, nil, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleWeatherCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	b := kh.bindings()

	switch key {
	case kh.modifierKey + b.OpenMap:
		if kh.app.selected != nil {
			return kh.app, kh.app.openMap(*kh.app.selected), true
		}
		return kh.app, nil, true
	case kh.modifierKey + b.Retry:
		return kh.app, kh.app.refreshWeather(), true
	}
	return kh.app, nil, false
}

// delegateToCharm lets Charm handle all keys we don't intercept
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewCities:
		kh.app.table, cmd = kh.app.table.Update(msg)
		return kh.app, tea.Batch(cmd, kh.app.checkScroll())

	case ViewWeather:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) focusTable() {
	kh.app.searchInput.Blur()
	kh.app.table.Focus()
}

// clearSearch empties the filter immediately, without waiting for the
// debounce.
func (kh *KeyHandler) clearSearch() tea.Cmd {
	kh.app.searchInput.Reset()
	kh.focusTable()
	kh.app.searchSeq++
	kh.app.ctl.SetSearchTerm("")
	kh.app.trigger.Reset()
	return kh.app.checkScroll()
}

func (kh *KeyHandler) toggleHelp() (tea.Model, tea.Cmd) {
	if kh.app.view == ViewHelp {
		kh.app.view = kh.app.previousView
		return kh.app, nil
	}
	kh.app.previousView = kh.app.view
	kh.app.view = ViewHelp
	return kh.app, nil
}

// navigateBack implements back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewHelp:
		kh.app.view = kh.app.previousView
		return kh.app, nil

	case ViewWeather:
		return kh.app, kh.app.closeWeather()

	case ViewCities:
		if kh.app.searchInput.Value() != "" {
			return kh.app, kh.clearSearch()
		}
		return kh.app.quit()

	default:
		return kh.app.quit()
	}
}

// GetHelpForCurrentView returns only our custom help text (Charm handles the rest)
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	b := kh.bindings()

	switch kh.app.view {
	case ViewCities:
		if kh.isInTextInputMode() {
			return []string{"enter: done", b.Back + ": clear"}
		}
		help := []string{b.Search + ": search", "1-6: sort", "enter: weather", kh.modifierKey + b.OpenMap + ": map"}
		if kh.app.snapshot.Phase == listctl.PhaseError {
			help = append(help, kh.modifierKey+b.Retry+": retry")
		}
		return append(help, b.Help+": help")

	case ViewWeather:
		return []string{b.Back + ": back", kh.modifierKey + b.OpenMap + ": map", kh.modifierKey + b.Retry + ": refresh"}

	case ViewHelp:
		return []string{b.Back + ": back"}

	default:
		return []string{}
	}
}

// keyMap feeds the bubbles help view.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Search  key.Binding
	Sort    key.Binding
	Unsort  key.Binding
	Select  key.Binding
	OpenMap key.Binding
	Retry   key.Binding
	Back    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func newKeyMap(cfg *config.Config) keyMap {
	b := cfg.Keys.Bindings
	mod := cfg.Keys.Modifier + "+"
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down (loads more near the end)")),
		Search:  key.NewBinding(key.WithKeys(b.Search), key.WithHelp(b.Search, "filter by name")),
		Sort:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6"), key.WithHelp("1-6", "sort by column, again to reverse")),
		Unsort:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "arrival order")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "show weather")),
		OpenMap: key.NewBinding(key.WithKeys(mod+b.OpenMap), key.WithHelp(mod+b.OpenMap, "open map")),
		Retry:   key.NewBinding(key.WithKeys(mod+b.Retry), key.WithHelp(mod+b.Retry, "retry / refresh")),
		Back:    key.NewBinding(key.WithKeys(b.Back), key.WithHelp(b.Back, "back")),
		Help:    key.NewBinding(key.WithKeys(b.Help), key.WithHelp(b.Help, "toggle help")),
		Quit:    key.NewBinding(key.WithKeys(b.Quit, "ctrl+c"), key.WithHelp(b.Quit, "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Sort, k.Select, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back},
		{k.Search, k.Sort, k.Unsort},
		{k.OpenMap, k.Retry, k.Help, k.Quit},
	}
}
