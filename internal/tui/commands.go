package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/debuglog"
	"github.com/pders01/citycast/internal/listctl"
	"github.com/pders01/citycast/internal/weather"
)

// loadNextPage reserves the next page with the controller and fetches it off
// the event loop.
func (a *App) loadNextPage() tea.Cmd {
	ticket, err := a.ctl.StartLoad()
	if err != nil {
		if !quietErr(err) {
			a.err = err
		}
		debuglog.Debugf("not loading next page: %v", err)
		return nil
	}
	return tea.Batch(a.spinner.Tick, a.fetchPage(ticket))
}

// retryPage refetches the page that failed.
func (a *App) retryPage() tea.Cmd {
	ticket, err := a.ctl.StartRetry()
	if err != nil {
		if errors.Is(err, listctl.ErrNotFailed) {
			a.setStatus(MsgNothingToRetry, StatusWarn)
		}
		return nil
	}
	return tea.Batch(a.spinner.Tick, a.fetchPage(ticket))
}

func (a *App) fetchPage(ticket listctl.Ticket) tea.Cmd {
	return func() tea.Msg {
		page, err := a.ctl.Fetch(ticket)
		return pageLoadedMsg{ticket: ticket, page: page, err: err}
	}
}

// scheduleSearch debounces filter updates: only the latest keystroke's tick
// applies the term.
func (a *App) scheduleSearch() tea.Cmd {
	a.searchSeq++
	seq := a.searchSeq
	return tea.Tick(a.searchDebounce, func(time.Time) tea.Msg {
		return searchDebounceFireMsg{seq: seq}
	})
}

func (a *App) fetchWeather(city cities.City) tea.Cmd {
	a.weatherSeq++
	seq := a.weatherSeq

	ctx, cancel := context.WithCancel(context.Background())
	a.weatherCancel = cancel
	provider, renderer, width := a.weather, a.renderer, a.viewport.Width

	return func() tea.Msg {
		defer cancel()
		if provider == nil {
			return weatherRenderedMsg{seq: seq, err: errors.New("weather lookups are not configured")}
		}

		report, err := provider.Current(ctx, city.Name, city.CountryCode)
		var apiErr *weather.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return weatherRenderedMsg{seq: seq, err: errors.New(MsgCityNotFound(city.Name))}
		}
		if err != nil {
			return weatherRenderedMsg{seq: seq, err: wrapErr("weather for "+city.Name, err)}
		}

		content, err := renderer.Render(report, width)
		if err != nil {
			return weatherRenderedMsg{seq: seq, report: report, err: err}
		}
		return weatherRenderedMsg{seq: seq, report: report, content: content}
	}
}

// refreshWeather drops cached reports when the provider supports it and
// fetches the selected city again.
func (a *App) refreshWeather() tea.Cmd {
	if a.selected == nil {
		return nil
	}
	if a.weatherCancel != nil {
		a.weatherCancel()
	}
	if p, ok := a.weather.(interface{ Purge() }); ok {
		p.Purge()
	}
	a.loadingWeather = true
	a.err = nil
	a.report = nil
	a.setStatus(MsgLoadingWeather, StatusInfo)
	return tea.Batch(a.spinner.Tick, a.fetchWeather(*a.selected))
}

func (a *App) openMap(city cities.City) tea.Cmd {
	opener := a.opener
	return func() tea.Msg {
		if opener == nil {
			return errorMsg{err: errors.New("no map opener configured")}
		}
		if err := opener.OpenMap(city); err != nil {
			return errorMsg{err: wrapErr("open map for "+city.Name, err)}
		}
		return mapOpenedMsg{city: city}
	}
}
