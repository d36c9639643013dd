package launch

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/pders01/citycast/internal/cities"
	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/debuglog"
)

const mapBase = "https://www.openstreetmap.org/"

// MapURL points at the city's position on OpenStreetMap.
func MapURL(c cities.Coordinates) string {
	q := url.Values{}
	q.Set("mlat", fmt.Sprintf("%.5f", c.Lat))
	q.Set("mlon", fmt.Sprintf("%.5f", c.Lon))
	return fmt.Sprintf("%s?%s#map=11/%.5f/%.5f", mapBase, q.Encode(), c.Lat, c.Lon)
}

// Launcher opens URLs with the system opener.
type Launcher struct {
	opener string
	start  func(cmd *exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	return &Launcher{
		opener: strings.TrimSpace(cfg.UI.Opener),
		start:  startDetached,
	}
}

// Open starts the opener on target without waiting for it to exit.
func (l *Launcher) Open(target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("refusing to open %q", target)
	}
	if l.opener == "" {
		return errors.New("no opener configured (set ui.opener)")
	}

	cmd, err := l.command(target)
	if err != nil {
		return err
	}
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.opener, err)
	}
	debuglog.Infof("opened %s with %s", target, l.opener)
	return nil
}

// OpenMap opens the city's map page.
func (l *Launcher) OpenMap(city cities.City) error {
	return l.Open(MapURL(city.Coordinates))
}

func (l *Launcher) command(target string) (*exec.Cmd, error) {
	// start is a cmd.exe builtin; the empty argument is the window title.
	if l.opener == "start" {
		return exec.Command("cmd", "/c", "start", "", target), nil
	}
	parts, err := shlex.Split(l.opener)
	if err != nil {
		return nil, fmt.Errorf("parse opener %q: %w", l.opener, err)
	}
	if len(parts) == 0 {
		return nil, errors.New("no opener configured (set ui.opener)")
	}
	return exec.Command(parts[0], append(parts[1:], target)...), nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
