package tui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/pders01/citycast/internal/config"
	"github.com/pders01/citycast/internal/weather"
)

func TestShowBanner(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	ShowBanner("1.0.0-test")

	w.Close()
	os.Stdout = old
	out := <-outC

	if !strings.Contains(out, Tagline) {
		t.Errorf("Expected banner to contain %q, got: %s", Tagline, out)
	}
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╝") {
		t.Errorf("Expected banner to contain border characters, got: %s", out)
	}
	if !strings.Contains(out, "☂") {
		t.Errorf("Expected banner to contain separator symbols, got: %s", out)
	}
	if !strings.Contains(out, "v1.0.0-test") {
		t.Errorf("Expected banner to contain version 'v1.0.0-test', got: %s", out)
	}
}

func TestBanner_DevVersion(t *testing.T) {
	out := Banner("dev")
	assert.Contains(t, out, Tagline)
	assert.NotContains(t, out, "vdev")
}

func TestGetCompactBanner(t *testing.T) {
	result := GetCompactBanner("Test message")
	assert.Contains(t, result, "Test message")
	assert.Contains(t, result, "▄█▄")
}

func TestGetWelcomeMessage(t *testing.T) {
	assert.Contains(t, GetWelcomeMessage(), "first page of cities")
}

func TestApplyTheme(t *testing.T) {
	saved := PrimaryColor
	defer func() {
		PrimaryColor = saved
		buildStyles()
	}()

	ApplyTheme(config.UIColors{Primary: "#123456"})
	assert.Equal(t, lipgloss.Color("#123456"), PrimaryColor)
	assert.Equal(t, lipgloss.Color("#123456"), LogoStyle.GetForeground())

	before := MutedColor
	ApplyTheme(config.UIColors{})
	assert.Equal(t, before, MutedColor, "empty entries keep the current color")
}

func TestConditionColor(t *testing.T) {
	assert.Equal(t, lipgloss.Color("#3498DB"), ConditionColor(weather.ConditionRainy))
	assert.Equal(t, AccentColor, ConditionColor(weather.ConditionDefault))
}
