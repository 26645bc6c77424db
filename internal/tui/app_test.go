package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

func sampleDoc() Document {
	return Document{
		Title:   "Dine-in receipt",
		Preview: "ACME COFFEE",
		Tokens: []markup.Token{
			{Kind: markup.TokenBold},
			{Kind: markup.TokenText, Text: "ACME COFFEE"},
			{Kind: markup.TokenReset},
			{Kind: markup.TokenNewline},
		},
		Warnings: []markup.Warning{{Code: markup.WarnUnknownComponent, ComponentID: "x", Rank: 4, Message: "unknown component type: \"hologram\""}},
	}
}

func loadedApp(t *testing.T, doc Document, err error) *App {
	t.Helper()
	calls := 0
	a := NewApp(func() (Document, error) {
		calls++
		return doc, err
	})
	a.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	msg := a.loadCmd()()
	require.IsType(t, loadedMsg{}, msg)
	a.Update(msg)
	require.Equal(t, 1, calls)
	return a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_NotReadyBeforeResize(t *testing.T) {
	a := NewApp(func() (Document, error) { return Document{}, nil })
	assert.Contains(t, a.View(), "Loading")
}

func TestApp_ShowsPreview(t *testing.T) {
	a := loadedApp(t, sampleDoc(), nil)

	assert.Equal(t, TabReceipt, a.activeTab)
	assert.False(t, a.loading)
	view := a.View()
	assert.Contains(t, view, "Dine-in receipt")
	assert.Contains(t, view, "ACME COFFEE")
	assert.Contains(t, view, "Warnings (1)")
}

func TestApp_TabSwitching(t *testing.T) {
	a := loadedApp(t, sampleDoc(), nil)

	a.Update(key("2"))
	assert.Equal(t, TabMarkup, a.activeTab)
	assert.Contains(t, a.viewport.View(), "[BOLD]")
	assert.Contains(t, a.viewport.View(), "[RESET]")

	a.Update(key("tab"))
	assert.Equal(t, TabWarnings, a.activeTab)
	assert.Contains(t, a.viewport.View(), "unknown_component")

	a.Update(key("tab"))
	assert.Equal(t, TabReceipt, a.activeTab)

	a.Update(key("shift+tab"))
	assert.Equal(t, TabWarnings, a.activeTab)

	a.Update(key("1"))
	assert.Equal(t, TabReceipt, a.activeTab)
}

func TestApp_NoWarnings(t *testing.T) {
	doc := sampleDoc()
	doc.Warnings = nil
	a := loadedApp(t, doc, nil)

	a.Update(key("3"))
	assert.Contains(t, a.viewport.View(), "No warnings")
	assert.NotContains(t, a.renderTabs(), "(")
}

func TestApp_LoadError(t *testing.T) {
	a := loadedApp(t, Document{}, errors.New("template settings are incomplete"))

	assert.Contains(t, a.viewport.View(), "template settings are incomplete")
	assert.Contains(t, a.View(), "render failed")
}

func TestApp_ReloadKeepsLastGoodDocument(t *testing.T) {
	fail := false
	a := NewApp(func() (Document, error) {
		if fail {
			return Document{}, errors.New("boom")
		}
		return sampleDoc(), nil
	})
	a.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	a.Update(a.loadCmd()())

	fail = true
	_, cmd := a.Update(key("r"))
	require.NotNil(t, cmd)
	assert.True(t, a.loading)

	a.Update(a.loadCmd()())
	assert.False(t, a.loading)
	assert.Contains(t, a.viewport.View(), "ACME COFFEE")
	assert.Contains(t, a.View(), "render failed: boom")
}

func TestApp_Quit(t *testing.T) {
	a := loadedApp(t, sampleDoc(), nil)

	_, cmd := a.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, a.View())
}

func TestHighlight(t *testing.T) {
	out := highlight(sampleDoc().Tokens)
	assert.Equal(t, 2, strings.Count(out, "\n")+1)
	assert.Contains(t, out, "ACME COFFEE")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "he...", Truncate("hello world", 5))
	assert.Equal(t, "he", Truncate("hello", 2))
}
