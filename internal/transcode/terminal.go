package transcode

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

var (
	paperStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)

	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06B6D4")).
			Italic(true)

	cutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))
)

// Terminal renders tokens as a styled preview framed like a paper roll.
// Bold and underline map to terminal attributes; magnified text is shown
// in reverse video since a terminal cell cannot grow.
func Terminal(tokens []markup.Token, columns int) string {
	if columns <= 0 {
		columns = DefaultColumns
	}

	var rows []string
	for _, l := range Layout(tokens) {
		if l.Block != nil {
			st := blockStyle
			if l.Block.Kind == markup.TokenCut {
				st = cutStyle
			}
			rows = append(rows, alignCell(st.Render(blockLabel(l.Block, columns)), "center", columns))
			continue
		}

		var sb strings.Builder
		for _, s := range l.Spans {
			st := lipgloss.NewStyle().Bold(s.Style.Bold).Underline(s.Style.Underline)
			if w, h := s.Style.Scale(); w > 1 || h > 1 {
				st = st.Reverse(true)
			}
			sb.WriteString(st.Render(s.Text))
		}
		rows = append(rows, alignCell(sb.String(), l.Align, columns))
	}

	return paperStyle.Render(strings.Join(rows, "\n"))
}

func alignCell(s, align string, columns int) string {
	pos := lipgloss.Left
	switch align {
	case "center":
		pos = lipgloss.Center
	case "right":
		pos = lipgloss.Right
	}
	return lipgloss.NewStyle().Width(columns).Align(pos).Render(s)
}
