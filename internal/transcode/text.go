package transcode

import (
	"strings"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

// PlainText renders tokens as fixed-width text. Alignment is applied by
// padding and lines longer than columns wrap.
func PlainText(tokens []markup.Token, columns int) string {
	if columns <= 0 {
		columns = DefaultColumns
	}

	var sb strings.Builder
	for _, l := range Layout(tokens) {
		if l.Block != nil {
			sb.WriteString(pad(blockLabel(l.Block, columns), "center", columns))
			sb.WriteByte('\n')
			continue
		}
		for _, piece := range wrap(l.Text(), columns) {
			sb.WriteString(pad(piece, l.Align, columns))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
