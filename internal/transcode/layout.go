package transcode

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

// Style is the character style in effect for a span of text.
type Style struct {
	Bold         bool
	Underline    bool
	DoubleWidth  bool
	DoubleHeight bool
	Size         string
}

// Scale returns the character magnification as width and height factors.
func (s Style) Scale() (w, h int) {
	base := 1
	switch s.Size {
	case "large":
		base = 2
	case "xlarge":
		base = 3
	}
	w, h = base, base
	if s.DoubleWidth && w < 2 {
		w = 2
	}
	if s.DoubleHeight && h < 2 {
		h = 2
	}
	return w, h
}

// Span is a run of text sharing one style.
type Span struct {
	Text  string
	Style Style
}

// Block is an image, barcode, QR code or cut occupying its own line.
type Block struct {
	Kind markup.TokenKind
	Args []string
}

func (b *Block) arg(i int) string {
	if i < len(b.Args) {
		return b.Args[i]
	}
	return ""
}

// Line is one printed line: either text spans or a block.
type Line struct {
	Align string
	Spans []Span
	Block *Block
}

// Text returns the concatenated span text.
func (l Line) Text() string {
	var sb strings.Builder
	for _, s := range l.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Width returns the printed width in columns, counting magnification.
func (l Line) Width() int {
	n := 0
	for _, s := range l.Spans {
		w, _ := s.Style.Scale()
		n += runewidth.StringWidth(s.Text) * w
	}
	return n
}

// Height returns the tallest magnification on the line.
func (l Line) Height() int {
	h := 1
	for _, s := range l.Spans {
		if _, sh := s.Style.Scale(); sh > h {
			h = sh
		}
	}
	return h
}

// Layout groups tokens into lines. Alignment is captured when the first
// content of a line is written. The newline that follows a block belongs to
// the block.
func Layout(tokens []markup.Token) []Line {
	var (
		lines      []Line
		cur        Line
		open       bool
		afterBlock bool
		style      Style
		align      = "left"
	)

	flush := func() {
		if !open {
			cur.Align = align
		}
		lines = append(lines, cur)
		cur, open = Line{}, false
	}

	for _, t := range tokens {
		wasAfterBlock := afterBlock
		afterBlock = false

		switch t.Kind {
		case markup.TokenText:
			if !open {
				cur.Align, open = align, true
			}
			cur.Spans = append(cur.Spans, Span{Text: t.Text, Style: style})
		case markup.TokenNewline:
			if wasAfterBlock {
				continue
			}
			flush()
		case markup.TokenAlign:
			align = normalizeAlign(t.Arg(0))
		case markup.TokenBold:
			style.Bold = true
		case markup.TokenUnderline:
			style.Underline = true
		case markup.TokenDoubleWidth:
			style.DoubleWidth = true
		case markup.TokenDoubleHeight:
			style.DoubleHeight = true
		case markup.TokenSize:
			style.Size = t.Arg(0)
		case markup.TokenReset:
			style, align = Style{}, "left"
		case markup.TokenImage, markup.TokenBarcode, markup.TokenQR, markup.TokenCut:
			if open {
				flush()
			}
			lines = append(lines, Line{Align: align, Block: &Block{Kind: t.Kind, Args: t.Args}})
			afterBlock = true
		}
	}
	if open {
		flush()
	}
	return lines
}

func normalizeAlign(s string) string {
	switch s {
	case "center", "right":
		return s
	}
	return "left"
}

// pad positions s within width columns according to align. Left and centered
// text carry no trailing padding.
func pad(s, align string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case "center":
		return strings.Repeat(" ", gap/2) + s
	case "right":
		return strings.Repeat(" ", gap) + s
	}
	return s
}

// wrap breaks s into pieces no wider than width columns.
func wrap(s string, width int) []string {
	if s == "" || width <= 0 {
		return []string{s}
	}
	var (
		out []string
		cur strings.Builder
		n   int
	)
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if n+rw > width && n > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
		cur.WriteRune(r)
		n += rw
	}
	return append(out, cur.String())
}

// blockLabel is the text stand-in for a block in text-only outputs.
func blockLabel(b *Block, columns int) string {
	switch b.Kind {
	case markup.TokenImage:
		return "<" + b.arg(0) + ">"
	case markup.TokenBarcode:
		return "|| " + b.arg(2) + " ||"
	case markup.TokenQR:
		return "[QR] " + b.arg(2)
	case markup.TokenCut:
		return strings.TrimSpace(strings.Repeat("- ", columns/2))
	}
	return ""
}
