package transcode

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/escpos"
	"github.com/thereceipt/receipt-renderer/internal/markup"
)

// codePage pairs a character map with its ESC t table number. A nil map
// passes UTF-8 through untouched.
type codePage struct {
	cm   *charmap.Charmap
	page byte
}

var codePages = map[string]codePage{
	"CP437":  {charmap.CodePage437, 0},
	"CP850":  {charmap.CodePage850, 2},
	"CP860":  {charmap.CodePage860, 3},
	"CP863":  {charmap.CodePage863, 4},
	"CP865":  {charmap.CodePage865, 5},
	"CP1252": {charmap.Windows1252, 16},
	"CP866":  {charmap.CodePage866, 17},
	"CP852":  {charmap.CodePage852, 18},
	"CP858":  {charmap.CodePage858, 19},
	"UTF8":   {},
}

var codePageAliases = map[string]string{
	"":            "CP437",
	"PC437":       "CP437",
	"PC850":       "CP850",
	"WINDOWS1252": "CP1252",
	"LATIN1":      "CP1252",
	"ISO88591":    "CP1252",
}

func lookupCodePage(name string) (codePage, error) {
	key := strings.ToUpper(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	if alias, ok := codePageAliases[key]; ok {
		key = alias
	}
	cp, ok := codePages[key]
	if !ok {
		return codePage{}, apperr.ValidationError(fmt.Sprintf("unsupported encoding %q", name))
	}
	return cp, nil
}

// encode maps s onto the code page. Runes the page cannot represent become
// '?'.
func (c codePage) encode(s string) []byte {
	if c.cm == nil {
		return []byte(s)
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := c.cm.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

// escposEncoder tracks the requested alignment separately from the one last
// sent, because ESC a only takes effect at the start of a line.
type escposEncoder struct {
	b     *escpos.Builder
	cp    codePage
	opts  Options
	style Style

	align       escpos.Alignment
	sentAlign   escpos.Alignment
	atLineStart bool
}

// ESCPOS encodes tokens as printer command bytes. [IMAGE] references are
// resolved through opts.Images; barcodes and QR codes use the printer's
// native symbol commands.
func ESCPOS(tokens []markup.Token, opts Options) ([]byte, error) {
	cp, err := lookupCodePage(opts.Encoding)
	if err != nil {
		return nil, err
	}

	e := &escposEncoder{b: escpos.NewBuilder(), cp: cp, opts: opts, atLineStart: true}
	e.b.Initialize()
	e.setup()

	for _, t := range tokens {
		if err := e.token(t); err != nil {
			return nil, err
		}
	}
	return e.b.Bytes(), nil
}

// setup applies the settings ESC @ clears.
func (e *escposEncoder) setup() {
	if e.cp.cm != nil {
		e.b.CodePage(e.cp.page)
	}
	e.b.Density(e.opts.Density)
}

func (e *escposEncoder) applyStyle() {
	w, h := e.style.Scale()
	e.b.Bold(e.style.Bold).Underline(e.style.Underline).TextSize(w, h)
}

// flushAlign sends the requested alignment if the printer is at the start
// of a line and differs from it.
func (e *escposEncoder) flushAlign() {
	if e.atLineStart && e.align != e.sentAlign {
		e.b.Align(e.align)
		e.sentAlign = e.align
	}
}

// lineStarted marks the print position as back at the left margin with
// the printer using alignment a.
func (e *escposEncoder) lineStarted(a escpos.Alignment) {
	e.sentAlign = a
	e.atLineStart = true
	e.flushAlign()
}

func (e *escposEncoder) token(t markup.Token) error {
	switch t.Kind {
	case markup.TokenText:
		if t.Text == "" {
			return nil
		}
		e.flushAlign()
		e.b.Text(e.cp.encode(t.Text))
		e.atLineStart = false
	case markup.TokenNewline:
		e.b.LineFeed()
		e.lineStarted(e.sentAlign)
	case markup.TokenAlign:
		e.align = escpos.ParseAlignment(t.Arg(0))
		e.flushAlign()
	case markup.TokenBold:
		e.style.Bold = true
		e.b.Bold(true)
	case markup.TokenUnderline:
		e.style.Underline = true
		e.b.Underline(true)
	case markup.TokenDoubleWidth, markup.TokenDoubleHeight, markup.TokenSize:
		switch t.Kind {
		case markup.TokenDoubleWidth:
			e.style.DoubleWidth = true
		case markup.TokenDoubleHeight:
			e.style.DoubleHeight = true
		default:
			e.style.Size = t.Arg(0)
		}
		w, h := e.style.Scale()
		e.b.TextSize(w, h)
	case markup.TokenReset:
		e.style, e.align = Style{}, escpos.AlignLeft
		e.b.Bold(false).Underline(false).TextSize(1, 1)
		e.flushAlign()
	case markup.TokenImage:
		return e.image(t.Arg(0))
	case markup.TokenBarcode:
		return e.barcode(t)
	case markup.TokenQR:
		return e.qr(t)
	case markup.TokenCut:
		e.b.Feed(3).Cut()
		e.lineStarted(e.sentAlign)
	}
	return nil
}

func (e *escposEncoder) image(src string) error {
	if e.opts.Images == nil || src == "" {
		return nil
	}
	raw, err := e.opts.Images.Raster(src)
	if err != nil {
		return fmt.Errorf("resolve image %q: %w", src, err)
	}
	if len(raw) == 0 {
		return nil
	}
	e.b.Raw(raw)

	// the frame starts with ESC @ and ends with a line feed
	e.setup()
	e.applyStyle()
	e.lineStarted(escpos.AlignLeft)
	return nil
}

func (e *escposEncoder) barcode(t markup.Token) error {
	sym, ok := escpos.Symbology(strings.ToUpper(t.Arg(0)))
	if !ok {
		sym = escpos.BarcodeCODE128
	}
	height := atoiDefault(t.Arg(1), markup.DefaultBarcodeHeight)
	payload := t.Arg(2)
	if sym == escpos.BarcodeCODE128 {
		// code set B, with a literal '{' sent as "{{"
		payload = "{B" + strings.ReplaceAll(payload, "{", "{{")
	}

	e.b.Align(escpos.AlignCenter)
	if err := e.b.Barcode(sym, clampInt(height, 1, 255), 2, []byte(payload)); err != nil {
		return apperr.ValidationError(fmt.Sprintf("barcode %q: %v", t.Arg(2), err))
	}
	e.lineStarted(escpos.AlignCenter)
	return nil
}

func (e *escposEncoder) qr(t markup.Token) error {
	size := atoiDefault(t.Arg(1), markup.DefaultQRSize)

	e.b.Align(escpos.AlignCenter)
	if err := e.b.QRCode([]byte(t.Arg(2)), clampInt(size, 1, 16), escpos.QRLevel(strings.ToUpper(t.Arg(0)))); err != nil {
		return apperr.ValidationError(fmt.Sprintf("qr code: %v", err))
	}
	e.lineStarted(escpos.AlignCenter)
	return nil
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
