// Package markup renders receipt templates into the bracket-token markup
// stream consumed by the transcoder.
//
// Rendering is a pure function of the template and the data tree: the same
// inputs always yield byte-identical markup, and one bad component never
// blocks the rest of the receipt.
package markup

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/binding"
	"github.com/thereceipt/receipt-renderer/pkg/receiptformat"
)

// Defaults applied when a component leaves a property unset.
const (
	DefaultSymbology     = "CODE128"
	DefaultBarcodeHeight = 80
	DefaultQRLevel       = "M"
	DefaultQRSize        = 6
	DefaultLineChar      = "-"
)

// Warning codes
const (
	WarnUnknownComponent = "unknown_component"
	WarnTableNotSequence = "table_not_sequence"
	WarnTableNoColumns   = "table_no_columns"
	WarnEmptyPayload     = "empty_payload"
)

// Warning is a non-fatal diagnostic recorded while rendering.
type Warning struct {
	Code        string `json:"code"`
	ComponentID string `json:"component_id,omitempty"`
	Rank        int    `json:"rank"`
	Message     string `json:"message"`
}

func (w Warning) String() string {
	if w.ComponentID != "" {
		return fmt.Sprintf("%s (component %s, rank %d)", w.Message, w.ComponentID, w.Rank)
	}
	return fmt.Sprintf("%s (rank %d)", w.Message, w.Rank)
}

// Result is the output of one render.
type Result struct {
	Markup   string    `json:"markup"`
	Tokens   []Token   `json:"-"`
	Warnings []Warning `json:"warnings"`
	Columns  int       `json:"columns"`
}

type renderer struct {
	data     any
	columns  int
	stream   Stream
	warnings []Warning
}

// Render walks the template components in rank order and produces markup.
// It fails only when canvas or print settings are missing; component level
// problems are reported as warnings.
func Render(t *receiptformat.Template, data any) (*Result, error) {
	if t == nil {
		return nil, apperr.ValidationError("template is required")
	}
	var details []apperr.FieldError
	if t.Canvas == nil {
		details = append(details, apperr.FieldError{Field: "canvas", Message: "canvas settings are required"})
	}
	if t.Print == nil {
		details = append(details, apperr.FieldError{Field: "print", Message: "print settings are required"})
	}
	if len(details) > 0 {
		return nil, apperr.ValidationError("template settings are incomplete", details...)
	}

	r := &renderer{
		data:    data,
		columns: t.Canvas.Columns(),
	}

	for _, c := range t.Ordered() {
		r.component(&c)
	}

	if t.Print.Autocut {
		r.stream.Tag(TokenCut)
		r.stream.Newline()
	}

	return &Result{
		Markup:   r.stream.String(),
		Tokens:   r.stream.Tokens(),
		Warnings: r.warnings,
		Columns:  r.columns,
	}, nil
}

func (r *renderer) component(c *receiptformat.Component) {
	switch c.Kind {
	case receiptformat.KindText:
		r.text(c)
	case receiptformat.KindImage:
		r.image(c)
	case receiptformat.KindBarcode:
		r.barcode(c)
	case receiptformat.KindQR:
		r.qr(c)
	case receiptformat.KindTable:
		r.table(c)
	case receiptformat.KindLine:
		r.line(c)
	case receiptformat.KindSpace:
		r.space(c)
	default:
		r.warn(c, WarnUnknownComponent, fmt.Sprintf("unknown component type: %q", c.Kind))
	}
}

// value resolves the component binding, or returns the literal when the
// component has no binding.
func (r *renderer) value(c *receiptformat.Component, literal string) string {
	if c.Binding != "" {
		return binding.String(binding.Resolve(c.Binding, r.data))
	}
	return literal
}

func (r *renderer) text(c *receiptformat.Component) {
	props := c.Text
	if props == nil {
		props = &receiptformat.TextProps{}
	}

	switch props.Align {
	case "center", "right":
		r.stream.Tag(TokenAlign, props.Align)
	}
	if props.Bold {
		r.stream.Tag(TokenBold)
	}
	if props.Underline {
		r.stream.Tag(TokenUnderline)
	}
	if props.DoubleWidth {
		r.stream.Tag(TokenDoubleWidth)
	}
	if props.DoubleHeight {
		r.stream.Tag(TokenDoubleHeight)
	}
	if props.Size != "" && props.Size != "normal" {
		r.stream.Tag(TokenSize, props.Size)
	}

	r.stream.Text(r.value(c, props.Content))
	r.stream.Tag(TokenReset)
	r.stream.Newline()
}

func (r *renderer) image(c *receiptformat.Component) {
	var literal string
	if c.Image != nil {
		literal = c.Image.Source
	}
	src := r.value(c, literal)
	if src == "" {
		r.warn(c, WarnEmptyPayload, "image source is empty")
		return
	}
	r.stream.Tag(TokenImage, src)
	r.stream.Newline()
}

func (r *renderer) barcode(c *receiptformat.Component) {
	props := c.Barcode
	if props == nil {
		props = &receiptformat.BarcodeProps{}
	}
	payload := r.value(c, props.Data)
	if payload == "" {
		r.warn(c, WarnEmptyPayload, "barcode payload is empty")
		return
	}

	symbology := strings.ToUpper(props.Symbology)
	if symbology == "" {
		symbology = DefaultSymbology
	}
	height := props.Height
	if height == 0 {
		height = DefaultBarcodeHeight
	}

	r.stream.Tag(TokenBarcode, symbology, strconv.Itoa(height), payload)
	r.stream.Newline()
}

func (r *renderer) qr(c *receiptformat.Component) {
	props := c.QR
	if props == nil {
		props = &receiptformat.QRProps{}
	}
	payload := r.value(c, props.Data)
	if payload == "" {
		r.warn(c, WarnEmptyPayload, "qr payload is empty")
		return
	}

	level := strings.ToUpper(props.ErrorCorrection)
	if level == "" {
		level = DefaultQRLevel
	}
	size := props.Size
	if size == 0 {
		size = DefaultQRSize
	}

	r.stream.Tag(TokenQR, level, strconv.Itoa(size), payload)
	r.stream.Newline()
}

func (r *renderer) line(c *receiptformat.Component) {
	char, length := DefaultLineChar, r.columns
	if c.Line != nil {
		if c.Line.Char != "" {
			ch, _ := utf8.DecodeRuneInString(c.Line.Char)
			char = string(ch)
		}
		if c.Line.Length > 0 {
			length = c.Line.Length
		}
	}
	r.stream.Text(strings.Repeat(char, length))
	r.stream.Newline()
}

func (r *renderer) space(c *receiptformat.Component) {
	lines := 1
	if c.Space != nil && c.Space.Lines > 0 {
		lines = c.Space.Lines
	}
	for i := 0; i < lines; i++ {
		r.stream.Newline()
	}
}

func (r *renderer) warn(c *receiptformat.Component, code, msg string) {
	r.warnings = append(r.warnings, Warning{
		Code:        code,
		ComponentID: c.ID,
		Rank:        c.Rank,
		Message:     msg,
	})
}

// fit pads or truncates s to exactly width display columns.
func fit(s string, width int, align string) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "")
	if align == "right" {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}
