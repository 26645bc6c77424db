// Package receiptformat defines the receipt template format: an ordered set
// of typed components plus canvas and print settings.
package receiptformat

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Paper classes
const (
	Paper58mm = "58mm"
	Paper80mm = "80mm"
)

// Template is an immutable snapshot of a receipt layout for one render.
type Template struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Canvas     *CanvasSettings `json:"canvas,omitempty"`
	Print      *PrintSettings  `json:"print,omitempty"`
	Components []Component     `json:"components"`
}

// DotsPerColumn is the width of one character column in dots. A pixel width
// narrower than one column is rejected by Validate.
const DotsPerColumn = 12

// CanvasSettings selects the paper class or an explicit pixel width.
type CanvasSettings struct {
	PaperWidth string `json:"paper_width,omitempty"` // "58mm", "80mm"
	PixelWidth int    `json:"pixel_width,omitempty"`
}

// PrintSettings are applied once per printed receipt.
type PrintSettings struct {
	Autocut  bool   `json:"autocut,omitempty"`
	Encoding string `json:"encoding,omitempty"` // codepage, e.g. "CP437", "CP1252"
	Density  int    `json:"density,omitempty"`
}

// Kind identifies the component variant.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindBarcode Kind = "barcode"
	KindQR      Kind = "qr"
	KindTable   Kind = "table"
	KindLine    Kind = "line"
	KindSpace   Kind = "space"
)

// Known reports whether k is one of the supported component kinds.
func (k Kind) Known() bool {
	switch k {
	case KindText, KindImage, KindBarcode, KindQR, KindTable, KindLine, KindSpace:
		return true
	}
	return false
}

// Component is a tagged union over the component kinds. Exactly one of the
// property pointers matching Kind is set; unknown kinds carry none.
type Component struct {
	ID       string
	ParentID string
	Rank     int
	Kind     Kind
	Binding  string

	Text    *TextProps
	Image   *ImageProps
	Barcode *BarcodeProps
	QR      *QRProps
	Table   *TableProps
	Line    *LineProps
	Space   *SpaceProps
}

// TextProps configures a text line.
type TextProps struct {
	Content      string `json:"content,omitempty"`
	Align        string `json:"align,omitempty"` // left, center, right
	Bold         bool   `json:"bold,omitempty"`
	Underline    bool   `json:"underline,omitempty"`
	DoubleWidth  bool   `json:"double_width,omitempty"`
	DoubleHeight bool   `json:"double_height,omitempty"`
	Size         string `json:"size,omitempty"` // small, normal, large, xlarge
}

// ImageProps references a stored image such as the tenant logo.
type ImageProps struct {
	Source string `json:"source,omitempty"`
}

// BarcodeProps configures a one-dimensional barcode.
type BarcodeProps struct {
	Data      string `json:"data,omitempty"`
	Symbology string `json:"symbology,omitempty"` // CODE128, CODE39, EAN13, EAN8, UPCA
	Height    int    `json:"height,omitempty"`
}

// QRProps configures a QR code.
type QRProps struct {
	Data            string `json:"data,omitempty"`
	ErrorCorrection string `json:"error_correction,omitempty"` // L, M, Q, H
	Size            int    `json:"size,omitempty"`
}

// TableProps renders a sequence as fixed-width rows.
type TableProps struct {
	DataSource string           `json:"data_source,omitempty"`
	ShowHeader bool             `json:"show_header,omitempty"`
	Columns    []TableColumn    `json:"columns"`
	Rows       []map[string]any `json:"rows,omitempty"`
}

// TableColumn is one fixed-width column.
type TableColumn struct {
	Header string `json:"header,omitempty"`
	Field  string `json:"field"`
	Width  int    `json:"width,omitempty"`
	Align  string `json:"align,omitempty"` // left, right
}

// LineProps draws a separator made of a repeated character.
type LineProps struct {
	Char   string `json:"char,omitempty"`
	Length int    `json:"length,omitempty"`
}

// SpaceProps feeds blank lines.
type SpaceProps struct {
	Lines int `json:"lines,omitempty"`
}

type componentJSON struct {
	ID         string          `json:"id,omitempty"`
	ParentID   string          `json:"parent_id,omitempty"`
	Rank       int             `json:"rank"`
	Type       Kind            `json:"type"`
	Binding    string          `json:"binding,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// UnmarshalJSON decodes the properties object into the arm selected by type.
// Unknown types decode without error so rendering can skip them.
func (c *Component) UnmarshalJSON(data []byte) error {
	var raw componentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Component{
		ID:       raw.ID,
		ParentID: raw.ParentID,
		Rank:     raw.Rank,
		Kind:     raw.Type,
		Binding:  raw.Binding,
	}

	props := raw.Properties
	if len(props) == 0 || string(props) == "null" {
		props = []byte("{}")
	}

	var target any
	switch raw.Type {
	case KindText:
		c.Text = &TextProps{}
		target = c.Text
	case KindImage:
		c.Image = &ImageProps{}
		target = c.Image
	case KindBarcode:
		c.Barcode = &BarcodeProps{}
		target = c.Barcode
	case KindQR:
		c.QR = &QRProps{}
		target = c.QR
	case KindTable:
		c.Table = &TableProps{}
		target = c.Table
	case KindLine:
		c.Line = &LineProps{}
		target = c.Line
	case KindSpace:
		c.Space = &SpaceProps{}
		target = c.Space
	default:
		return nil
	}

	if err := json.Unmarshal(props, target); err != nil {
		return fmt.Errorf("component %q (%s) properties: %w", raw.ID, raw.Type, err)
	}
	return nil
}

// MarshalJSON writes the component back in its wire shape.
func (c Component) MarshalJSON() ([]byte, error) {
	var props any
	switch {
	case c.Text != nil:
		props = c.Text
	case c.Image != nil:
		props = c.Image
	case c.Barcode != nil:
		props = c.Barcode
	case c.QR != nil:
		props = c.QR
	case c.Table != nil:
		props = c.Table
	case c.Line != nil:
		props = c.Line
	case c.Space != nil:
		props = c.Space
	}

	out := componentJSON{
		ID:       c.ID,
		ParentID: c.ParentID,
		Rank:     c.Rank,
		Type:     c.Kind,
		Binding:  c.Binding,
	}
	if props != nil {
		raw, err := json.Marshal(props)
		if err != nil {
			return nil, err
		}
		out.Properties = raw
	}
	return json.Marshal(out)
}

// Ordered returns a copy of the components sorted by ascending rank. Ties
// keep their original relative order.
func (t *Template) Ordered() []Component {
	out := make([]Component, len(t.Components))
	copy(out, t.Components)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rank < out[j].Rank
	})
	return out
}

// Columns returns the character columns for the canvas: 32 for 58mm paper,
// 48 for 80mm, otherwise PixelWidth/12. 48 is used when nothing is set.
func (c *CanvasSettings) Columns() int {
	if c == nil {
		return 48
	}
	switch c.PaperWidth {
	case Paper58mm:
		return 32
	case Paper80mm:
		return 48
	}
	if c.PixelWidth > 0 {
		return max(1, c.PixelWidth/DotsPerColumn)
	}
	return 48
}

// Dots returns the printable width in dots at 203 dpi.
func (c *CanvasSettings) Dots() int {
	if c == nil {
		return 576
	}
	switch c.PaperWidth {
	case Paper58mm:
		return 384
	case Paper80mm:
		return 576
	}
	if c.PixelWidth > 0 {
		return c.PixelWidth
	}
	return 576
}
