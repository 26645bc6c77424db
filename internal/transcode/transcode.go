// Package transcode converts the markup token stream into final output
// encodings: plain text, ESC/POS bytes, HTML, a PNG preview and a styled
// terminal preview.
package transcode

import (
	"fmt"
	"image"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

// Format names an output encoding.
type Format string

const (
	FormatMarkup   Format = "markup"
	FormatText     Format = "text"
	FormatESCPOS   Format = "escpos"
	FormatHTML     Format = "html"
	FormatPNG      Format = "png"
	FormatTerminal Format = "terminal"
)

// Defaults for an 80mm printer.
const (
	DefaultColumns = 48
	DefaultDots    = 576
)

// ParseFormat validates a format name. The empty string means markup.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatMarkup, nil
	case FormatMarkup, FormatText, FormatESCPOS, FormatHTML, FormatPNG, FormatTerminal:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// ContentType returns the MIME type of an encoded body.
func (f Format) ContentType() string {
	switch f {
	case FormatESCPOS:
		return "application/octet-stream"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPNG:
		return "image/png"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Binary reports whether the format is not text.
func (f Format) Binary() bool {
	return f == FormatESCPOS || f == FormatPNG
}

// ImageSource resolves [IMAGE:src] references. Both methods return nil and
// no error when src is unknown, which makes the encoders skip the image.
type ImageSource interface {
	// Raster returns a framed ESC/POS raster command for src.
	Raster(src string) ([]byte, error)
	// Preview returns a displayable image for src.
	Preview(src string) (image.Image, error)
}

// Options configures the encoders.
type Options struct {
	Columns  int
	Dots     int
	Encoding string
	Density  int
	Images   ImageSource
}

func (o Options) columns() int {
	if o.Columns > 0 {
		return o.Columns
	}
	return DefaultColumns
}

func (o Options) dots() int {
	if o.Dots > 0 {
		return o.Dots
	}
	return DefaultDots
}

// Encode runs the encoder for f.
func Encode(f Format, tokens []markup.Token, opts Options) ([]byte, error) {
	switch f {
	case FormatMarkup, "":
		return []byte(markup.Join(tokens)), nil
	case FormatText:
		return []byte(PlainText(tokens, opts.columns())), nil
	case FormatESCPOS:
		return ESCPOS(tokens, opts)
	case FormatHTML:
		out, err := HTML(tokens, opts)
		return []byte(out), err
	case FormatPNG:
		return PNG(tokens, opts)
	case FormatTerminal:
		return []byte(Terminal(tokens, opts.columns())), nil
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}
