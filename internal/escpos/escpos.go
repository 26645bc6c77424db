// Package escpos builds ESC/POS command byte sequences.
package escpos

import (
	"bytes"
	"fmt"
)

// ESC/POS prefixes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	FS  byte = 0x1C
	LF  byte = 0x0A
)

// Alignment values for ESC a
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// ParseAlignment maps "left", "center" and "right" to an Alignment.
func ParseAlignment(s string) Alignment {
	switch s {
	case "center":
		return AlignCenter
	case "right":
		return AlignRight
	default:
		return AlignLeft
	}
}

// Raster modes for GS v 0
const (
	RasterNormal       byte = 0
	RasterDoubleWidth  byte = 1
	RasterDoubleHeight byte = 2
	RasterQuadruple    byte = 3
)

// Barcode symbologies for GS k (function B)
const (
	BarcodeUPCA    byte = 65
	BarcodeEAN13   byte = 67
	BarcodeEAN8    byte = 68
	BarcodeCODE39  byte = 69
	BarcodeCODE128 byte = 73
)

// QR error correction levels for GS ( k fn 69
const (
	QRLevelL byte = 48
	QRLevelM byte = 49
	QRLevelQ byte = 50
	QRLevelH byte = 51
)

// Builder accumulates commands into a single buffer. The zero value is
// ready to use. A Builder is not safe for concurrent use.
type Builder struct {
	buf bytes.Buffer
}

// NewBuilder creates a new command builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Initialize resets the printer (ESC @).
func (b *Builder) Initialize() *Builder {
	b.buf.Write([]byte{ESC, '@'})
	return b
}

// Align sets justification (ESC a n).
func (b *Builder) Align(a Alignment) *Builder {
	b.buf.Write([]byte{ESC, 'a', byte(a)})
	return b
}

// Bold toggles emphasized mode (ESC E n).
func (b *Builder) Bold(enabled bool) *Builder {
	b.buf.Write([]byte{ESC, 'E', boolByte(enabled)})
	return b
}

// Underline toggles one-dot underline (ESC - n).
func (b *Builder) Underline(enabled bool) *Builder {
	b.buf.Write([]byte{ESC, '-', boolByte(enabled)})
	return b
}

// TextSize sets character magnification (GS ! n). Width and height are
// clamped to 1..8.
func (b *Builder) TextSize(width, height int) *Builder {
	width = clamp(width, 1, 8)
	height = clamp(height, 1, 8)
	b.buf.Write([]byte{GS, '!', byte((width-1)<<4 | (height - 1))})
	return b
}

// CodePage selects a character code table (ESC t n).
func (b *Builder) CodePage(n byte) *Builder {
	b.buf.Write([]byte{ESC, 't', n})
	return b
}

// Density sets print density (GS ( K pL pH fn m) with fn=49. Values are
// clamped to 1..8; 0 leaves the printer default alone.
func (b *Builder) Density(level int) *Builder {
	if level <= 0 {
		return b
	}
	b.buf.Write([]byte{GS, '(', 'K', 0x02, 0x00, 0x31, byte(clamp(level, 1, 8))})
	return b
}

// Text writes already-encoded text bytes.
func (b *Builder) Text(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// Raw appends a pre-built command sequence such as a framed logo.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// LineFeed writes LF.
func (b *Builder) LineFeed() *Builder {
	b.buf.WriteByte(LF)
	return b
}

// Feed writes n line feeds.
func (b *Builder) Feed(lines int) *Builder {
	for i := 0; i < lines; i++ {
		b.LineFeed()
	}
	return b
}

// RasterHeader writes GS v 0 m xL xH yL yH for a raster image rowBytes
// wide and height dots tall.
func (b *Builder) RasterHeader(mode byte, rowBytes, height int) *Builder {
	b.buf.Write(RasterHeader(mode, rowBytes, height))
	return b
}

// RasterImage writes the raster header followed by the packed rows.
func (b *Builder) RasterImage(mode byte, rowBytes, height int, data []byte) error {
	if rowBytes <= 0 || height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", rowBytes, height)
	}
	if rowBytes > 0xFFFF || height > 0xFFFF {
		return fmt.Errorf("raster size %dx%d exceeds 16-bit fields", rowBytes, height)
	}
	if len(data) != rowBytes*height {
		return fmt.Errorf("raster payload is %d bytes, want %d", len(data), rowBytes*height)
	}
	b.RasterHeader(mode, rowBytes, height)
	b.buf.Write(data)
	return nil
}

// Barcode prints a one-dimensional barcode using GS h, GS w, GS H and GS k
// function B. HRI text is printed below the symbol.
func (b *Builder) Barcode(symbology byte, height, moduleWidth int, data []byte) error {
	if len(data) == 0 || len(data) > 255 {
		return fmt.Errorf("barcode payload must be 1..255 bytes, got %d", len(data))
	}
	b.buf.Write([]byte{GS, 'h', byte(clamp(height, 1, 255))})
	b.buf.Write([]byte{GS, 'w', byte(clamp(moduleWidth, 2, 6))})
	b.buf.Write([]byte{GS, 'H', 2})
	b.buf.Write([]byte{GS, 'k', symbology, byte(len(data))})
	b.buf.Write(data)
	return nil
}

// QRCode stores and prints a model 2 QR symbol (GS ( k functions 165, 167,
// 169, 180 and 181).
func (b *Builder) QRCode(data []byte, moduleSize int, level byte) error {
	n := len(data) + 3
	if len(data) == 0 || n > 0xFFFF {
		return fmt.Errorf("qr payload must be 1..%d bytes, got %d", 0xFFFF-3, len(data))
	}
	// model 2
	b.buf.Write([]byte{GS, '(', 'k', 0x04, 0x00, 0x31, 0x41, 0x32, 0x00})
	// module size
	b.buf.Write([]byte{GS, '(', 'k', 0x03, 0x00, 0x31, 0x43, byte(clamp(moduleSize, 1, 16))})
	// error correction
	b.buf.Write([]byte{GS, '(', 'k', 0x03, 0x00, 0x31, 0x45, level})
	// store
	b.buf.Write([]byte{GS, '(', 'k', byte(n & 0xFF), byte(n >> 8), 0x31, 0x50, 0x30})
	b.buf.Write(data)
	// print
	b.buf.Write([]byte{GS, '(', 'k', 0x03, 0x00, 0x31, 0x51, 0x30})
	return nil
}

// Cut performs a full cut (GS V 0).
func (b *Builder) Cut() *Builder {
	b.buf.Write([]byte{GS, 'V', 0})
	return b
}

// PartialCut performs a partial cut (GS V 1).
func (b *Builder) PartialCut() *Builder {
	b.buf.Write([]byte{GS, 'V', 1})
	return b
}

// FeedAndCut feeds n dots then cuts (GS V 66 n).
func (b *Builder) FeedAndCut(n byte) *Builder {
	b.buf.Write([]byte{GS, 'V', 66, n})
	return b
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns a copy of the accumulated commands.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Reset clears the buffer
func (b *Builder) Reset() {
	b.buf.Reset()
}

// RasterHeader returns the 8-byte GS v 0 header. Sizes are written as
// little-endian 16-bit fields.
func RasterHeader(mode byte, rowBytes, height int) []byte {
	return []byte{
		GS, 'v', '0', mode,
		byte(rowBytes & 0xFF), byte((rowBytes >> 8) & 0xFF),
		byte(height & 0xFF), byte((height >> 8) & 0xFF),
	}
}

// QRLevel maps "L", "M", "Q", "H" to the command byte; M is the default.
func QRLevel(s string) byte {
	switch s {
	case "L", "l":
		return QRLevelL
	case "Q", "q":
		return QRLevelQ
	case "H", "h":
		return QRLevelH
	default:
		return QRLevelM
	}
}

// Symbology maps a symbology name to its GS k function B code. ok is false
// for unsupported names.
func Symbology(name string) (code byte, ok bool) {
	switch name {
	case "CODE128", "":
		return BarcodeCODE128, true
	case "CODE39":
		return BarcodeCODE39, true
	case "EAN13":
		return BarcodeEAN13, true
	case "EAN8":
		return BarcodeEAN8, true
	case "UPCA":
		return BarcodeUPCA, true
	}
	return 0, false
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
