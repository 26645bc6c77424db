package escpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandVectors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  []byte
	}{
		{"initialize", func(b *Builder) { b.Initialize() }, []byte{0x1B, 0x40}},
		{"align left", func(b *Builder) { b.Align(AlignLeft) }, []byte{0x1B, 0x61, 0x00}},
		{"align center", func(b *Builder) { b.Align(AlignCenter) }, []byte{0x1B, 0x61, 0x01}},
		{"align right", func(b *Builder) { b.Align(AlignRight) }, []byte{0x1B, 0x61, 0x02}},
		{"bold on", func(b *Builder) { b.Bold(true) }, []byte{0x1B, 0x45, 0x01}},
		{"bold off", func(b *Builder) { b.Bold(false) }, []byte{0x1B, 0x45, 0x00}},
		{"underline", func(b *Builder) { b.Underline(true) }, []byte{0x1B, 0x2D, 0x01}},
		{"double size", func(b *Builder) { b.TextSize(2, 2) }, []byte{0x1D, 0x21, 0x11}},
		{"size clamped", func(b *Builder) { b.TextSize(0, 12) }, []byte{0x1D, 0x21, 0x07}},
		{"code page", func(b *Builder) { b.CodePage(16) }, []byte{0x1B, 0x74, 0x10}},
		{"density", func(b *Builder) { b.Density(5) }, []byte{0x1D, 0x28, 0x4B, 0x02, 0x00, 0x31, 0x05}},
		{"density default", func(b *Builder) { b.Density(0) }, nil},
		{"raw", func(b *Builder) { b.Raw([]byte{0x1B, 0x40, 0x0A}) }, []byte{0x1B, 0x40, 0x0A}},
		{"line feed", func(b *Builder) { b.LineFeed() }, []byte{0x0A}},
		{"feed 3", func(b *Builder) { b.Feed(3) }, []byte{0x0A, 0x0A, 0x0A}},
		{"cut", func(b *Builder) { b.Cut() }, []byte{0x1D, 0x56, 0x00}},
		{"partial cut", func(b *Builder) { b.PartialCut() }, []byte{0x1D, 0x56, 0x01}},
		{"feed and cut", func(b *Builder) { b.FeedAndCut(3) }, []byte{0x1D, 0x56, 0x42, 0x03}},
		{"raster header", func(b *Builder) { b.RasterHeader(RasterNormal, 38, 150) }, []byte{0x1D, 0x76, 0x30, 0x00, 0x26, 0x00, 0x96, 0x00}},
		{"raster header wide", func(b *Builder) { b.RasterHeader(RasterNormal, 300, 258) }, []byte{0x1D, 0x76, 0x30, 0x00, 0x2C, 0x01, 0x02, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			assert.Equal(t, tt.want, b.Bytes())
		})
	}
}

func TestRasterImage(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RasterImage(RasterNormal, 2, 2, []byte{0xFF, 0xC0, 0x00, 0x80}))

	want := []byte{0x1D, 0x76, 0x30, 0x00, 0x02, 0x00, 0x02, 0x00, 0xFF, 0xC0, 0x00, 0x80}
	assert.Equal(t, want, b.Bytes())
}

func TestRasterImage_Errors(t *testing.T) {
	b := NewBuilder()
	assert.Error(t, b.RasterImage(RasterNormal, 2, 2, []byte{0x00}))
	assert.Error(t, b.RasterImage(RasterNormal, 0, 2, nil))
	assert.Error(t, b.RasterImage(RasterNormal, 70000, 1, make([]byte, 70000)))
	assert.Equal(t, 0, b.Len(), "failed commands must not write")
}

func TestBarcode(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Barcode(BarcodeCODE39, 80, 2, []byte("A12")))

	want := []byte{
		0x1D, 0x68, 80,
		0x1D, 0x77, 2,
		0x1D, 0x48, 2,
		0x1D, 0x6B, 69, 3, 'A', '1', '2',
	}
	assert.Equal(t, want, b.Bytes())

	assert.Error(t, NewBuilder().Barcode(BarcodeCODE128, 80, 2, nil))
}

func TestQRCode(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.QRCode([]byte("hi"), 6, QRLevelM))

	want := []byte{
		0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00,
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x06,
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31,
		0x1D, 0x28, 0x6B, 0x05, 0x00, 0x31, 0x50, 0x30, 'h', 'i',
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30,
	}
	assert.Equal(t, want, b.Bytes())
}

func TestChaining(t *testing.T) {
	got := NewBuilder().Initialize().Align(AlignCenter).Bold(true).Text([]byte("OK")).Bold(false).LineFeed().Bytes()
	want := []byte{0x1B, 0x40, 0x1B, 0x61, 0x01, 0x1B, 0x45, 0x01, 'O', 'K', 0x1B, 0x45, 0x00, 0x0A}
	assert.Equal(t, want, got)
}

func TestLookups(t *testing.T) {
	assert.Equal(t, AlignCenter, ParseAlignment("center"))
	assert.Equal(t, AlignRight, ParseAlignment("right"))
	assert.Equal(t, AlignLeft, ParseAlignment("anything"))

	assert.Equal(t, QRLevelH, QRLevel("H"))
	assert.Equal(t, QRLevelM, QRLevel(""))

	code, ok := Symbology("EAN13")
	assert.True(t, ok)
	assert.Equal(t, BarcodeEAN13, code)
	_, ok = Symbology("PDF417")
	assert.False(t, ok)
}

func TestBytesIsCopy(t *testing.T) {
	b := NewBuilder().Initialize()
	out := b.Bytes()
	out[0] = 0x00
	assert.Equal(t, []byte{0x1B, 0x40}, b.Bytes())
}
