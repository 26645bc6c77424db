package logo

import (
	"image"
	"image/color"

	"github.com/thereceipt/receipt-renderer/internal/escpos"
)

// left align + line feed
var frameSuffix = []byte{escpos.ESC, 'a', byte(escpos.AlignLeft), escpos.LF}

// Threshold converts img to a pure black and white image. A pixel whose
// luminance is below cutoff becomes black.
func Threshold(img image.Image, cutoff uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if g.Y < cutoff {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 0xFF
			}
		}
	}
	return out
}

// Pack packs a black and white image MSB first, ceil(width/8) bytes per row.
// Black pixels set their bit unless invert is true. Padding bits past the
// image width are always zero.
func Pack(mono *image.Gray, invert bool) (rowBytes int, data []byte) {
	b := mono.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes = (w + 7) / 8
	data = make([]byte, rowBytes*h)

	for y := 0; y < h; y++ {
		row := mono.Pix[mono.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			ink := row[x] == 0
			if invert {
				ink = !ink
			}
			if ink {
				data[y*rowBytes+x/8] |= 1 << (7 - uint(x%8))
			}
		}
	}
	return rowBytes, data
}

// Frame wraps a packed raster in the print sequence: initialize, center,
// GS v 0 raster, left align, line feed.
func Frame(rowBytes, height int, data []byte) ([]byte, error) {
	b := escpos.NewBuilder().Initialize().Align(escpos.AlignCenter)
	if err := b.RasterImage(escpos.RasterNormal, rowBytes, height, data); err != nil {
		return nil, err
	}
	b.Align(escpos.AlignLeft).LineFeed()
	return b.Bytes(), nil
}
