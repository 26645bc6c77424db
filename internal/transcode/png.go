package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

var (
	fontsOnce              sync.Once
	monoFont, monoBoldFont *opentype.Font
	fontsErr               error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if monoFont, fontsErr = opentype.Parse(gomono.TTF); fontsErr != nil {
			return
		}
		monoBoldFont, fontsErr = opentype.Parse(gomonobold.TTF)
	})
	return fontsErr
}

// pngRenderer draws a receipt onto a canvas that grows as lines are added.
type pngRenderer struct {
	width  int
	height int
	ctx    *gg.Context
	y      float64

	cell     float64 // character cell width in dots
	fontSize float64
	regular  font.Face
	bold     font.Face
	opts     Options
}

// PNG renders tokens as a bitmap preview at the printer's dot width.
func PNG(tokens []markup.Token, opts Options) ([]byte, error) {
	r, err := newPNGRenderer(opts)
	if err != nil {
		return nil, err
	}
	defer r.regular.Close()
	defer r.bold.Close()

	for _, l := range Layout(tokens) {
		if err := r.line(l); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.cropToContent(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func newPNGRenderer(opts Options) (*pngRenderer, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	width := opts.dots()
	cell := float64(width) / float64(opts.columns())
	// Go Mono advances 0.6em per glyph
	size := cell / 0.6

	regular, err := opentype.NewFace(monoFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	bold, err := opentype.NewFace(monoBoldFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		regular.Close()
		return nil, fmt.Errorf("create font face: %w", err)
	}

	initialHeight := 1000
	ctx := gg.NewContext(width, initialHeight)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.SetColor(color.Black)

	return &pngRenderer{
		width:    width,
		height:   initialHeight,
		ctx:      ctx,
		cell:     cell,
		fontSize: size,
		regular:  regular,
		bold:     bold,
		opts:     opts,
	}, nil
}

func (r *pngRenderer) line(l Line) error {
	if l.Block != nil {
		return r.block(l.Block)
	}

	lineHeight := r.fontSize * 1.25 * float64(l.Height())
	r.ensureHeight(int(lineHeight) + 1)

	x := 0.0
	switch textWidth := float64(l.Width()) * r.cell; l.Align {
	case "center":
		x = (float64(r.width) - textWidth) / 2
	case "right":
		x = float64(r.width) - textWidth
	}
	if x < 0 {
		x = 0
	}

	baseline := r.y + lineHeight - r.fontSize*0.3
	for _, s := range l.Spans {
		w, h := s.Style.Scale()
		face := r.regular
		if s.Style.Bold {
			face = r.bold
		}
		r.ctx.SetFontFace(face)

		r.ctx.Push()
		r.ctx.Translate(x, baseline)
		r.ctx.Scale(float64(w), float64(h))
		r.ctx.DrawString(s.Text, 0, 0)
		r.ctx.Pop()

		spanWidth := float64(len([]rune(s.Text))*w) * r.cell
		if s.Style.Underline {
			r.ctx.SetLineWidth(float64(h))
			r.ctx.DrawLine(x, baseline+2*float64(h), x+spanWidth, baseline+2*float64(h))
			r.ctx.Stroke()
		}
		x += spanWidth
	}

	r.y += lineHeight
	return nil
}

func (r *pngRenderer) block(b *Block) error {
	var (
		img image.Image
		err error
	)
	switch b.Kind {
	case markup.TokenCut:
		r.dashed()
		return nil
	case markup.TokenImage:
		if r.opts.Images != nil {
			if img, err = r.opts.Images.Preview(b.arg(0)); err != nil {
				return fmt.Errorf("resolve image %q: %w", b.arg(0), err)
			}
			if img != nil && img.Bounds().Dx() > r.width {
				img = imaging.Resize(img, r.width, 0, imaging.Lanczos)
			}
		}
	case markup.TokenBarcode:
		img, err = barcodeImage(b.arg(0), b.arg(2), atoiDefault(b.arg(1), markup.DefaultBarcodeHeight), r.width)
	case markup.TokenQR:
		img, err = qrImage(b.arg(0), b.arg(2), atoiDefault(b.arg(1), markup.DefaultQRSize), r.width)
	}

	if img == nil || err != nil {
		return r.line(Line{Align: "center", Spans: []Span{{Text: blockLabel(b, r.opts.columns())}}})
	}

	imgHeight := img.Bounds().Dy()
	r.ensureHeight(imgHeight + 10)
	x := (r.width - img.Bounds().Dx()) / 2
	r.ctx.DrawImage(img, x, int(r.y)+5)
	r.y += float64(imgHeight) + 10
	return nil
}

func (r *pngRenderer) dashed() {
	r.ensureHeight(15)
	y := r.y + 7
	r.ctx.SetLineWidth(1)
	for x := 0.0; x < float64(r.width); x += 15 {
		r.ctx.DrawLine(x, y, min(x+10, float64(r.width)), y)
		r.ctx.Stroke()
	}
	r.y += 15
}

func (r *pngRenderer) ensureHeight(needed int) {
	if int(r.y)+needed <= r.height {
		return
	}
	newHeight := r.height * 2
	if newHeight < int(r.y)+needed {
		newHeight = int(r.y) + needed + 1000
	}

	ctx := gg.NewContext(r.width, newHeight)
	ctx.SetColor(color.White)
	ctx.Clear()
	ctx.DrawImage(r.ctx.Image(), 0, 0)
	ctx.SetColor(color.Black)

	r.ctx = ctx
	r.height = newHeight
}

func (r *pngRenderer) cropToContent() image.Image {
	finalHeight := int(r.y) + 20
	if finalHeight > r.height {
		finalHeight = r.height
	}
	return imaging.Crop(r.ctx.Image(), image.Rect(0, 0, r.width, finalHeight))
}
