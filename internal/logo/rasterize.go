package logo

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
)

// Pipeline stages, in execution order.
const (
	StageValidate  = "validate"
	StageDecode    = "decode"
	StageResize    = "resize"
	StageThreshold = "threshold"
	StageMetadata  = "metadata"
	StageEncode    = "encode"
	StagePack      = "pack"
	StageFrame     = "frame"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// sniffed MIME type -> decoder format
var allowedFormats = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/webp": "webp",
}

// maxSourcePixels bounds decode memory for hostile headers.
const maxSourcePixels = 40_000_000

// Rasterizer runs the logo pipeline. It holds no per-call state and is safe
// for concurrent use.
type Rasterizer struct {
	opts  Options
	trace func(stage string, elapsed time.Duration)
}

// NewRasterizer fills unset options with defaults and checks the rest.
func NewRasterizer(opts Options) (*Rasterizer, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	sizes := DefaultSizes()
	for c, sz := range opts.Sizes {
		if _, ok := sizes[c]; !ok {
			return nil, fmt.Errorf("unknown logo class %q", c)
		}
		if sz.Width <= 0 || sz.Height <= 0 {
			return nil, fmt.Errorf("logo class %s: size %dx%d must be positive", c, sz.Width, sz.Height)
		}
		sizes[c] = sz
	}
	opts.Sizes = sizes

	return &Rasterizer{opts: opts}, nil
}

// Options returns the effective options.
func (r *Rasterizer) Options() Options {
	o := r.opts
	o.Sizes = make(map[Class]Size, len(r.opts.Sizes))
	for k, v := range r.opts.Sizes {
		o.Sizes[k] = v
	}
	return o
}

// WithTrace returns a copy of r that reports each completed stage to fn.
func (r *Rasterizer) WithTrace(fn func(stage string, elapsed time.Duration)) *Rasterizer {
	cp := *r
	cp.trace = fn
	return &cp
}

// Validate checks the upload without decoding it.
func (r *Rasterizer) Validate(u Upload) (Source, error) {
	var details []apperr.FieldError

	switch size := int64(len(u.Data)); {
	case size == 0:
		details = append(details, apperr.FieldError{Field: "file", Message: "file is empty"})
	case size > r.opts.MaxUploadBytes:
		details = append(details, apperr.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("file is %d bytes, maximum is %d", size, r.opts.MaxUploadBytes),
		})
	}

	ext := strings.ToLower(filepath.Ext(u.Filename))
	if !allowedExtensions[ext] {
		details = append(details, apperr.FieldError{
			Field:   "filename",
			Message: fmt.Sprintf("extension %q is not allowed", ext),
		})
	}

	declared := mediaType(u.ContentType)
	if !strings.HasPrefix(declared, "image/") {
		details = append(details, apperr.FieldError{
			Field:   "content_type",
			Message: fmt.Sprintf("content type %q is not an image", u.ContentType),
		})
	}

	if len(details) > 0 {
		return Source{}, apperr.ValidationError("invalid logo upload", details...)
	}

	sniffed := mimetype.Detect(u.Data)
	format, ok := allowedFormats[mediaType(sniffed.String())]
	if !ok {
		return Source{}, apperr.ValidationError("invalid logo upload", apperr.FieldError{
			Field:   "file",
			Message: fmt.Sprintf("content is %s, not a supported image", sniffed.String()),
		})
	}

	return Source{
		Filename:    filepath.Base(u.Filename),
		ContentType: mediaType(sniffed.String()),
		Format:      format,
		Bytes:       len(u.Data),
	}, nil
}

// Rasterize runs every stage in order. Any failure returns a single error
// and no partial result.
func (r *Rasterizer) Rasterize(u Upload) (*Set, error) {
	start := time.Now()
	done := func(stage string) {
		if r.trace != nil {
			r.trace(stage, time.Since(start))
		}
		start = time.Now()
	}

	src, err := r.Validate(u)
	if err != nil {
		return nil, err
	}
	done(StageValidate)

	img, err := decode(u.Data)
	if err != nil {
		return nil, apperr.ProcessingError(StageDecode, err)
	}
	done(StageDecode)

	flat := flatten(img)
	resized := make(map[Class]*image.NRGBA, 3)
	for _, c := range []Class{Class58, Class80, ClassWeb} {
		sz := r.opts.Sizes[c]
		out := imaging.Fit(flat, sz.Width, sz.Height, imaging.Lanczos)
		if out.Bounds().Empty() {
			return nil, apperr.ProcessingError(StageResize, fmt.Errorf("class %s produced an empty image", c))
		}
		resized[c] = out
	}
	done(StageResize)

	mono := map[Class]*image.Gray{
		Class58: Threshold(imaging.Grayscale(resized[Class58]), r.opts.Threshold),
		Class80: Threshold(imaging.Grayscale(resized[Class80]), r.opts.Threshold),
	}
	done(StageThreshold)

	sum := sha256.Sum256(u.Data)
	src.Width = flat.Bounds().Dx()
	src.Height = flat.Bounds().Dy()
	src.SHA256 = hex.EncodeToString(sum[:])
	done(StageMetadata)

	previews := make(map[Class]string, 3)
	for c, m := range mono {
		if previews[c], err = encodePNG(m); err != nil {
			return nil, apperr.ProcessingError(StageEncode, err)
		}
	}
	if previews[ClassWeb], err = encodePNG(resized[ClassWeb]); err != nil {
		return nil, apperr.ProcessingError(StageEncode, err)
	}
	done(StageEncode)

	artifacts := make(map[Class]*Artifact, 2)
	for c, m := range mono {
		rowBytes, data := Pack(m, r.opts.InvertInk)
		artifacts[c] = &Artifact{
			Class:     c,
			Width:     m.Bounds().Dx(),
			Height:    m.Bounds().Dy(),
			RowBytes:  rowBytes,
			Bitmap:    data,
			Preview:   previews[c],
			ChunkSize: r.opts.ChunkSize,
		}
	}
	done(StagePack)

	for c, a := range artifacts {
		cmd, err := Frame(a.RowBytes, a.Height, a.Bitmap)
		if err != nil {
			return nil, apperr.ProcessingError(StageFrame, fmt.Errorf("class %s: %w", c, err))
		}
		a.Command = cmd
	}
	done(StageFrame)

	web := resized[ClassWeb]
	return &Set{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    src,
		Thermal58: artifacts[Class58],
		Thermal80: artifacts[Class80],
		Web: &Preview{
			Width:   web.Bounds().Dx(),
			Height:  web.Bounds().Dy(),
			Preview: previews[ClassWeb],
		},
	}, nil
}

func decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("image is %dx%d, too large to process", cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// flatten composites img onto an opaque white canvas so transparent areas
// print as paper.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func mediaType(v string) string {
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(v))
}
