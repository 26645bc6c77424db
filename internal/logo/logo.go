// Package logo turns uploaded images into monochrome raster artifacts for
// thermal printers and a colour preview for the web.
package logo

import (
	"bytes"
	"fmt"
	"time"
)

// Class names a derived output target.
type Class string

const (
	Class58  Class = "58mm"
	Class80  Class = "80mm"
	ClassWeb Class = "web"
)

// ParseClass accepts "58mm", "80mm" and "web".
func ParseClass(s string) (Class, error) {
	switch Class(s) {
	case Class58, Class80, ClassWeb:
		return Class(s), nil
	}
	return "", fmt.Errorf("unknown logo class %q", s)
}

// Size is a bounding box in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Options controls validation and rasterization.
type Options struct {
	MaxUploadBytes int64
	// Threshold is the luminance cutoff. Pixels darker than it become ink.
	// Zero selects DefaultThreshold; a cutoff of 0 would never produce ink.
	Threshold uint8
	// ChunkSize is the payload granularity exposed by Artifact.Chunks.
	ChunkSize int
	// InvertInk flips the meaning of a set bit for printers that expect
	// light dots to be encoded as 1.
	InvertInk bool
	Sizes     map[Class]Size
}

// Defaults
const (
	DefaultMaxUploadBytes = 2 << 20
	DefaultThreshold      = 128
	DefaultChunkSize      = 32
)

// DefaultSizes are the maximum output dimensions per class.
func DefaultSizes() map[Class]Size {
	return map[Class]Size{
		Class58:  {Width: 200, Height: 100},
		Class80:  {Width: 300, Height: 150},
		ClassWeb: {Width: 600, Height: 300},
	}
}

// DefaultOptions returns the stock rasterizer settings.
func DefaultOptions() Options {
	return Options{
		MaxUploadBytes: DefaultMaxUploadBytes,
		Threshold:      DefaultThreshold,
		ChunkSize:      DefaultChunkSize,
		Sizes:          DefaultSizes(),
	}
}

// Upload is an image file as received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Source describes the accepted upload.
type Source struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Format      string `json:"format"`
	Bytes       int    `json:"bytes"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SHA256      string `json:"sha256"`
}

// Artifact is one packed thermal raster and its ESC/POS frame.
type Artifact struct {
	Class     Class  `json:"class"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	RowBytes  int    `json:"row_bytes"`
	Bitmap    []byte `json:"bitmap"`
	Preview   string `json:"preview"`
	Command   []byte `json:"command"`
	ChunkSize int    `json:"chunk_size"`
}

// Chunks splits Command into output units: the prefix up to and including
// the raster header, the payload in ChunkSize pieces, then the suffix.
// Concatenating the units yields Command.
func (a *Artifact) Chunks() [][]byte {
	prefix := len(a.Command) - len(a.Bitmap) - len(frameSuffix)
	if prefix < 0 || len(a.Bitmap) == 0 {
		return [][]byte{a.Command}
	}
	size := a.ChunkSize
	if size <= 0 {
		size = len(a.Bitmap)
	}

	chunks := [][]byte{a.Command[:prefix]}
	payload := a.Command[prefix : prefix+len(a.Bitmap)]
	for len(payload) > 0 {
		n := min(size, len(payload))
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	return append(chunks, a.Command[prefix+len(a.Bitmap):])
}

// Preview is the colour web variant.
type Preview struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Preview string `json:"preview"`
}

// Set is the complete artifact set for one upload. A Set is only ever built
// whole; the service never persists a partial one.
type Set struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"tenant"`
	CreatedAt time.Time `json:"created_at"`
	Source    Source    `json:"source"`
	Thermal58 *Artifact `json:"thermal_58mm"`
	Thermal80 *Artifact `json:"thermal_80mm"`
	Web       *Preview  `json:"web"`
}

// Artifact returns the thermal artifact for class, or nil.
func (s *Set) Artifact(c Class) *Artifact {
	switch c {
	case Class58:
		return s.Thermal58
	case Class80:
		return s.Thermal80
	}
	return nil
}

// Clone returns a deep copy of s that shares no buffers with it.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Thermal58 = s.Thermal58.clone()
	cp.Thermal80 = s.Thermal80.clone()
	if s.Web != nil {
		web := *s.Web
		cp.Web = &web
	}
	return &cp
}

func (a *Artifact) clone() *Artifact {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Bitmap = bytes.Clone(a.Bitmap)
	cp.Command = bytes.Clone(a.Command)
	return &cp
}

// Complete reports whether every variant is present.
func (s *Set) Complete() bool {
	return s != nil && s.Thermal58 != nil && s.Thermal80 != nil && s.Web != nil
}
