package logo

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
)

// ImageRef is the image source that names the rendering tenant's own logo.
// "logo:<tenant>" names another tenant's logo explicitly.
const ImageRef = "logo"

// ClassForPaper picks the thermal class for a paper width. Anything that is
// not 58mm prints with the 80mm artifact.
func ClassForPaper(paperWidth string) Class {
	if paperWidth == string(Class58) {
		return Class58
	}
	return Class80
}

// Images resolves markup image references against stored logos for one
// render. Unknown sources and tenants without a logo resolve to nil so the
// encoders skip the image.
type Images struct {
	ctx    context.Context
	svc    *Service
	tenant string
	class  Class
}

// Images returns a resolver bound to tenant and class.
func (s *Service) Images(ctx context.Context, tenant string, class Class) *Images {
	return &Images{ctx: ctx, svc: s, tenant: tenant, class: class}
}

// Raster returns the framed ESC/POS command for src.
func (i *Images) Raster(src string) ([]byte, error) {
	a, err := i.lookup(src)
	if a == nil || err != nil {
		return nil, err
	}
	return a.Command, nil
}

// Preview decodes the monochrome preview for src.
func (i *Images) Preview(src string) (image.Image, error) {
	a, err := i.lookup(src)
	if a == nil || err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(a.Preview)
	if err != nil {
		return nil, fmt.Errorf("decode stored preview: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode stored preview: %w", err)
	}
	return img, nil
}

func (i *Images) lookup(src string) (*Artifact, error) {
	tenant := i.tenant
	switch {
	case src == ImageRef:
	case strings.HasPrefix(src, ImageRef+":"):
		tenant = strings.TrimPrefix(src, ImageRef+":")
	default:
		return nil, nil
	}
	if tenant == "" {
		return nil, nil
	}

	set, err := i.svc.Get(i.ctx, tenant)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set.Artifact(i.class), nil
}
