package receiptformat

import (
	"fmt"
	"strings"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
)

var (
	validAligns     = []string{"", "left", "center", "right"}
	validSizes      = []string{"", "small", "normal", "large", "xlarge"}
	validECC        = []string{"", "L", "M", "Q", "H"}
	validSymbology  = []string{"", "CODE128", "CODE39", "EAN13", "EAN8", "UPCA"}
	validPaperWidth = []string{"", Paper58mm, Paper80mm}
)

// Validate checks settings and component properties. Missing canvas or print
// settings are validation errors; unknown component kinds are not, they are
// reported as warnings at render time.
func Validate(t *Template) error {
	if t == nil {
		return apperr.ValidationError("template is required")
	}

	var details []apperr.FieldError
	add := func(field, format string, args ...any) {
		details = append(details, apperr.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if t.Canvas == nil {
		add("canvas", "canvas settings are required")
	} else {
		if !oneOf(t.Canvas.PaperWidth, validPaperWidth) {
			add("canvas.paper_width", "invalid paper width: %s (must be 58mm or 80mm)", t.Canvas.PaperWidth)
		}
		if t.Canvas.PixelWidth < 0 {
			add("canvas.pixel_width", "pixel width must not be negative")
		} else if t.Canvas.PixelWidth > 0 && t.Canvas.PixelWidth < DotsPerColumn {
			add("canvas.pixel_width", "pixel width must be at least %d dots", DotsPerColumn)
		}
	}

	if t.Print == nil {
		add("print", "print settings are required")
	} else if t.Print.Density < 0 || t.Print.Density > 8 {
		add("print.density", "density must be between 0 and 8")
	}

	seen := make(map[string]bool)
	for i := range t.Components {
		c := &t.Components[i]
		field := fmt.Sprintf("components[%d]", i)
		if c.ID != "" {
			if seen[c.ID] {
				add(field+".id", "duplicate component id: %s", c.ID)
			}
			seen[c.ID] = true
		}
		validateComponent(c, field, add)
	}

	if len(details) > 0 {
		return apperr.ValidationError("invalid template", details...)
	}
	return nil
}

func validateComponent(c *Component, field string, add func(string, string, ...any)) {
	switch c.Kind {
	case KindText:
		if c.Text == nil {
			return
		}
		if !oneOf(c.Text.Align, validAligns) {
			add(field+".align", "invalid align: %s", c.Text.Align)
		}
		if !oneOf(c.Text.Size, validSizes) {
			add(field+".size", "invalid size: %s", c.Text.Size)
		}
	case KindBarcode:
		if c.Barcode == nil {
			return
		}
		if !oneOf(strings.ToUpper(c.Barcode.Symbology), validSymbology) {
			add(field+".symbology", "unsupported symbology: %s", c.Barcode.Symbology)
		}
		if c.Barcode.Height < 0 || c.Barcode.Height > 255 {
			add(field+".height", "height must be between 1 and 255")
		}
	case KindQR:
		if c.QR == nil {
			return
		}
		if !oneOf(strings.ToUpper(c.QR.ErrorCorrection), validECC) {
			add(field+".error_correction", "invalid error correction: %s", c.QR.ErrorCorrection)
		}
		if c.QR.Size < 0 || c.QR.Size > 16 {
			add(field+".size", "size must be between 1 and 16")
		}
	case KindTable:
		if c.Table == nil || len(c.Table.Columns) == 0 {
			add(field+".columns", "table must have at least one column")
			return
		}
		for j, col := range c.Table.Columns {
			if col.Field == "" {
				add(fmt.Sprintf("%s.columns[%d].field", field, j), "column field is required")
			}
			if col.Width < 0 {
				add(fmt.Sprintf("%s.columns[%d].width", field, j), "column width must not be negative")
			}
			if col.Align != "" && col.Align != "left" && col.Align != "right" {
				add(fmt.Sprintf("%s.columns[%d].align", field, j), "invalid align: %s", col.Align)
			}
		}
	case KindLine:
		if c.Line != nil && c.Line.Length < 0 {
			add(field+".length", "length must not be negative")
		}
	case KindSpace:
		if c.Space != nil && c.Space.Lines < 0 {
			add(field+".lines", "lines must not be negative")
		}
	}
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
