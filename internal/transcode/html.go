package transcode

import (
	"fmt"
	"html/template"
	"image"
	"strings"

	"github.com/thereceipt/receipt-renderer/internal/markup"
)

var htmlPage = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt</title>
<style>
body { background: #e5e7eb; }
.receipt { width: {{.Columns}}ch; margin: 1em auto; padding: 1ch; background: #fff; font-family: monospace; white-space: pre; }
.line { min-height: 1.2em; }
.bold { font-weight: bold; }
.underline { text-decoration: underline; }
.cut { border-top: 1px dashed #9ca3af; margin: .5em 0; }
.block img { display: block; margin: 0 auto; max-width: 100%; }
</style>
</head>
<body>
<div class="receipt">
{{- range .Lines}}
{{- if .Cut}}
<div class="cut"></div>
{{- else if .Image}}
<div class="line block"><img src="{{.Image}}" alt="{{.Alt}}"></div>
{{- else}}
<div class="line" style="text-align: {{.Align}}">{{range .Spans}}<span class="{{.Class}}"{{with .Style}} style="{{.}}"{{end}}>{{.Text}}</span>{{end}}</div>
{{- end}}
{{- end}}
</div>
</body>
</html>
`))

type htmlSpan struct {
	Text  string
	Class string
	Style template.CSS
}

type htmlLine struct {
	Align string
	Spans []htmlSpan
	Image template.URL
	Alt   string
	Cut   bool
}

// HTML renders tokens as a standalone page. Images, barcodes and QR codes
// are embedded as PNG data URIs; a symbol that cannot be drawn falls back
// to its payload text.
func HTML(tokens []markup.Token, opts Options) (string, error) {
	var lines []htmlLine
	for _, l := range Layout(tokens) {
		if l.Block == nil {
			lines = append(lines, htmlTextLine(l))
			continue
		}
		line, err := htmlBlock(l.Block, opts)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	var sb strings.Builder
	err := htmlPage.Execute(&sb, struct {
		Columns int
		Lines   []htmlLine
	}{opts.columns(), lines})
	if err != nil {
		return "", fmt.Errorf("execute html template: %w", err)
	}
	return sb.String(), nil
}

func htmlTextLine(l Line) htmlLine {
	out := htmlLine{Align: l.Align}
	for _, s := range l.Spans {
		var classes []string
		if s.Style.Bold {
			classes = append(classes, "bold")
		}
		if s.Style.Underline {
			classes = append(classes, "underline")
		}

		var style template.CSS
		if w, h := s.Style.Scale(); w > 1 || h > 1 {
			style = template.CSS(fmt.Sprintf("display: inline-block; transform: scale(%d, %d); transform-origin: left bottom; margin-right: %dch", w, h, (w-1)*len([]rune(s.Text))))
		}
		out.Spans = append(out.Spans, htmlSpan{Text: s.Text, Class: strings.Join(classes, " "), Style: style})
	}
	return out
}

func htmlBlock(b *Block, opts Options) (htmlLine, error) {
	dots := opts.dots()
	switch b.Kind {
	case markup.TokenCut:
		return htmlLine{Cut: true}, nil
	case markup.TokenImage:
		if opts.Images != nil {
			img, err := opts.Images.Preview(b.arg(0))
			if err != nil {
				return htmlLine{}, fmt.Errorf("resolve image %q: %w", b.arg(0), err)
			}
			if img != nil {
				return htmlImage(img, b.arg(0))
			}
		}
	case markup.TokenBarcode:
		if img, err := barcodeImage(b.arg(0), b.arg(2), atoiDefault(b.arg(1), markup.DefaultBarcodeHeight), dots); err == nil {
			return htmlImage(img, b.arg(2))
		}
	case markup.TokenQR:
		if img, err := qrImage(b.arg(0), b.arg(2), atoiDefault(b.arg(1), markup.DefaultQRSize), dots); err == nil {
			return htmlImage(img, b.arg(2))
		}
	}
	return htmlLine{Align: "center", Spans: []htmlSpan{{Text: blockLabel(b, opts.columns())}}}, nil
}

func htmlImage(img image.Image, alt string) (htmlLine, error) {
	uri, err := pngDataURI(img)
	if err != nil {
		return htmlLine{}, fmt.Errorf("encode preview: %w", err)
	}
	return htmlLine{Image: template.URL(uri), Alt: alt}, nil
}
