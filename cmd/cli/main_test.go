package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliTemplate = `name: Counter receipt
canvas:
  paper_width: 58mm
print:
  autocut: false
components:
  - id: name
    rank: 1
    type: text
    binding: customer.name
    properties:
      align: center
  - id: odd
    rank: 2
    type: hologram
    properties: {}
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRun_RenderText(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "receipt.yaml", []byte(cliTemplate))
	data := writeFile(t, dir, "order.json", []byte(`{"customer":{"name":"Ahmad"}}`))

	var stdout, stderr bytes.Buffer
	code := run([]string{"render", "-data", data, "-format", "text", tpl}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t, "             Ahmad\n", stdout.String())
	assert.Contains(t, stderr.String(), "warning: unknown component type")
}

func TestRun_RenderMarkupToFile(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "receipt.yaml", []byte(cliTemplate))
	out := filepath.Join(dir, "out.txt")

	var stdout, stderr bytes.Buffer
	code := run([]string{"render", "-o", out, tpl}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[ALIGN:center][RESET]\n", string(got))
}

func TestRun_Logo(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.Black)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := writeFile(t, dir, "logo.png", buf.Bytes())

	var stdout, stderr bytes.Buffer
	code := run([]string{"logo", "-class", "58mm", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.Bytes()
	require.Len(t, out, 13+2*8+4)
	assert.Equal(t, []byte{0x1D, 'v', '0', 0, 2, 0, 8, 0}, out[5:13])
	assert.Equal(t, []byte{0xFF, 0xFF}, out[13:15])
	assert.Contains(t, stderr.String(), "58mm: 16x8")
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "receipt.yaml", []byte(cliTemplate))

	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"unknown command", []string{"print"}},
		{"missing template", []string{"render"}},
		{"bad format", []string{"render", "-format", "pdf", tpl}},
		{"missing file", []string{"render", filepath.Join(dir, "nope.json")}},
		{"logo bad class", []string{"logo", "-class", "112mm", tpl}},
		{"logo not an image", []string{"logo", tpl}},
		{"logo threshold", []string{"logo", "-threshold", "0", tpl}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(tt.args, &stdout, &stderr))
			assert.NotEmpty(t, stderr.String())
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "receipt-cli <command>")
}
