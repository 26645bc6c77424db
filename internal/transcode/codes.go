package transcode

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
)

// barcodeImage draws a one-dimensional symbol two dots per module, shrunk to
// maxWidth when possible.
func barcodeImage(symbology, payload string, height, maxWidth int) (image.Image, error) {
	var (
		bc  barcode.Barcode
		err error
	)

	switch strings.ToUpper(symbology) {
	case "CODE39":
		bc, err = code39.Encode(payload, false, true)
	case "EAN13", "EAN8":
		bc, err = ean.Encode(payload)
	case "UPCA":
		bc, err = ean.Encode("0" + payload)
	default:
		bc, err = code128.Encode(payload)
	}
	if err != nil {
		return nil, err
	}

	natural := bc.Bounds().Dx()
	width := natural * 2
	if width > maxWidth {
		width = max(maxWidth, natural)
	}
	if height <= 0 {
		height = 80
	}
	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return nil, err
	}
	return scaled, nil
}

// qrImage draws a QR code moduleSize dots per module, capped at maxWidth.
func qrImage(level, payload string, moduleSize, maxWidth int) (image.Image, error) {
	recovery := qrcode.Medium
	switch strings.ToUpper(level) {
	case "L":
		recovery = qrcode.Low
	case "Q":
		recovery = qrcode.High
	case "H":
		recovery = qrcode.Highest
	}

	qr, err := qrcode.New(payload, recovery)
	if err != nil {
		return nil, err
	}

	if moduleSize <= 0 {
		moduleSize = 6
	}
	size := len(qr.Bitmap()) * moduleSize
	if size > maxWidth {
		size = maxWidth
	}
	return qr.Image(size), nil
}

func pngDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
