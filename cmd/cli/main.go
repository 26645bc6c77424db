package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thereceipt/receipt-renderer/internal/logo"
	"github.com/thereceipt/receipt-renderer/internal/markup"
	"github.com/thereceipt/receipt-renderer/internal/store"
	"github.com/thereceipt/receipt-renderer/internal/transcode"
	"github.com/thereceipt/receipt-renderer/internal/tui"
	"github.com/thereceipt/receipt-renderer/pkg/receiptformat"
)

const (
	defaultServerURL = "http://localhost:12212"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "render":
		err = renderCmd(args[1:], stdout, stderr)
	case "logo":
		err = logoCmd(args[1:], stdout, stderr)
	case "preview":
		err = previewCmd(args[1:])
	case "upload":
		err = uploadCmd(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Receipt Renderer CLI

Usage:
  receipt-cli <command> [flags] <args>

Commands:
  render [-data file] [-format f] [-o out] [-store path -tenant id] <template>
    Render a JSON or YAML template. Formats: markup, text, escpos, html,
    png, terminal (default markup).

  logo [-class 58mm|80mm|web] [-threshold n] [-invert] [-o out] <image>
    Rasterize an image. Thermal classes write ESC/POS raster bytes, web
    writes the PNG preview.

  preview [-data file] [-store path -tenant id] <template>
    Open an interactive preview of a template.

  upload [-s url] <tenant> <image>
    Upload a tenant logo to a running server (default: %s)

Examples:
  receipt-cli render -data order.json -format text receipt.json
  receipt-cli render -format escpos -o receipt.bin receipt.yaml
  receipt-cli logo -class 58mm -o logo.bin logo.png
  receipt-cli upload acme logo.png

`, defaultServerURL)
}

type renderFlags struct {
	data   string
	store  string
	tenant string
}

func (f *renderFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.data, "data", "", "JSON or YAML render context")
	fs.StringVar(&f.store, "store", "", "file logo store used to resolve [IMAGE:logo]")
	fs.StringVar(&f.tenant, "tenant", "", "tenant whose logo [IMAGE:logo] refers to")
}

// render loads the template and data and produces markup.
func (f *renderFlags) render(path string) (*receiptformat.Template, *markup.Result, error) {
	t, err := receiptformat.ParseFile(path)
	if err != nil {
		return nil, nil, err
	}

	var data any
	if f.data != "" {
		raw, err := os.ReadFile(f.data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read data file: %w", err)
		}
		ext := strings.ToLower(filepath.Ext(f.data))
		if data, err = receiptformat.ParseData(raw, ext == ".yaml" || ext == ".yml"); err != nil {
			return nil, nil, err
		}
	}

	result, err := markup.Render(t, data)
	if err != nil {
		return nil, nil, err
	}
	return t, result, nil
}

// options builds encoder options for t, resolving images from the file
// store when one is given.
func (f *renderFlags) options(t *receiptformat.Template, result *markup.Result) (transcode.Options, error) {
	opts := transcode.Options{
		Columns:  result.Columns,
		Dots:     t.Canvas.Dots(),
		Encoding: t.Print.Encoding,
		Density:  t.Print.Density,
	}
	if f.store == "" {
		return opts, nil
	}

	fs, err := store.NewFileStore(f.store)
	if err != nil {
		return opts, err
	}
	r, err := logo.NewRasterizer(logo.DefaultOptions())
	if err != nil {
		return opts, err
	}
	svc := logo.NewService(r, fs, nil)
	opts.Images = svc.Images(context.Background(), f.tenant, logo.ClassForPaper(t.Canvas.PaperWidth))
	return opts, nil
}

func renderCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rf renderFlags
	rf.register(fs)
	format := fs.String("format", "markup", "output format")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("render needs exactly one template path")
	}

	f, err := transcode.ParseFormat(*format)
	if err != nil {
		return err
	}

	t, result, err := rf.render(fs.Arg(0))
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	opts, err := rf.options(t, result)
	if err != nil {
		return err
	}
	body, err := transcode.Encode(f, result.Tokens, opts)
	if err != nil {
		return err
	}
	return writeOutput(*out, body, stdout)
}

func logoCmd(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("logo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	class := fs.String("class", string(logo.Class80), "output class: 58mm, 80mm or web")
	threshold := fs.Uint("threshold", logo.DefaultThreshold, "luminance cutoff (1-255)")
	invert := fs.Bool("invert", false, "encode light pixels as ink")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("logo needs exactly one image path")
	}
	if *threshold == 0 || *threshold > 255 {
		return fmt.Errorf("threshold must be between 1 and 255")
	}

	c, err := logo.ParseClass(*class)
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	opts := logo.DefaultOptions()
	opts.Threshold = uint8(*threshold)
	opts.InvertInk = *invert
	r, err := logo.NewRasterizer(opts)
	if err != nil {
		return err
	}

	set, err := r.Rasterize(logo.Upload{
		Filename:    filepath.Base(path),
		ContentType: contentTypeFor(path),
		Data:        data,
	})
	if err != nil {
		return err
	}

	var body []byte
	if c == logo.ClassWeb {
		if body, err = base64.StdEncoding.DecodeString(set.Web.Preview); err != nil {
			return fmt.Errorf("decode preview: %w", err)
		}
	} else {
		a := set.Artifact(c)
		body = a.Command
		fmt.Fprintf(stderr, "%s: %dx%d, %d bytes per row, %d bytes\n", c, a.Width, a.Height, a.RowBytes, len(body))
	}
	return writeOutput(*out, body, stdout)
}

func previewCmd(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	var rf renderFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("preview needs exactly one template path")
	}
	path := fs.Arg(0)

	return tui.Run(func() (tui.Document, error) {
		t, result, err := rf.render(path)
		if err != nil {
			return tui.Document{}, err
		}
		title := t.Name
		if title == "" {
			title = filepath.Base(path)
		}
		return tui.Document{
			Title:    title,
			Preview:  transcode.Terminal(result.Tokens, result.Columns),
			Tokens:   result.Tokens,
			Warnings: result.Warnings,
		}, nil
	})
}

func uploadCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var serverURL string
	fs.StringVar(&serverURL, "server", defaultServerURL, "Server URL")
	fs.StringVar(&serverURL, "s", defaultServerURL, "Server URL (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("upload needs a tenant and an image path")
	}
	tenant, path := fs.Arg(0), fs.Arg(1)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", contentTypeFor(path))
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	url := strings.TrimSuffix(serverURL, "/") + "/tenants/" + tenant + "/logo"
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return fmt.Errorf("server rejected upload (HTTP %d): %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server rejected upload: HTTP %d", resp.StatusCode)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err != nil {
		_, err = stdout.Write(respBody)
		return err
	}
	pretty.WriteByte('\n')
	_, err = stdout.Write(pretty.Bytes())
	return err
}

func writeOutput(path string, body []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(body)
		return err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
