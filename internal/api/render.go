package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
	"github.com/thereceipt/receipt-renderer/internal/markup"
	"github.com/thereceipt/receipt-renderer/internal/transcode"
	"github.com/thereceipt/receipt-renderer/pkg/receiptformat"
)

type renderRequest struct {
	Template json.RawMessage `json:"template"`
	Data     any             `json:"data"`
	Format   string          `json:"format"`
	// Tenant selects whose logo [IMAGE:logo] refers to.
	Tenant string `json:"tenant"`
}

type renderResponse struct {
	Format      transcode.Format `json:"format"`
	ContentType string           `json:"content_type"`
	Markup      string           `json:"markup"`
	Warnings    []markup.Warning `json:"warnings"`
	Columns     int              `json:"columns"`
	Output      string           `json:"output,omitempty"`
	// Encoding is "base64" when Output holds a binary body.
	Encoding string `json:"encoding,omitempty"`
}

// render parses, renders and transcodes one request. The raw encoded body
// is returned alongside the JSON view.
func (s *Server) render(ctx context.Context, req renderRequest) (*renderResponse, []byte, error) {
	format, err := transcode.ParseFormat(req.Format)
	if err != nil {
		return nil, nil, apperr.ValidationError(err.Error(), apperr.FieldError{Field: "format", Message: "must be one of markup, text, escpos, html, png, terminal"})
	}
	if len(req.Template) == 0 || string(req.Template) == "null" {
		return nil, nil, apperr.ValidationError("template is required", apperr.FieldError{Field: "template", Message: "required"})
	}

	t, err := receiptformat.Parse(req.Template)
	if err != nil {
		if apperr.As(err) == nil {
			return nil, nil, apperr.ValidationError(err.Error(), apperr.FieldError{Field: "template", Message: "malformed template document"})
		}
		return nil, nil, err
	}

	result, err := markup.Render(t, req.Data)
	if err != nil {
		return nil, nil, err
	}

	resp := &renderResponse{
		Format:      format,
		ContentType: format.ContentType(),
		Markup:      result.Markup,
		Warnings:    result.Warnings,
		Columns:     result.Columns,
	}
	if resp.Warnings == nil {
		resp.Warnings = []markup.Warning{}
	}
	if format == transcode.FormatMarkup {
		return resp, []byte(result.Markup), nil
	}

	opts := transcode.Options{
		Columns:  result.Columns,
		Dots:     t.Canvas.Dots(),
		Encoding: t.Print.Encoding,
		Density:  t.Print.Density,
	}
	if s.logos != nil {
		opts.Images = s.logos.Images(ctx, req.Tenant, logo.ClassForPaper(t.Canvas.PaperWidth))
	}

	body, err := transcode.Encode(format, result.Tokens, opts)
	if err != nil {
		return nil, nil, err
	}
	if format.Binary() {
		resp.Output = base64.StdEncoding.EncodeToString(body)
		resp.Encoding = "base64"
	} else {
		resp.Output = string(body)
	}
	return resp, body, nil
}

// handleRender renders a template. With ?raw=true the encoded body is sent
// as is instead of the JSON envelope.
func (s *Server) handleRender(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, apperr.ValidationError("invalid request body: "+err.Error()))
		return
	}

	resp, body, err := s.render(c.Request.Context(), req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if raw, _ := strconv.ParseBool(c.Query("raw")); raw {
		c.Header("X-Render-Warnings", strconv.Itoa(len(resp.Warnings)))
		c.Data(http.StatusOK, resp.ContentType, body)
		return
	}
	c.JSON(http.StatusOK, resp)
}
