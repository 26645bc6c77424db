package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
)

type artifactSummary struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	RowBytes int `json:"row_bytes"`
	Bytes    int `json:"command_bytes"`
	Chunks   int `json:"chunks"`
}

type logoResponse struct {
	ID        string                         `json:"id"`
	Tenant    string                         `json:"tenant"`
	Source    logo.Source                    `json:"source"`
	Artifacts map[logo.Class]artifactSummary `json:"artifacts"`
	Web       *logo.Preview                  `json:"web"`
}

func summarize(set *logo.Set) logoResponse {
	resp := logoResponse{
		ID:        set.ID,
		Tenant:    set.Tenant,
		Source:    set.Source,
		Artifacts: make(map[logo.Class]artifactSummary, 2),
		Web:       set.Web,
	}
	for _, class := range []logo.Class{logo.Class58, logo.Class80} {
		if a := set.Artifact(class); a != nil {
			resp.Artifacts[class] = artifactSummary{
				Width:    a.Width,
				Height:   a.Height,
				RowBytes: a.RowBytes,
				Bytes:    len(a.Command),
				Chunks:   len(a.Chunks()),
			}
		}
	}
	return resp
}

// handleUploadLogo rasterizes the multipart "file" field and stores it as
// the tenant's logo.
func (s *Server) handleUploadLogo(c *gin.Context) {
	if s.logos == nil {
		s.abortWithError(c, apperr.NotFound("logo service"))
		return
	}
	tenant := c.Param("tenant")

	if !s.uploads.Allow(tenant) {
		s.abortWithError(c, apperr.RateLimited(fmt.Sprintf("too many logo uploads for tenant %s", tenant)))
		return
	}

	limit := s.logos.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+64<<10)

	fh, err := c.FormFile("file")
	if err != nil {
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			s.abortWithError(c, apperr.ValidationError("file is too large",
				apperr.FieldError{Field: "file", Message: fmt.Sprintf("must be at most %d bytes", limit)}))
			return
		}
		s.abortWithError(c, apperr.ValidationError("multipart field \"file\" is required",
			apperr.FieldError{Field: "file", Message: err.Error()}))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.abortWithError(c, apperr.Internal(fmt.Errorf("open upload: %w", err)))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.abortWithError(c, apperr.Internal(fmt.Errorf("read upload: %w", err)))
		return
	}

	set, err := s.logos.Upload(c.Request.Context(), tenant, logo.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summarize(set))
}

// handleGetLogo returns the stored set summary with previews.
func (s *Server) handleGetLogo(c *gin.Context) {
	if s.logos == nil {
		s.abortWithError(c, apperr.NotFound("logo"))
		return
	}
	set, err := s.logos.Get(c.Request.Context(), c.Param("tenant"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summarize(set))
}

// handleGetLogoCommand sends the framed ESC/POS raster for one class.
func (s *Server) handleGetLogoCommand(c *gin.Context) {
	if s.logos == nil {
		s.abortWithError(c, apperr.NotFound("logo"))
		return
	}
	class, err := logo.ParseClass(c.Param("class"))
	if err != nil {
		s.abortWithError(c, apperr.ValidationError(err.Error(), apperr.FieldError{Field: "class", Message: "must be 58mm or 80mm"}))
		return
	}

	cmd, err := s.logos.Command(c.Request.Context(), c.Param("tenant"), class)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", cmd)
}

func (s *Server) handleDeleteLogo(c *gin.Context) {
	if s.logos == nil {
		s.abortWithError(c, apperr.NotFound("logo"))
		return
	}
	if err := s.logos.Delete(c.Request.Context(), c.Param("tenant")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
