package logo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
)

// Store persists artifact sets by tenant. Save must replace the previous set
// atomically; Load and Delete return an apperr NotFound when nothing is
// stored.
type Store interface {
	Save(ctx context.Context, set *Set) error
	Load(ctx context.Context, tenant string) (*Set, error)
	Delete(ctx context.Context, tenant string) error
}

// Service rasterizes uploads and persists complete sets.
type Service struct {
	raster *Rasterizer
	store  Store
	logger *slog.Logger
}

// NewService wires a rasterizer to a store.
func NewService(r *Rasterizer, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger}
	s.raster = r.WithTrace(func(stage string, elapsed time.Duration) {
		logger.Debug("logo stage complete", "stage", stage, "elapsed", elapsed)
	})
	return s
}

// MaxUploadBytes is the largest accepted upload.
func (s *Service) MaxUploadBytes() int64 {
	return s.raster.Options().MaxUploadBytes
}

// Upload rasterizes u and replaces the tenant's logo. The stored set is
// left untouched when any stage fails.
func (s *Service) Upload(ctx context.Context, tenant string, u Upload) (*Set, error) {
	if tenant == "" {
		return nil, apperr.ValidationError("tenant is required")
	}

	set, err := s.raster.Rasterize(u)
	if err != nil {
		s.logger.Warn("logo rejected", "tenant", tenant, "filename", u.Filename, "error", err)
		return nil, err
	}
	if !set.Complete() {
		return nil, apperr.Internal(fmt.Errorf("rasterizer returned an incomplete set"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set.Tenant = tenant
	if err := s.store.Save(ctx, set); err != nil {
		return nil, fmt.Errorf("save logo for tenant %s: %w", tenant, err)
	}

	s.logger.Info("logo stored",
		"tenant", tenant,
		"id", set.ID,
		"source", fmt.Sprintf("%dx%d", set.Source.Width, set.Source.Height),
		"58mm", fmt.Sprintf("%dx%d", set.Thermal58.Width, set.Thermal58.Height),
		"80mm", fmt.Sprintf("%dx%d", set.Thermal80.Width, set.Thermal80.Height),
	)
	return set, nil
}

// Get returns the tenant's stored set.
func (s *Service) Get(ctx context.Context, tenant string) (*Set, error) {
	return s.store.Load(ctx, tenant)
}

// Command returns the framed raster bytes for one thermal class.
func (s *Service) Command(ctx context.Context, tenant string, class Class) ([]byte, error) {
	set, err := s.store.Load(ctx, tenant)
	if err != nil {
		return nil, err
	}
	a := set.Artifact(class)
	if a == nil {
		return nil, apperr.NotFound(fmt.Sprintf("logo class %s", class))
	}
	return a.Command, nil
}

// Delete removes the tenant's logo.
func (s *Service) Delete(ctx context.Context, tenant string) error {
	if err := s.store.Delete(ctx, tenant); err != nil {
		return err
	}
	s.logger.Info("logo deleted", "tenant", tenant)
	return nil
}
