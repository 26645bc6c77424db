package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
)

func testSet(tenant, id string) *logo.Set {
	return &logo.Set{
		ID:     id,
		Tenant: tenant,
		Source: logo.Source{Filename: "logo.png", Width: 8, Height: 1},
		Thermal58: &logo.Artifact{
			Class: logo.Class58, Width: 8, Height: 1, RowBytes: 1,
			Bitmap: []byte{0xAA}, Command: []byte{0x1B, 0x40}, ChunkSize: 32,
		},
		Thermal80: &logo.Artifact{
			Class: logo.Class80, Width: 8, Height: 1, RowBytes: 1,
			Bitmap: []byte{0x55}, Command: []byte{0x1B, 0x40}, ChunkSize: 32,
		},
		Web: &logo.Preview{Width: 8, Height: 1},
	}
}

func TestNewFileStore_MissingFile(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "logos.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Tenants())
}

func TestNewFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logos.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_SaveLoadPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "logos.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testSet("acme", "one")))
	require.NoError(t, s.Save(ctx, testSet("globex", "two")))

	got, err := s.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "one", got.ID)
	assert.Equal(t, []byte{0xAA}, got.Thermal58.Bitmap)

	// a fresh store sees what was written
	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	got, err = reopened.Load(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, "two", got.ID)
	assert.Equal(t, []byte{0x55}, got.Thermal80.Bitmap)

	tenants := reopened.Tenants()
	sort.Strings(tenants)
	assert.Equal(t, []string{"acme", "globex"}, tenants)
}

func TestFileStore_Replace(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "logos.json"))
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, testSet("acme", "old")))
	require.NoError(t, s.Save(ctx, testSet("acme", "new")))

	got, err := s.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)
	assert.Len(t, s.Tenants(), 1)
}

func TestFileStore_FailedWriteKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "logos.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, testSet("acme", "old")))

	// a directory at the target path makes the rename fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), nil, 0o644))

	err = s.Save(ctx, testSet("acme", "new"))
	require.Error(t, err)

	got, err := s.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "old", got.ID)
}

func TestFileStore_SharesNoBuffers(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "logos.json"))
	require.NoError(t, err)

	in := testSet("acme", "one")
	require.NoError(t, s.Save(ctx, in))
	in.Thermal58.Bitmap[0] = 0x00

	first, err := s.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, first.Thermal58.Bitmap)

	first.Thermal80.Command[0] = 0x00
	second, err := s.Load(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1B, 0x40}, second.Thermal80.Command)
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "logos.json"))
	require.NoError(t, err)

	assert.True(t, apperr.IsNotFound(s.Delete(ctx, "acme")))

	require.NoError(t, s.Save(ctx, testSet("acme", "one")))
	require.NoError(t, s.Delete(ctx, "acme"))

	_, err = s.Load(ctx, "acme")
	assert.True(t, apperr.IsNotFound(err))
}

func TestFileStore_RequiresTenant(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "logos.json"))
	require.NoError(t, err)
	assert.True(t, apperr.IsValidation(s.Save(context.Background(), testSet("", "x"))))
}
