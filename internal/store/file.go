// Package store persists logo artifact sets for the logo service.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/thereceipt/receipt-renderer/internal/apperr"
	"github.com/thereceipt/receipt-renderer/internal/logo"
)

var (
	_ logo.Store = (*FileStore)(nil)
	_ logo.Store = (*RedisStore)(nil)
	_ logo.Store = (*PostgresStore)(nil)
)

// FileStore keeps every tenant's logo set in one JSON file.
type FileStore struct {
	filePath string
	data     map[string]*logo.Set
	mu       sync.RWMutex
}

// NewFileStore loads filePath if it exists. A missing file is created on the
// first save.
func NewFileStore(filePath string) (*FileStore, error) {
	s := &FileStore{
		filePath: filePath,
		data:     make(map[string]*logo.Set),
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load logo store: %w", err)
		}
	}

	return s, nil
}

// Save replaces the tenant's set. The in-memory view only changes after the
// file has been written.
func (s *FileStore) Save(_ context.Context, set *logo.Set) error {
	if set == nil || set.Tenant == "" {
		return apperr.ValidationError("logo set has no tenant")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*logo.Set, len(s.data)+1)
	for k, v := range s.data {
		next[k] = v
	}
	next[set.Tenant] = set.Clone()

	if err := s.write(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Load returns the tenant's set.
func (s *FileStore) Load(_ context.Context, tenant string) (*logo.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.data[tenant]
	if !ok {
		return nil, apperr.NotFound("logo")
	}
	return set.Clone(), nil
}

// Delete removes the tenant's set.
func (s *FileStore) Delete(_ context.Context, tenant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[tenant]; !ok {
		return apperr.NotFound("logo")
	}

	next := make(map[string]*logo.Set, len(s.data))
	for k, v := range s.data {
		if k != tenant {
			next[k] = v
		}
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Tenants returns the tenants that currently have a logo.
func (s *FileStore) Tenants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &s.data)
}

// write replaces the file through a temp file and rename so readers never
// see a half-written store.
func (s *FileStore) write(data map[string]*logo.Set) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode logo store: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".logos-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("replace logo store: %w", err)
	}
	return nil
}
