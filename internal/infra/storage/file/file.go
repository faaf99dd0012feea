// Package file stores the watermark in a single text file.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vietddude/btc-connector/internal/infra/storage"
)

// WatermarkRepo implements storage.WatermarkRepository on one file.
type WatermarkRepo struct {
	path string
}

// NewWatermarkRepo creates a repository backed by path.
func NewWatermarkRepo(path string) *WatermarkRepo {
	return &WatermarkRepo{path: path}
}

// Path returns the watermark file location.
func (r *WatermarkRepo) Path() string {
	return r.path
}

// Load reads the file contents.
func (r *WatermarkRepo) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", storage.ErrWatermarkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read watermark file: %w", err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", storage.ErrWatermarkNotFound
	}
	return value, nil
}

// Save writes value to a temporary file in the same directory and renames it
// over the target, so readers never observe a truncated watermark.
func (r *WatermarkRepo) Save(ctx context.Context, value string) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watermark dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp watermark file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(value + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write watermark: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync watermark: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close watermark: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace watermark file: %w", err)
	}
	committed = true

	// Persist the rename itself; not every platform supports syncing a dir.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Delete removes the watermark file.
func (r *WatermarkRepo) Delete(ctx context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove watermark file: %w", err)
	}
	return nil
}
