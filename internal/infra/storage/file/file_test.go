package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/btc-connector/internal/infra/storage"
)

func TestWatermarkRepo_LoadMissing(t *testing.T) {
	repo := NewWatermarkRepo(filepath.Join(t.TempDir(), "watermark.txt"))

	_, err := repo.Load(context.Background())
	assert.True(t, errors.Is(err, storage.ErrWatermarkNotFound))
}

func TestWatermarkRepo_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "watermark.txt")
	repo := NewWatermarkRepo(path)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "2020-05-14T01:10:00+00:00"))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2020-05-14T01:10:00+00:00", got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2020-05-14T01:10:00+00:00\n", string(raw))
}

func TestWatermarkRepo_SaveReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	repo := NewWatermarkRepo(filepath.Join(dir, "watermark.txt"))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "2020-05-14T01:10:00+00:00"))
	require.NoError(t, repo.Save(ctx, "2020-05-14T01:20:00+00:00"))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2020-05-14T01:20:00+00:00", got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive a save")
}

func TestWatermarkRepo_EmptyFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watermark.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	_, err := NewWatermarkRepo(path).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrWatermarkNotFound)
}

func TestWatermarkRepo_Delete(t *testing.T) {
	repo := NewWatermarkRepo(filepath.Join(t.TempDir(), "watermark.txt"))
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx), "deleting a missing file is not an error")
	require.NoError(t, repo.Save(ctx, "2020-05-14T01:10:00+00:00"))
	require.NoError(t, repo.Delete(ctx))

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrWatermarkNotFound)
}
