// Package extract unpacks one dataset file from a provider archive.
package extract

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrArchiveCorrupt is returned when the payload is not a readable zip archive.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrMissingMember is returned when the archive lacks "<dataset>.json".
	ErrMissingMember = errors.New("archive member missing")
)

const (
	archiveName        = "payload.zip"
	defaultMaxLineSize = 16 << 20
)

// Config configures an Extractor.
type Config struct {
	// TempDir is the parent for per-call workspaces; empty uses os.TempDir.
	TempDir string
	// MaxLineSize bounds a single record.
	MaxLineSize int
}

// Extractor turns an archive payload into raw line records.
type Extractor struct {
	cfg Config
	log *slog.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.MaxLineSize <= 0 {
		cfg.MaxLineSize = defaultMaxLineSize
	}
	return &Extractor{
		cfg: cfg,
		log: slog.Default().With("component", "extract"),
	}
}

// Extract writes payload into a private workspace, pulls out "<dataset>.json"
// and returns its non-blank lines. The workspace is removed before returning
// on every path.
func (e *Extractor) Extract(payload []byte, dataset string) ([]string, error) {
	workspace, err := os.MkdirTemp(e.cfg.TempDir, "btc-extract-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			e.log.Warn("Failed to remove workspace", "path", workspace, "error", err)
		}
	}()

	archivePath := filepath.Join(workspace, archiveName)
	if err := os.WriteFile(archivePath, payload, 0o600); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	member := dataset + ".json"
	localPath, err := extractMember(archivePath, member, workspace)
	if err != nil {
		if errors.Is(err, ErrMissingMember) {
			e.log.Warn("Invalid data file", "dataset", dataset, "member", member)
		}
		return nil, err
	}

	lines, err := e.readLines(localPath)
	if err != nil {
		return nil, err
	}
	e.log.Info("Decoded dataset", "dataset", dataset, "records", len(lines))
	return lines, nil
}

// extractMember copies exactly one member out of the archive into dir.
func extractMember(archivePath, member, dir string) (string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != member {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open %s: %v", ErrArchiveCorrupt, member, err)
		}
		defer rc.Close()

		// member is "<dataset>.json"; keep only the base name inside the workspace.
		localPath := filepath.Join(dir, filepath.Base(member))
		out, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", localPath, err)
		}
		if _, err := io.Copy(out, rc); err != nil {
			_ = out.Close()
			return "", fmt.Errorf("%w: inflate %s: %v", ErrArchiveCorrupt, member, err)
		}
		if err := out.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", localPath, err)
		}
		return localPath, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMissingMember, member)
}

func (e *Extractor) readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extracted file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	// The token limit is the larger of max and cap(buf).
	scanner.Buffer(make([]byte, 0, min(64*1024, e.cfg.MaxLineSize)), e.cfg.MaxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read extracted file: %w", err)
	}
	return lines, nil
}
