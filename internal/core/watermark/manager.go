package watermark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/btc-connector/internal/core/domain"
	"github.com/vietddude/btc-connector/internal/indexing/metrics"
	"github.com/vietddude/btc-connector/internal/infra/storage"
)

// Store is the watermark surface used by the poller.
type Store interface {
	// Read returns the persisted watermark, or false when there is none.
	Read(ctx context.Context) (time.Time, bool)

	// Write persists ts unconditionally.
	Write(ctx context.Context, ts time.Time) error

	// Advance persists ts unless it is older than the stored value.
	Advance(ctx context.Context, ts time.Time) error
}

// Manager implements Store on top of a storage.WatermarkRepository.
type Manager struct {
	repo storage.WatermarkRepository
	log  *slog.Logger
}

// NewManager creates a new watermark manager with the given repository.
func NewManager(repo storage.WatermarkRepository) *Manager {
	return &Manager{
		repo: repo,
		log:  slog.Default().With("component", "watermark"),
	}
}

// Read loads and parses the watermark. Corrupt values count as absent.
func (m *Manager) Read(ctx context.Context) (time.Time, bool) {
	raw, err := m.repo.Load(ctx)
	if errors.Is(err, storage.ErrWatermarkNotFound) {
		return time.Time{}, false
	}
	if err != nil {
		m.log.Warn("Failed to load watermark, starting cold", "error", err)
		return time.Time{}, false
	}

	ts, err := domain.ParseWatermark(raw)
	if err != nil {
		m.log.Warn("Invalid watermark, starting cold", "value", raw, "error", err)
		return time.Time{}, false
	}
	metrics.WatermarkTimestamp.Set(float64(ts.Unix()))
	return ts, true
}

// Write formats and persists ts.
func (m *Manager) Write(ctx context.Context, ts time.Time) error {
	if err := m.repo.Save(ctx, domain.FormatWatermark(ts)); err != nil {
		metrics.WatermarkWriteErrors.Inc()
		return &IOError{Op: "write", Err: err}
	}
	metrics.WatermarkTimestamp.Set(float64(ts.Unix()))
	return nil
}

// Advance writes ts if it is not older than the current watermark. An absent
// or corrupt stored value is overwritten; a failed load writes nothing.
func (m *Manager) Advance(ctx context.Context, ts time.Time) error {
	raw, err := m.repo.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrWatermarkNotFound):
	case err != nil:
		return &IOError{Op: "read", Err: err}
	default:
		current, perr := domain.ParseWatermark(raw)
		if perr != nil {
			m.log.Warn("Overwriting invalid watermark", "value", raw, "error", perr)
		} else if ts.Before(current) {
			return fmt.Errorf("%w: %s -> %s", ErrWatermarkRegression,
				domain.FormatWatermark(current), domain.FormatWatermark(ts))
		}
	}
	return m.Write(ctx, ts)
}

// Reset deletes the stored watermark; the next cycle starts cold.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.repo.Delete(ctx); err != nil {
		return &IOError{Op: "reset", Err: err}
	}
	metrics.WatermarkTimestamp.Set(0)
	m.log.Info("Watermark reset")
	return nil
}
