package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/btc-connector/internal/core/config"
	"github.com/vietddude/btc-connector/internal/core/watermark"
	"github.com/vietddude/btc-connector/internal/infra/storage"
	"github.com/vietddude/btc-connector/internal/infra/storage/file"
	"github.com/vietddude/btc-connector/internal/infra/storage/memory"
	"github.com/vietddude/btc-connector/internal/infra/storage/postgres"
	redisstore "github.com/vietddude/btc-connector/internal/infra/storage/redis"
)

// WatermarkBackend is an opened watermark store plus whatever connection
// backs it.
type WatermarkBackend struct {
	Manager *watermark.Manager
	DB      *postgres.DB
	Redis   *redisstore.Client
}

// OpenWatermark connects the configured watermark backend.
func OpenWatermark(ctx context.Context, cfg config.WatermarkConfig) (*WatermarkBackend, error) {
	var (
		repo    storage.WatermarkRepository
		backend = &WatermarkBackend{}
	)

	switch cfg.Backend {
	case config.BackendFile, "":
		repo = file.NewWatermarkRepo(cfg.Path)
		slog.Info("Using file watermark", "path", cfg.Path)

	case config.BackendMemory:
		repo = memory.NewWatermarkRepo()
		slog.Warn("Using in-memory watermark, progress is lost on restart")

	case config.BackendRedis:
		client, err := redisstore.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		backend.Redis = client
		repo = redisstore.NewWatermarkRepo(client, cfg.Name)
		slog.Info("Using Redis watermark", "name", cfg.Name)

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		backend.DB = db
		repo = postgres.NewWatermarkRepo(db, cfg.Name)
		slog.Info("Using PostgreSQL watermark", "name", cfg.Name)

	default:
		return nil, fmt.Errorf("unknown watermark backend %q", cfg.Backend)
	}

	backend.Manager = watermark.NewManager(repo)
	return backend, nil
}

// Close releases the backend's connection, if any.
func (b *WatermarkBackend) Close() error {
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			return fmt.Errorf("close db: %w", err)
		}
	}
	return nil
}
