package memory

import (
	"context"
	"sync"

	"github.com/vietddude/btc-connector/internal/infra/storage"
)

// WatermarkRepo keeps the watermark in process memory. It is lost on restart.
type WatermarkRepo struct {
	mu    sync.RWMutex
	value string
	set   bool
	saves int
}

func NewWatermarkRepo() *WatermarkRepo {
	return &WatermarkRepo{}
}

func (r *WatermarkRepo) Load(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.set {
		return "", storage.ErrWatermarkNotFound
	}
	return r.value, nil
}

func (r *WatermarkRepo) Save(ctx context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = value
	r.set = true
	r.saves++
	return nil
}

func (r *WatermarkRepo) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = ""
	r.set = false
	return nil
}

// Saves reports how many times Save was called.
func (r *WatermarkRepo) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
