package db

import (
	"context"
	"sync"
)

// MemoryGateway keeps documents in process memory. Nothing survives a restart.
type MemoryGateway struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{data: make(map[string][]byte)}
}

func (g *MemoryGateway) Get(_ context.Context, key string) ([]byte, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (g *MemoryGateway) Set(_ context.Context, key string, value []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data[key] = append([]byte(nil), value...)
	return nil
}
