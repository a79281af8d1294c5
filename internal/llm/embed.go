package llm

import (
	"context"
	"sync"
)

// MemoEmbedder caches embeddings by exact text. Episodes repeat the same
// posts across scoring passes, so the cache saves real backend calls.
type MemoEmbedder struct {
	inner Embedder

	mu    sync.Mutex
	cache map[string][]float64
}

func NewMemoEmbedder(inner Embedder) *MemoEmbedder {
	return &MemoEmbedder{inner: inner, cache: make(map[string][]float64)}
}

func (m *MemoEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	cached, ok := m.cache[text]
	m.mu.Unlock()
	if ok {
		return append([]float64(nil), cached...), nil
	}
	vec, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cache[text] = vec
	m.mu.Unlock()
	return append([]float64(nil), vec...), nil
}
