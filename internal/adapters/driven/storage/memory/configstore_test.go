package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "claude"))
	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_SetAll(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("index.top_k", 3))

	require.NoError(t, store.SetAll(map[string]any{
		"index.top_k":   5,
		"index.backend": "hnsw",
	}))

	topK, _ := store.Get("index.top_k")
	backend, _ := store.Get("index.backend")
	assert.Equal(t, 5, topK)
	assert.Equal(t, "hnsw", backend)
}

func TestConfigStore_SliceIsCopied(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("corpus.patterns", []string{"*.md"})

	got, _ := store.Get("corpus.patterns")
	got.([]string)[0] = "changed"

	again, _ := store.Get("corpus.patterns")
	assert.Equal(t, []string{"*.md"}, again)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("index.top_k", n)
			_ = store.SetAll(map[string]any{"index.context_chars": n})
			_, _ = store.Get("index.top_k")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("index.top_k")
	assert.True(t, ok)
}
