package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"doc-chat/internal/models"
)

// ErrModelMismatch is returned by Load when the persisted index was built
// with a different embedding model than the one configured now. Querying
// such an index would compare vectors from incompatible spaces, so this is
// a hard error rather than a silent degradation.
var ErrModelMismatch = errors.New("index built with a different embedding model")

// Embedder turns text into a fixed-dimension vector, deterministic for a
// given model version.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Meta identifies the state an index was persisted with.
type Meta struct {
	Model   string    `json:"model"`
	Chunks  int       `json:"chunks"`
	BuiltAt time.Time `json:"built_at"`
}

// Store is the persistence backend for embedded chunks. Replace swaps the
// whole stored set; Load reports ok=false when no persisted state exists.
type Store interface {
	Replace(ctx context.Context, chunks []models.EmbeddedChunk, meta Meta) error
	Load(ctx context.Context) (Meta, bool, error)
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Reset(ctx context.Context) error
}

// Index embeds chunks and queries, pins the embedding model identity at
// build time, and serializes rebuilds against concurrent searches.
type Index struct {
	mu       sync.RWMutex
	store    Store
	embedder Embedder
	model    string
	ready    bool
}

func New(store Store, embedder Embedder, model string) *Index {
	return &Index{store: store, embedder: embedder, model: model}
}

// Build embeds every chunk and replaces the stored index. Embedding runs
// outside the lock; the swap itself excludes concurrent searches, so a
// failure partway through embedding never exposes a half-replaced index.
func (ix *Index) Build(ctx context.Context, chunks []models.Chunk) error {
	embedded := make([]models.EmbeddedChunk, 0, len(chunks))
	for i, c := range chunks {
		vec, err := ix.embedder.EmbedQuery(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %s: %w", i, c.Source, err)
		}
		embedded = append(embedded, models.EmbeddedChunk{Chunk: c, Embedding: vec})
	}

	meta := Meta{Model: ix.model, Chunks: len(embedded), BuiltAt: time.Now().UTC()}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.store.Replace(ctx, embedded, meta); err != nil {
		return fmt.Errorf("replacing index: %w", err)
	}
	ix.ready = len(embedded) > 0
	log.Debug().Int("chunks", len(embedded)).Str("model", ix.model).Msg("index rebuilt")
	return nil
}

// Load populates the index from persisted state without re-embedding.
// Absent state leaves the index empty and is not an error.
func (ix *Index) Load(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	meta, ok, err := ix.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	if !ok {
		return nil
	}
	if meta.Model != ix.model {
		return fmt.Errorf("%w: persisted %q, configured %q", ErrModelMismatch, meta.Model, ix.model)
	}
	ix.ready = meta.Chunks > 0
	log.Debug().Int("chunks", meta.Chunks).Str("model", meta.Model).Msg("index loaded")
	return nil
}

// Ready reports whether the index holds any chunks.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Search returns up to k chunks most similar to the query, best first,
// ties broken by insertion order. An index that was never built or loaded
// yields an empty result, not an error.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.ready {
		return nil, nil
	}

	vec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := ix.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Seq < hits[j].Seq
	})
	return hits, nil
}

// Clear drops both the in-memory and the persisted index state.
func (ix *Index) Clear(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting index store: %w", err)
	}
	ix.ready = false
	return nil
}
