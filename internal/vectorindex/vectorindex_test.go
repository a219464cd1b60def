package vectorindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-chat/internal/models"
	"doc-chat/internal/vectorindex"
	"doc-chat/internal/vectorindex/chromemstore"
)

// stubEmbedder returns canned vectors per text, falling back to a default.
type stubEmbedder struct {
	vecs map[string][]float32
	def  []float32
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return s.def, nil
}

func newMemStore(t *testing.T) vectorindex.Store {
	t.Helper()
	store, err := chromemstore.New("", "test", true)
	require.NoError(t, err)
	return store
}

func chunksOf(texts ...string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{SourceID: "doc", Source: "doc.txt", Text: text, Offset: i * 10, Seq: i}
	}
	return chunks
}

func Test_Search_NeverBuilt(t *testing.T) {
	ix := vectorindex.New(newMemStore(t), &stubEmbedder{def: []float32{1, 0}}, "test-model")

	hits, err := ix.Search(context.Background(), "anything", 3)
	assert.NoError(t, err)
	assert.Empty(t, hits)
	assert.False(t, ix.Ready())
}

func Test_Search_FewerThanK(t *testing.T) {
	emb := &stubEmbedder{
		vecs: map[string][]float32{
			"near":  {1, 0},
			"mid":   {0.6, 0.8},
			"query": {1, 0},
		},
		def: []float32{0, 1},
	}
	ix := vectorindex.New(newMemStore(t), emb, "test-model")
	require.NoError(t, ix.Build(context.Background(), chunksOf("near", "mid")))

	hits, err := ix.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Text)
	assert.Equal(t, "mid", hits[1].Text)
	assert.GreaterOrEqual(t, hits[0].Similarity, hits[1].Similarity)
}

func Test_Search_TopK(t *testing.T) {
	emb := &stubEmbedder{
		vecs: map[string][]float32{
			"near":  {1, 0},
			"mid":   {0.6, 0.8},
			"far":   {0, 1},
			"query": {1, 0},
		},
	}
	ix := vectorindex.New(newMemStore(t), emb, "test-model")
	require.NoError(t, ix.Build(context.Background(), chunksOf("far", "mid", "near")))

	hits, err := ix.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Text)
	assert.Equal(t, "mid", hits[1].Text)
}

func Test_Search_TieBreakInsertionOrder(t *testing.T) {
	// identical vectors: equal similarity, insertion order decides
	emb := &stubEmbedder{def: []float32{1, 0}}
	ix := vectorindex.New(newMemStore(t), emb, "test-model")
	require.NoError(t, ix.Build(context.Background(), chunksOf("first", "second", "third")))

	hits, err := ix.Search(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{hits[0].Text, hits[1].Text, hits[2].Text})
}

func Test_Search_InvalidK(t *testing.T) {
	ix := vectorindex.New(newMemStore(t), &stubEmbedder{def: []float32{1, 0}}, "test-model")
	_, err := ix.Search(context.Background(), "query", 0)
	assert.Error(t, err)
}

func Test_Build_ReplacesPriorIndex(t *testing.T) {
	emb := &stubEmbedder{def: []float32{1, 0}}
	ix := vectorindex.New(newMemStore(t), emb, "test-model")
	require.NoError(t, ix.Build(context.Background(), chunksOf("old")))
	require.NoError(t, ix.Build(context.Background(), chunksOf("new")))

	hits, err := ix.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Text)
}

func Test_Load_AbsentState(t *testing.T) {
	dir := t.TempDir()
	store, err := chromemstore.New(dir, "docs", false)
	require.NoError(t, err)

	ix := vectorindex.New(store, &stubEmbedder{def: []float32{1, 0}}, "test-model")
	assert.NoError(t, ix.Load(context.Background()))
	assert.False(t, ix.Ready())
}

func Test_Load_ModelMismatch(t *testing.T) {
	dir := t.TempDir()
	emb := &stubEmbedder{def: []float32{1, 0}}

	store, err := chromemstore.New(dir, "docs", false)
	require.NoError(t, err)
	ix := vectorindex.New(store, emb, "model-a")
	require.NoError(t, ix.Build(context.Background(), chunksOf("text")))

	reopened, err := chromemstore.New(dir, "docs", false)
	require.NoError(t, err)
	other := vectorindex.New(reopened, emb, "model-b")
	assert.ErrorIs(t, other.Load(context.Background()), vectorindex.ErrModelMismatch)
}

func Test_Load_SameModel(t *testing.T) {
	dir := t.TempDir()
	emb := &stubEmbedder{def: []float32{1, 0}}

	store, err := chromemstore.New(dir, "docs", false)
	require.NoError(t, err)
	ix := vectorindex.New(store, emb, "model-a")
	require.NoError(t, ix.Build(context.Background(), chunksOf("text")))

	reopened, err := chromemstore.New(dir, "docs", false)
	require.NoError(t, err)
	loaded := vectorindex.New(reopened, emb, "model-a")
	require.NoError(t, loaded.Load(context.Background()))
	assert.True(t, loaded.Ready())

	hits, err := loaded.Search(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "text", hits[0].Text)
}

func Test_Clear(t *testing.T) {
	ix := vectorindex.New(newMemStore(t), &stubEmbedder{def: []float32{1, 0}}, "test-model")
	require.NoError(t, ix.Build(context.Background(), chunksOf("text")))
	require.NoError(t, ix.Clear(context.Background()))

	assert.False(t, ix.Ready())
	hits, err := ix.Search(context.Background(), "query", 1)
	assert.NoError(t, err)
	assert.Empty(t, hits)
}
