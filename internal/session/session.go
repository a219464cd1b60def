package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"doc-chat/internal/assembler"
	"doc-chat/internal/chunker"
	"doc-chat/internal/citations"
	"doc-chat/internal/config"
	"doc-chat/internal/docstore"
	"doc-chat/internal/extract"
	"doc-chat/internal/helper"
	"doc-chat/internal/memory"
	"doc-chat/internal/models"
	"doc-chat/internal/vectorindex"
)

const uploadPreviewLen = 1000

// Generator streams cumulative answer snapshots for a prompt.
type Generator interface {
	Stream(ctx context.Context, prompt string) <-chan string
}

// Session owns all per-session state: the conversation log, the flat
// uploaded-chunk store, and the vector index. One chat turn runs as one
// sequential pipeline; the shared stores serialize their own access, so
// concurrent turns degrade to interleaved but consistent updates.
type Session struct {
	cfg    *config.Config
	log    zerolog.Logger
	memory *memory.Memory
	docs   *docstore.Store
	index  *vectorindex.Index
	llm    Generator
}

func New(cfg *config.Config, logger zerolog.Logger, index *vectorindex.Index, llm Generator) *Session {
	return &Session{
		cfg:    cfg,
		log:    logger,
		memory: memory.New(),
		docs:   docstore.New(),
		index:  index,
		llm:    llm,
	}
}

// Ingest extracts text from each uploaded file, stores its chunks, and
// rebuilds the vector index over the full accumulated corpus. Extraction
// failures are scoped to their file: the failing file's preview slot holds
// an inline error string and the batch continues.
func (s *Session) Ingest(ctx context.Context, files []models.UploadedFile) []string {
	previews := make([]string, 0, len(files))
	added := false

	for _, f := range files {
		text, err := extract.Text(f.Name, f.Data)
		if err != nil {
			s.log.Warn().Err(err).Str("file", f.Name).Msg("failed to ingest file")
			previews = append(previews, fmt.Sprintf("Error in %s: %v", f.Name, err))
			continue
		}

		id, err := helper.GenerateUUID()
		if err != nil {
			previews = append(previews, fmt.Sprintf("Error in %s: %v", f.Name, err))
			continue
		}

		formatted := make([]string, 0)
		for _, c := range chunker.Split(text, s.cfg.RAG.StoreChunkSize) {
			formatted = append(formatted, fmt.Sprintf("--- %s ---\n%s", f.Name, c))
		}
		s.docs.Add(docstore.Document{ID: id, Name: f.Name, Text: text}, formatted)
		previews = append(previews, fmt.Sprintf("--- %s ---\n%s...", f.Name, assembler.Truncate(text, uploadPreviewLen)))
		added = true

		s.log.Info().Str("file", f.Name).Int("chunks", len(formatted)).Msg("ingested file")
	}

	if added {
		if err := s.rebuildIndex(ctx); err != nil {
			// retrieval degrades to the recency path until the next rebuild
			s.log.Error().Err(err).Msg("failed to rebuild index")
		}
	}
	return previews
}

// rebuildIndex re-chunks the whole stored corpus with overlap and swaps in
// a fresh index.
func (s *Session) rebuildIndex(ctx context.Context) error {
	size := s.cfg.RAG.ChunkSize
	step := size - s.cfg.RAG.ChunkOverlap
	if step <= 0 {
		step = 1
	}

	var chunks []models.Chunk
	seq := 0
	for _, doc := range s.docs.Documents() {
		for i, piece := range chunker.SplitOverlap(doc.Text, size, s.cfg.RAG.ChunkOverlap) {
			chunks = append(chunks, models.Chunk{
				SourceID: doc.ID,
				Source:   doc.Name,
				Text:     piece,
				Offset:   i * step,
				Seq:      seq,
			})
			seq++
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	return s.index.Build(ctx, chunks)
}

// Converse answers one user message, emitting cumulative answer snapshots.
// When the index yields relevant chunks the answer is grounded on them and
// the final item carries a citation block; otherwise the recency context
// (stored chunks + conversation memory) is used. The channel closes after
// the final item.
func (s *Session) Converse(ctx context.Context, message string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)

		hits, err := s.index.Search(ctx, message, s.cfg.RAG.TopK)
		if err != nil {
			s.log.Warn().Err(err).Msg("retrieval failed, falling back to recency context")
		}
		if len(hits) > 0 {
			s.converseRetrieval(ctx, message, hits, out)
			return
		}
		s.converseRecency(ctx, message, out)
	}()
	return out
}

func (s *Session) converseRetrieval(ctx context.Context, message string, hits []models.ScoredChunk, out chan<- string) {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	prompt := assembler.RetrievalPrompt(texts, message)
	previews := assembler.Previews(texts, s.cfg.RAG.PreviewLen)

	final := s.pump(ctx, prompt, out)

	// citations go out as one extra terminal item, never interleaved
	if !send(ctx, out, final+citations.Format(previews)) {
		return
	}
	s.memory.Append(message, final)
}

func (s *Session) converseRecency(ctx context.Context, message string, out chan<- string) {
	prompt := assembler.RecencyPrompt(
		s.docs.TailContext(s.cfg.RAG.FileContextBudget),
		s.memory.Context(s.cfg.RAG.MemoryTurns),
		message,
	)
	final := s.pump(ctx, prompt, out)
	s.memory.Append(message, final)
}

// pump forwards every snapshot from the generator and returns the last one.
func (s *Session) pump(ctx context.Context, prompt string, out chan<- string) string {
	var final string
	for snapshot := range s.llm.Stream(ctx, prompt) {
		final = snapshot
		if !send(ctx, out, snapshot) {
			break
		}
	}
	return final
}

// ResetConversation clears the conversation log only. Uploaded chunks and
// the persisted index survive; dropping those is ClearDocuments.
func (s *Session) ResetConversation() {
	s.memory.Clear()
	s.log.Info().Msg("conversation cleared")
}

// ClearDocuments drops the uploaded-chunk store and the persisted vector
// index, leaving the conversation log intact.
func (s *Session) ClearDocuments(ctx context.Context) error {
	s.docs.Clear()
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	s.log.Info().Msg("documents cleared")
	return nil
}

// Memory exposes the conversation log, e.g. for rendering past turns.
func (s *Session) Memory() *memory.Memory {
	return s.memory
}

// Documents lists the uploaded documents in ingestion order.
func (s *Session) Documents() []docstore.Document {
	return s.docs.Documents()
}

func send(ctx context.Context, out chan<- string, v string) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
