package docstore

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// Document is an uploaded file's extracted text kept for the process
// lifetime.
type Document struct {
	ID   string
	Name string
	Text string
}

// Store holds uploaded documents and their formatted chunks in ingestion
// order. It backs the recency context path, where all stored chunks are
// concatenated and tail-truncated to a byte budget.
type Store struct {
	mu     sync.RWMutex
	docs   []Document
	chunks []string
}

func New() *Store {
	return &Store{}
}

func (s *Store) Add(doc Document, chunks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	s.chunks = append(s.chunks, chunks...)
}

// Documents returns a copy of the stored documents in ingestion order.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// TailContext concatenates all stored chunks and keeps only the trailing
// budget bytes, discarding the earliest content first. The cut never lands
// inside a multi-byte rune, so the tail may come in slightly under budget.
func (s *Store) TailContext(budget int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	joined := strings.Join(s.chunks, "\n")
	if budget > 0 && len(joined) > budget {
		cut := len(joined) - budget
		for cut < len(joined) && !utf8.RuneStart(joined[cut]) {
			cut++
		}
		joined = joined[cut:]
	}
	return joined
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.chunks = nil
}

func (s *Store) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
