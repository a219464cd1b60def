package chromemstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"doc-chat/internal/models"
	"doc-chat/internal/vectorindex"
)

const (
	metaSource   = "source"
	metaSourceID = "source_id"
	metaOffset   = "offset"
	metaSeq      = "seq"

	compress = false
)

// Store persists embedded chunks in a chromem-go database. With inMemory
// set it keeps everything in process, which the tests use.
//
// Rebuilds alternate between two collection generations ("<name>-a" and
// "<name>-b"): the next generation is filled first and the meta record is
// the commit point, so a failed rebuild leaves the previous generation
// searchable.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
	name       string
	active     string
	inMemory   bool
	meta       *metaFile
}

// metaFile is the persisted index metadata plus the name of the collection
// generation it describes.
type metaFile struct {
	vectorindex.Meta
	Collection string `json:"collection"`
}

func New(dbPath, collection string, inMemory bool) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	s := &Store{db: db, dbPath: dbPath, name: collection, inMemory: inMemory}
	if !inMemory {
		if err := s.readMeta(); err != nil {
			return nil, err
		}
	}

	s.active = s.name + "-a"
	if s.meta != nil && s.meta.Collection != "" {
		s.active = s.meta.Collection
	}
	s.collection, err = db.GetOrCreateCollection(s.active, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return s, nil
}

func (s *Store) Replace(ctx context.Context, chunks []models.EmbeddedChunk, meta vectorindex.Meta) error {
	next := s.name + "-a"
	if s.active == next {
		next = s.name + "-b"
	}
	// an earlier interrupted rebuild may have left a stale generation behind
	if err := s.db.DeleteCollection(next); err != nil {
		return fmt.Errorf("failed to drop stale collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(next, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if len(chunks) > 0 {
		docs := make([]chromem.Document, 0, len(chunks))
		for _, c := range chunks {
			docs = append(docs, chromem.Document{
				ID:      fmt.Sprintf("%s-%d", c.SourceID, c.Seq),
				Content: c.Text,
				Metadata: map[string]string{
					metaSource:   c.Source,
					metaSourceID: c.SourceID,
					metaOffset:   strconv.Itoa(c.Offset),
					metaSeq:      strconv.Itoa(c.Seq),
				},
				Embedding: c.Embedding,
			})
		}
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			_ = s.db.DeleteCollection(next)
			return fmt.Errorf("failed to add documents: %w", err)
		}
	}

	if err := s.writeMeta(metaFile{Meta: meta, Collection: next}); err != nil {
		_ = s.db.DeleteCollection(next)
		return err
	}

	// committed: the previous generation is no longer reachable
	old := s.active
	s.collection = col
	s.active = next
	_ = s.db.DeleteCollection(old)
	return nil
}

func (s *Store) Load(_ context.Context) (vectorindex.Meta, bool, error) {
	if s.meta == nil {
		return vectorindex.Meta{}, false, nil
	}
	return s.meta.Meta, true, nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	// chromem rejects queries asking for more results than stored documents
	n := min(k, s.collection.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		offset, _ := strconv.Atoi(r.Metadata[metaOffset])
		seq, _ := strconv.Atoi(r.Metadata[metaSeq])
		hits = append(hits, models.ScoredChunk{
			Chunk: models.Chunk{
				SourceID: r.Metadata[metaSourceID],
				Source:   r.Metadata[metaSource],
				Text:     r.Content,
				Offset:   offset,
				Seq:      seq,
			},
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

func (s *Store) Reset(_ context.Context) error {
	for _, gen := range []string{s.name + "-a", s.name + "-b"} {
		if err := s.db.DeleteCollection(gen); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	s.active = s.name + "-a"
	col, err := s.db.GetOrCreateCollection(s.active, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}
	s.collection = col

	s.meta = nil
	if s.inMemory {
		return nil
	}
	if err := os.Remove(s.metaPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove index meta: %w", err)
	}
	return nil
}

func (s *Store) readMeta() error {
	data, err := os.ReadFile(s.metaPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index meta: %w", err)
	}
	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("failed to parse index meta: %w", err)
	}
	s.meta = &meta
	return nil
}

func (s *Store) writeMeta(meta metaFile) error {
	if !s.inMemory {
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode index meta: %w", err)
		}
		if err := os.WriteFile(s.metaPath(), data, 0o644); err != nil {
			return fmt.Errorf("failed to write index meta: %w", err)
		}
	}
	s.meta = &meta
	return nil
}

func (s *Store) metaPath() string {
	return filepath.Join(s.dbPath, s.name+".meta.json")
}
