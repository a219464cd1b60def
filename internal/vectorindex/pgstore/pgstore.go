package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"doc-chat/internal/models"
	"doc-chat/internal/vectorindex"
)

// ChunkRow is one embedded chunk persisted in Postgres with pgvector.
type ChunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SourceID      string    `bun:"source_id,notnull"`
	Source        string    `bun:"source,notnull"`
	Content       string    `bun:"content,notnull"`
	Offset        int       `bun:"chunk_offset,notnull"`
	Seq           int       `bun:"seq,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	Similarity    float32   `bun:"similarity,scanonly"`
}

// MetaRow pins the embedding model the stored chunks were built with.
type MetaRow struct {
	bun.BaseModel `bun:"table:index_meta,alias:m"`
	ID            int64     `bun:"id,pk"`
	Model         string    `bun:"model,notnull"`
	Chunks        int       `bun:"chunks,notnull"`
	BuiltAt       time.Time `bun:"built_at,notnull"`
}

// Store keeps the index in a Postgres database, ordered nearest-first by
// pgvector cosine distance at query time.
type Store struct {
	db *bun.DB
}

func Connect(dsn, password string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(password)))
}

func New(sqldb *sql.DB, debug bool) *Store {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}
}

// Init creates the backing tables when they do not exist yet.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*ChunkRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*MetaRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("creating index_meta table: %w", err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, chunks []models.EmbeddedChunk, meta vectorindex.Meta) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewTruncateTable().Model((*ChunkRow)(nil)).Exec(ctx); err != nil {
			return fmt.Errorf("truncating chunks: %w", err)
		}

		if len(chunks) > 0 {
			rows := make([]ChunkRow, len(chunks))
			for i, c := range chunks {
				rows[i] = ChunkRow{
					SourceID:  c.SourceID,
					Source:    c.Source,
					Content:   c.Text,
					Offset:    c.Offset,
					Seq:       c.Seq,
					Embedding: c.Embedding,
				}
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("inserting chunks: %w", err)
			}
		}

		row := MetaRow{ID: 1, Model: meta.Model, Chunks: meta.Chunks, BuiltAt: meta.BuiltAt}
		_, err := tx.NewInsert().
			Model(&row).
			On("CONFLICT (id) DO UPDATE").
			Set("model = EXCLUDED.model, chunks = EXCLUDED.chunks, built_at = EXCLUDED.built_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("recording index meta: %w", err)
		}
		return nil
	})
}

func (s *Store) Load(ctx context.Context) (vectorindex.Meta, bool, error) {
	var row MetaRow
	err := s.db.NewSelect().Model(&row).Where("id = 1").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return vectorindex.Meta{}, false, nil
	}
	if err != nil {
		return vectorindex.Meta{}, false, fmt.Errorf("reading index meta: %w", err)
	}
	return vectorindex.Meta{Model: row.Model, Chunks: row.Chunks, BuiltAt: row.BuiltAt}, true, nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	var rows []ChunkRow
	err := s.db.NewSelect().
		Model(&rows).
		Column("source_id", "source", "content", "chunk_offset", "seq").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vector).
		OrderExpr("embedding <=> ?", vector).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	hits := make([]models.ScoredChunk, len(rows))
	for i, r := range rows {
		hits[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				SourceID: r.SourceID,
				Source:   r.Source,
				Text:     r.Content,
				Offset:   r.Offset,
				Seq:      r.Seq,
			},
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

func (s *Store) Reset(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewTruncateTable().Model((*ChunkRow)(nil)).Exec(ctx); err != nil {
			return fmt.Errorf("truncating chunks: %w", err)
		}
		if _, err := tx.NewDelete().Model((*MetaRow)(nil)).Where("id = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clearing index meta: %w", err)
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
