package vector

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
	"go.uber.org/zap"
)

// SQLiteStore is a SimilarityStore backed by a local SQLite file.
// Vectors are stored as little-endian float32 blobs and searched with a
// brute-force cosine scan, which is adequate for catalog-sized data sets.
type SQLiteStore struct {
	db       *sql.DB
	embedder knowledge.Embedder
	logger   *zap.Logger
}

// NewSQLiteStore opens (or creates) the vector database at path
func NewSQLiteStore(path string, embedder knowledge.Embedder) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	createSQL := `
	CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vectors table: %w", err)
	}

	return &SQLiteStore{
		db:       db,
		embedder: embedder,
		logger:   logger.Get(),
	}, nil
}

// UpsertVector stores or replaces the embedding for an entity id
func (s *SQLiteStore) UpsertVector(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("vector id cannot be empty")
	}

	encoded, err := EncodeVector(vec)
	if err != nil {
		return fmt.Errorf("failed to encode vector for %s: %w", id, err)
	}

	query := `
		INSERT INTO vectors (id, vector, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			vector = excluded.vector,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, id, encoded); err != nil {
		return fmt.Errorf("failed to upsert vector %s: %w", id, err)
	}

	return nil
}

// FindSimilar returns the k nearest entity ids by cosine similarity
func (s *SQLiteStore) FindSimilar(ctx context.Context, vec []float32, limit int) ([]knowledge.Match, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, vector FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}
	defer rows.Close()

	var matches []knowledge.Match
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}

		stored, err := DecodeVector(blob)
		if err != nil {
			s.logger.Warn("Skipping undecodable vector",
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}

		matches = append(matches, knowledge.Match{
			ID:    id,
			Score: CosineSimilarity(vec, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vectors: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SemanticSearch embeds the text and performs k-NN over stored vectors
func (s *SQLiteStore) SemanticSearch(ctx context.Context, text string, limit int) ([]knowledge.Match, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("semantic search requires an embedder")
	}

	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.FindSimilar(ctx, result.Vector, limit)
}

// DeleteVector removes the embedding for an entity id. Missing ids are a no-op.
func (s *SQLiteStore) DeleteVector(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete vector %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
