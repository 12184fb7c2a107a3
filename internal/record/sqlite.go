package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/harbouli/ai-ecommerce-sub000/internal/knowledge"
	"github.com/harbouli/ai-ecommerce-sub000/internal/vector"
	apperrors "github.com/harbouli/ai-ecommerce-sub000/pkg/errors"
	"github.com/harbouli/ai-ecommerce-sub000/pkg/logger"
	"go.uber.org/zap"
)

// SQLiteStore is the authoritative RecordStore backed by a local SQLite file.
// All operations are synchronous and strongly consistent.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the record database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("record", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	createSQL := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		properties TEXT NOT NULL DEFAULT '{}',
		vector BLOB,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
	`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, apperrors.NewStoreUnavailable("record", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.Get(),
	}, nil
}

// Create inserts a new entity, assigning an id when none is supplied.
// The assigned id is the cross-store correlation key and is never remapped.
func (s *SQLiteStore) Create(ctx context.Context, entity *knowledge.Entity) (*knowledge.Entity, error) {
	if err := knowledge.ValidateEntity(entity); err != nil {
		return nil, err
	}

	e := entity.Clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	props, vec, err := encodeColumns(e)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO entities (id, type, name, description, properties, vector, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		e.ID, string(e.Type), e.Name, e.Description, props, vec,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, apperrors.NewValidation("entity.id", fmt.Sprintf("id already exists: %s", e.ID))
		}
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	s.logger.Debug("Entity created",
		zap.String("entity_id", e.ID),
		zap.String("type", string(e.Type)),
	)
	return e, nil
}

// FindByID returns the entity or a typed not-found error
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*knowledge.Entity, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewEntityNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", id, err)
	}
	return e, nil
}

// FindByType returns all entities of a type, ordered by name
func (s *SQLiteStore) FindByType(ctx context.Context, entityType knowledge.EntityType) ([]*knowledge.Entity, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE type = ? ORDER BY name`, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to query entities by type: %w", err)
	}
	return collectEntities(rows)
}

// FindByName returns entities whose name or description contains the
// pattern, case-insensitively, ordered by name
func (s *SQLiteStore) FindByName(ctx context.Context, pattern string) ([]*knowledge.Entity, error) {
	like := "%" + strings.ToLower(pattern) + "%"
	query := selectColumns + ` WHERE lower(name) LIKE ? OR lower(description) LIKE ? ORDER BY name`
	rows, err := s.db.QueryContext(ctx, query, like, like)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities by name: %w", err)
	}
	return collectEntities(rows)
}

// FindByProperties returns entities whose property map contains every
// filter entry. Matching happens in process after a table scan; the
// properties column is free-form JSON.
func (s *SQLiteStore) FindByProperties(ctx context.Context, filter map[string]string) ([]*knowledge.Entity, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entities: %w", err)
	}
	all, err := collectEntities(rows)
	if err != nil {
		return nil, err
	}

	var out []*knowledge.Entity
	for _, e := range all {
		if matchesProperties(e, filter) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update applies a partial patch. A missing id yields a typed not-found
// error rather than a silent upsert.
func (s *SQLiteStore) Update(ctx context.Context, id string, patch knowledge.EntityPatch) (*knowledge.Entity, error) {
	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		existing.Name = *patch.Name
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if len(patch.Properties) > 0 {
		if existing.Properties == nil {
			existing.Properties = make(map[string]string, len(patch.Properties))
		}
		for k, v := range patch.Properties {
			existing.Properties[k] = v
		}
	}
	if patch.Vector != nil {
		existing.Vector = make([]float32, len(patch.Vector))
		copy(existing.Vector, patch.Vector)
	}
	existing.UpdatedAt = time.Now().UTC()

	props, vec, err := encodeColumns(existing)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE entities
		SET name = ?, description = ?, properties = ?, vector = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query,
		existing.Name, existing.Description, props, vec,
		existing.UpdatedAt.Format(time.RFC3339Nano), id,
	); err != nil {
		return nil, fmt.Errorf("failed to update entity %s: %w", id, err)
	}

	return existing, nil
}

// Delete removes an entity, reporting false (not an error) when it is absent
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entity %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Row helpers
// ============================================================================

const selectColumns = `SELECT id, type, name, description, properties, vector, created_at, updated_at FROM entities`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row rowScanner) (*knowledge.Entity, error) {
	var (
		e         knowledge.Entity
		typ       string
		props     string
		vec       []byte
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&e.ID, &typ, &e.Name, &e.Description, &props, &vec, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	e.Type = knowledge.EntityType(typ)
	if props != "" && props != "{}" {
		if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties for %s: %w", e.ID, err)
		}
	}
	if len(vec) > 0 {
		decoded, err := vector.DecodeVector(vec)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vector for %s: %w", e.ID, err)
		}
		e.Vector = decoded
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at for %s: %w", e.ID, err)
	}

	return &e, nil
}

func collectEntities(rows *sql.Rows) ([]*knowledge.Entity, error) {
	defer rows.Close()

	var out []*knowledge.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	return out, nil
}

func encodeColumns(e *knowledge.Entity) (string, []byte, error) {
	props := "{}"
	if len(e.Properties) > 0 {
		raw, err := json.Marshal(e.Properties)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode properties: %w", err)
		}
		props = string(raw)
	}

	var vec []byte
	if len(e.Vector) > 0 {
		encoded, err := vector.EncodeVector(e.Vector)
		if err != nil {
			return "", nil, err
		}
		vec = encoded
	}

	return props, vec, nil
}

func matchesProperties(e *knowledge.Entity, filter map[string]string) bool {
	for k, want := range filter {
		if got, ok := e.Properties[k]; !ok || got != want {
			return false
		}
	}
	return true
}
