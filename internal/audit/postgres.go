package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"research-workers/internal/common/database"

	"github.com/google/uuid"
)

const createArtifactsTable = `CREATE TABLE IF NOT EXISTS audit_artifacts (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const createArtifactsKindIndex = `CREATE INDEX IF NOT EXISTS idx_audit_artifacts_kind ON audit_artifacts (kind, created_at)`

const insertArtifact = `INSERT INTO audit_artifacts (id, kind, payload) VALUES ($1, $2, $3)`

// PostgresStore mirrors artifacts into the audit_artifacts table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the table if needed.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if err := database.Migrate(ctx, db, createArtifactsTable, createArtifactsKindIndex); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, kind Kind, v interface{}) (id string, err error) {
	defer func() { observe(kind, err) }()

	if err := checkKind(kind); err != nil {
		return "", err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}

	id = uuid.NewString()
	if _, err := s.db.ExecContext(ctx, insertArtifact, id, string(kind), payload); err != nil {
		return "", fmt.Errorf("insert %s artifact: %w", kind, err)
	}
	return id, nil
}
