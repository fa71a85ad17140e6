package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jharjadi/doc-context/internal/model"
)

// ErrNotFound is returned when a document id has no row.
var ErrNotFound = errors.New("document not found")

const documentColumns = `id, filename, file_size, token_count, tier, tier_label, mime_type, row_count, file_path, created_at`

// DocumentStore persists document metadata in Postgres.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore creates a DocumentStore.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Create inserts d and fills CreatedAt from the database clock.
func (s *DocumentStore) Create(ctx context.Context, d *model.Document) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (id, filename, file_size, token_count, tier, tier_label, mime_type, row_count, file_path)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		d.ID, d.Filename, d.FileSize, d.TokenCount, int(d.Tier), d.TierLabel, d.MimeType, d.RowCount, d.FilePath,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	return nil
}

// Get returns the document with id, or ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return d, nil
}

// List returns up to limit documents, newest first.
func (s *DocumentStore) List(ctx context.Context, limit int) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// Delete removes the row for id, or returns ErrNotFound.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		d    model.Document
		tier int16
	)
	if err := row.Scan(&d.ID, &d.Filename, &d.FileSize, &d.TokenCount, &tier, &d.TierLabel,
		&d.MimeType, &d.RowCount, &d.FilePath, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Tier = model.Tier(tier)
	return &d, nil
}
