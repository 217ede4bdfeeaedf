package store

import (
	"context"
	"database/sql"
	"fmt"
)

// GetDocument returns the stored body for key, or nil if there is none.
func GetDocument(ctx context.Context, db *sql.DB, key string) ([]byte, error) {
	var body string
	err := db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE key = ?`, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return []byte(body), nil
}

// PutDocument creates or replaces the body stored under key.
func PutDocument(ctx context.Context, db *sql.DB, key string, body []byte) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`,
		key, string(body),
	)
	if err != nil {
		return fmt.Errorf("putting document: %w", err)
	}
	return nil
}

// DeleteDocument removes the body stored under key.
func DeleteDocument(ctx context.Context, db *sql.DB, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// DocumentBackend stores durable records in the documents table.
type DocumentBackend struct {
	DB *sql.DB
}

// Read returns the record under key, or nil if there is none.
func (b DocumentBackend) Read(ctx context.Context, key string) ([]byte, error) {
	return GetDocument(ctx, b.DB, key)
}

// Write replaces the record under key.
func (b DocumentBackend) Write(ctx context.Context, key string, data []byte) error {
	return PutDocument(ctx, b.DB, key, data)
}
