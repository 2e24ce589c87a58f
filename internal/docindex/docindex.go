// Package docindex persists the non-vector portion of each document.
package docindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a document id is absent from the index.
var ErrNotFound = errors.New("document not found")

// Document is one indexed page. DocID equals the source URL.
type Document struct {
	DocID     string
	Text      string
	SourceURL string
	Lastmod   string
	IndexedAt time.Time
}

// Index is a SQLite-backed companion store for document text and
// metadata, persisted alongside the vector collection.
type Index struct {
	db   *sql.DB
	path string
}

// Open creates or opens the document index under dir.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, "documents.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			doc_id     TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			source_url TEXT NOT NULL,
			lastmod    TEXT NOT NULL DEFAULT '',
			indexed_at TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Index{db: db, path: dbPath}, nil
}

// Upsert writes a document, replacing any existing row with the same id.
func (ix *Index) Upsert(ctx context.Context, doc Document) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, text, source_url, lastmod, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			text = excluded.text,
			source_url = excluded.source_url,
			lastmod = excluded.lastmod,
			indexed_at = excluded.indexed_at
	`, doc.DocID, doc.Text, doc.SourceURL, doc.Lastmod, doc.IndexedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.DocID, err)
	}
	return nil
}

// Delete removes a document. Deleting an absent id is not an error.
func (ix *Index) Delete(ctx context.Context, docID string) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// Get returns a document by id.
func (ix *Index) Get(ctx context.Context, docID string) (*Document, error) {
	row := ix.db.QueryRowContext(ctx, `
		SELECT doc_id, text, source_url, lastmod, indexed_at
		FROM documents WHERE doc_id = ?
	`, docID)

	var doc Document
	var indexedAt string
	err := row.Scan(&doc.DocID, &doc.Text, &doc.SourceURL, &doc.Lastmod, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
	doc.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return &doc, nil
}

// ListSources returns all source URLs in the index, sorted.
func (ix *Index) ListSources(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT source_url FROM documents ORDER BY source_url`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Count returns the number of indexed documents.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Persist flushes the WAL so a crash after return cannot lose writes.
func (ix *Index) Persist(ctx context.Context) error {
	if _, err := ix.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (ix *Index) Path() string { return ix.path }

// Close closes the database.
func (ix *Index) Close() error { return ix.db.Close() }
