// Package sqlite implements the default vector store: a single SQLite file
// holding chunk text, metadata, and embeddings as float32 BLOBs. Queries are
// a brute-force cosine scan, which is plenty for single-node corpora; all
// per-document writes run in one transaction so a concurrent query never
// observes a document mid-replacement.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/askdocs/askdocs/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_chunks (
	document_id   TEXT    NOT NULL,
	chunk_index   INTEGER NOT NULL,
	document_name TEXT    NOT NULL,
	content       TEXT    NOT NULL,
	embedding     BLOB    NOT NULL,
	PRIMARY KEY (document_id, chunk_index)
);
`

// Store is a SQLite-backed vector store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure vector store: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure vector store schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// dimension returns the embedding dimensionality of the stored vectors, or
// 0 when the store is empty.
func (s *Store) dimension(ctx context.Context) (int, error) {
	var bytes int
	err := s.db.QueryRowContext(ctx, `SELECT length(embedding) FROM document_chunks LIMIT 1`).Scan(&bytes)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bytes / 4, nil
}

func (s *Store) checkDimensions(ctx context.Context, chunks []domain.Chunk) error {
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if dim == 0 {
			dim = len(c.Embedding)
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != dim {
			return domain.ErrDimensionMismatch
		}
	}
	return nil
}

// Upsert inserts or replaces the given chunks as one atomic unit.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.checkDimensions(ctx, chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceDocument atomically removes every chunk of the document and inserts
// the new ones. Concurrent queries see either the old version or the new
// one, never a mix and never an absent document mid-swap.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := s.checkDimensions(ctx, chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return err
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	return tx.Commit()
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []domain.Chunk) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO document_chunks
			(document_id, chunk_index, document_name, content, embedding)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.Metadata.DocumentID,
			c.Metadata.ChunkIndex,
			c.Metadata.DocumentName,
			c.Content,
			encodeEmbedding(c.Embedding),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteByDocument removes every chunk of the document in one transaction.
// Deleting an absent document is a no-op.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID)
	return err
}

// Query returns the min(k, Count) nearest chunks to vector, ascending by
// cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, document_name, content, embedding
		FROM document_chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var blob []byte
		if err := rows.Scan(&r.Metadata.DocumentID, &r.Metadata.ChunkIndex, &r.Metadata.DocumentName, &r.Content, &blob); err != nil {
			return nil, err
		}
		embedding, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		if len(embedding) != len(vector) {
			return nil, domain.ErrDimensionMismatch
		}
		r.Distance = cosineDistance(vector, embedding)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear removes everything from the store.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks`)
	return err
}

// ListDocuments returns the distinct documents present in the store, in
// insertion order.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, document_name
		FROM document_chunks
		GROUP BY document_id
		ORDER BY MIN(rowid)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.DocumentRef
	for rows.Next() {
		var ref domain.DocumentRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
