// Package pgvector implements the Postgres-backed vector store used when
// DATABASE_URL is configured. Distance ordering is computed by the pgvector
// extension's cosine operator; per-document writes run in a single
// transaction.
package pgvector

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/askdocs/askdocs/internal/domain"
)

// Store is a pgvector-backed vector store.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// dimension returns the embedding dimensionality of the stored vectors, or
// 0 when the store is empty.
func (s *Store) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.pool.QueryRow(ctx, `SELECT vector_dims(embedding) FROM document_chunks LIMIT 1`).Scan(&dim)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return dim, nil
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReplaceDocument atomically swaps every chunk of the document for the new
// set inside one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := s.checkDimensions(ctx, chunks); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertChunks(ctx context.Context, tx pgx.Tx, chunks []domain.Chunk) error {
	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO document_chunks
				(document_id, chunk_index, document_name, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (document_id, chunk_index) DO UPDATE SET
				document_name = EXCLUDED.document_name,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			c.Metadata.DocumentID,
			c.Metadata.ChunkIndex,
			c.Metadata.DocumentName,
			c.Content,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteByDocument removes every chunk of the document. Deleting an absent
// document is a no-op.
func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

// Query returns the min(k, Count) nearest chunks to vector, ascending by
// cosine distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT document_id, chunk_index, document_name, content, (embedding <=> $1) AS distance
		FROM document_chunks
		ORDER BY distance ASC
		LIMIT $2`,
		pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Metadata.DocumentID, &r.Metadata.ChunkIndex, &r.Metadata.DocumentName, &r.Content, &r.Distance); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The operator already orders ascending; keep the guarantee explicit for
	// equal distances.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear removes everything from the store.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM document_chunks`)
	return err
}

// ListDocuments returns the distinct documents present in the store.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.DocumentRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT document_id, MIN(document_name)
		FROM document_chunks
		GROUP BY document_id
		ORDER BY document_id`)
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
