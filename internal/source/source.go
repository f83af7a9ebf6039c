// Package source provides the document sources ingestion pulls raw text
// from: a local directory of text files and an S3-compatible bucket.
package source

import (
	"context"

	"github.com/askdocs/askdocs/internal/domain"
)

// Source supplies (id, name, raw text) triples for ingestion.
type Source interface {
	// Fetch returns the document identified by id, or
	// domain.ErrDocumentNotFound.
	Fetch(ctx context.Context, id string) (*domain.Document, error)
	// List enumerates the documents the source can provide.
	List(ctx context.Context) ([]domain.DocumentRef, error)
}
