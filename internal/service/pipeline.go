package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/askdocs/askdocs/internal/domain"
	"github.com/askdocs/askdocs/internal/telemetry"
)

// EmbeddingProvider turns text into fixed-dimension vectors. Exactly one
// backend (local or remote) is selected at startup.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore is the persistent nearest-neighbor index the pipeline writes
// to and queries.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
	Query(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	ListDocuments(ctx context.Context) ([]domain.DocumentRef, error)
}

// Dispatcher offloads compute-bound work (embedding batches) so ingestion
// never blocks unrelated requests.
type Dispatcher interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// PipelineConfig carries the tunables of the retrieval pipeline.
type PipelineConfig struct {
	Chunk ChunkConfig
	// SingleChunkThreshold is the document length (in runes) below which the
	// whole document is ingested as one chunk.
	SingleChunkThreshold int
	// RelevanceThreshold is the cosine distance below which a search result
	// counts as relevant.
	RelevanceThreshold float64
	DefaultTopK        int
}

// DefaultPipelineConfig provides the standard tunables.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Chunk:                DefaultChunkConfig(),
		SingleChunkThreshold: 3000,
		RelevanceThreshold:   1.0,
		DefaultTopK:          5,
	}
}

// Pipeline orchestrates ingestion (chunk, embed, index) and retrieval
// (embed, nearest-neighbor search, threshold classification).
type Pipeline struct {
	embedder EmbeddingProvider
	store    VectorStore
	pool     Dispatcher
	cfg      PipelineConfig

	// writeMu serializes document writes so a concurrent search never
	// observes a document mid-replacement. Reads are lock-free; the store's
	// transactions provide per-operation atomicity.
	writeMu sync.Mutex
}

func NewPipeline(embedder EmbeddingProvider, store VectorStore, pool Dispatcher, cfg PipelineConfig) *Pipeline {
	if cfg.SingleChunkThreshold <= 0 {
		cfg.SingleChunkThreshold = 3000
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = 1.0
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	return &Pipeline{
		embedder: embedder,
		store:    store,
		pool:     pool,
		cfg:      cfg,
	}
}

// AddDocument ingests one document, replacing any previously stored version
// of the same id. It returns the number of chunks stored. An empty document
// yields domain.ErrEmptyDocument without touching the store.
func (p *Pipeline) AddDocument(ctx context.Context, doc domain.Document) (int, error) {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return 0, domain.ErrEmptyDocument
	}

	var texts []string
	if len([]rune(content)) <= p.cfg.SingleChunkThreshold {
		texts = []string{content}
	} else {
		texts = ChunkText(content, p.cfg.Chunk)
	}
	if len(texts) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	// One batch per document; the pool bounds concurrent embedding work.
	var vectors [][]float32
	err := p.pool.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vectors, embedErr = p.embedder.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Metadata: domain.ChunkMetadata{
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				ChunkIndex:   i,
			},
			Content:   text,
			Embedding: vectors[i],
		}
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.store.ReplaceDocument(ctx, doc.ID, chunks); err != nil {
		return 0, domain.StoreError("replace document", err)
	}
	return len(chunks), nil
}

// BatchError records a per-document ingestion failure.
type BatchError struct {
	DocumentID string
	Err        error
}

func (e BatchError) Error() string {
	return fmt.Sprintf("document %s: %v", e.DocumentID, e.Err)
}

// BatchResult aggregates a multi-document ingestion.
type BatchResult struct {
	AddedCount int
	Errors     []BatchError
}

// Failed reports whether the batch failed overall: only when nothing at all
// was added.
func (r BatchResult) Failed() bool {
	return r.AddedCount == 0 && len(r.Errors) > 0
}

// AddDocuments ingests each document independently. Per-document failures
// are collected, not fatal; no transaction spans documents.
func (p *Pipeline) AddDocuments(ctx context.Context, docs []domain.Document) BatchResult {
	var result BatchResult
	for _, doc := range docs {
		if _, err := p.AddDocument(ctx, doc); err != nil {
			log.Printf("failed to add document %s: %v", doc.ID, err)
			telemetry.CaptureError(ctx, err)
			result.Errors = append(result.Errors, BatchError{DocumentID: doc.ID, Err: err})
			continue
		}
		result.AddedCount++
	}
	return result
}

// RemoveDocument deletes every chunk of the document. Removing an absent
// document is a no-op.
func (p *Pipeline) RemoveDocument(ctx context.Context, documentID string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.store.DeleteByDocument(ctx, documentID); err != nil {
		return domain.StoreError("delete document", err)
	}
	return nil
}

// Search embeds the query and returns up to min(topK, Count) results in
// ascending-distance order. An empty store yields an empty result, not an
// error.
func (p *Pipeline) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrMissingQuery
	}
	if topK <= 0 {
		topK = p.cfg.DefaultTopK
	}

	count, err := p.store.Count(ctx)
	if err != nil {
		return nil, domain.StoreError("count", err)
	}
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	var vector []float32
	err = p.pool.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = p.embedder.EmbedOne(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := p.store.Query(ctx, vector, topK)
	if err != nil {
		return nil, domain.StoreError("query", err)
	}
	return results, nil
}

// Classify applies the relevance threshold to search results. Results with
// distance below the threshold are relevant (strong=true). When none pass
// but results exist, the top 3 are returned as best-effort context
// (strong=false) so the synthesizer always has material when anything is
// indexed.
func (p *Pipeline) Classify(results []domain.SearchResult) (contexts []domain.SearchResult, strong bool) {
	if len(results) == 0 {
		return nil, false
	}
	for _, r := range results {
		if r.Distance < p.cfg.RelevanceThreshold {
			contexts = append(contexts, r)
		}
	}
	if len(contexts) > 0 {
		return contexts, true
	}
	if len(results) > 3 {
		results = results[:3]
	}
	return results, false
}

// Count returns the number of indexed chunks.
func (p *Pipeline) Count(ctx context.Context) (int, error) {
	count, err := p.store.Count(ctx)
	if err != nil {
		return 0, domain.StoreError("count", err)
	}
	return count, nil
}

// ListDocuments returns the distinct documents in the index.
func (p *Pipeline) ListDocuments(ctx context.Context) ([]domain.DocumentRef, error) {
	refs, err := p.store.ListDocuments(ctx)
	if err != nil {
		return nil, domain.StoreError("list documents", err)
	}
	return refs, nil
}

// Clear removes every chunk from the index.
func (p *Pipeline) Clear(ctx context.Context) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.store.Clear(ctx); err != nil {
		return domain.StoreError("clear", err)
	}
	return nil
}

// RelevanceThreshold exposes the configured cutoff, mainly for handlers that
// report it.
func (p *Pipeline) RelevanceThreshold() float64 {
	return p.cfg.RelevanceThreshold
}
