package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askdocs/askdocs/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func chunk(docID, docName string, index int, content string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		Metadata: domain.ChunkMetadata{
			DocumentID:   docID,
			DocumentName: docName,
			ChunkIndex:   index,
		},
		Content:   content,
		Embedding: embedding,
	}
}

func TestStore_UpsertAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "alpha", []float32{1, 0, 0}),
		chunk("a", "Doc A", 1, "beta", []float32{0, 1, 0}),
	})
	assert.NoError(t, err)

	count, err := s.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_Query_OrderedByCosineDistance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "identical", []float32{1, 0, 0}),
		chunk("a", "Doc A", 1, "orthogonal", []float32{0, 1, 0}),
		chunk("a", "Doc A", 2, "opposite", []float32{-1, 0, 0}),
	})
	assert.NoError(t, err)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 3)

	assert.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "identical", results[0].Content)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.Equal(t, "orthogonal", results[1].Content)
	assert.InDelta(t, 1.0, results[1].Distance, 1e-6)
	assert.Equal(t, "opposite", results[2].Content)
	assert.InDelta(t, 2.0, results[2].Distance, 1e-6)
}

func TestStore_Query_LimitsToK(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "one", []float32{1, 0, 0}),
		chunk("a", "Doc A", 1, "two", []float32{0.9, 0.1, 0}),
		chunk("a", "Doc A", 2, "three", []float32{0, 1, 0}),
	})
	assert.NoError(t, err)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 2)
	assert.NoError(t, err)
	assert.Len(t, results, 2)

	none, err := s.Query(ctx, []float32{1, 0, 0}, 0)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Query_EmptyStore(t *testing.T) {
	s := openTestStore(t)

	results, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)

	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_ReplaceDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "old version", []float32{1, 0, 0}),
		chunk("a", "Doc A", 1, "old tail", []float32{0, 1, 0}),
		chunk("b", "Doc B", 0, "other doc", []float32{0, 0, 1}),
	})
	assert.NoError(t, err)

	err = s.ReplaceDocument(ctx, "a", []domain.Chunk{
		chunk("a", "Doc A", 0, "new version", []float32{0.5, 0.5, 0}),
	})
	assert.NoError(t, err)

	count, _ := s.Count(ctx)
	assert.Equal(t, 2, count)

	results, err := s.Query(ctx, []float32{0.5, 0.5, 0}, 5)
	assert.NoError(t, err)
	for _, r := range results {
		assert.NotContains(t, r.Content, "old")
	}
}

func TestStore_DeleteByDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "keep me", []float32{1, 0, 0}),
		chunk("b", "Doc B", 0, "delete me", []float32{0, 1, 0}),
		chunk("b", "Doc B", 1, "delete me too", []float32{0, 0, 1}),
	})
	assert.NoError(t, err)

	assert.NoError(t, s.DeleteByDocument(ctx, "b"))

	count, _ := s.Count(ctx)
	assert.Equal(t, 1, count)

	// Absent document is a no-op.
	assert.NoError(t, s.DeleteByDocument(ctx, "never-existed"))
}

func TestStore_DimensionMismatchRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "three dims", []float32{1, 0, 0}),
	})
	assert.NoError(t, err)

	err = s.Upsert(ctx, []domain.Chunk{
		chunk("b", "Doc B", 0, "four dims", []float32{1, 0, 0, 0}),
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.Query(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_Clear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "content", []float32{1, 0, 0}),
	})
	assert.NoError(t, err)

	assert.NoError(t, s.Clear(ctx))

	count, _ := s.Count(ctx)
	assert.Equal(t, 0, count)

	results, err := s.Query(ctx, []float32{1, 0, 0}, 5)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_ListDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "first", []float32{1, 0, 0}),
		chunk("a", "Doc A", 1, "second", []float32{0, 1, 0}),
		chunk("b", "Doc B", 0, "third", []float32{0, 0, 1}),
	})
	assert.NoError(t, err)

	refs, err := s.ListDocuments(ctx)

	assert.NoError(t, err)
	assert.Equal(t, []domain.DocumentRef{
		{ID: "a", Name: "Doc A"},
		{ID: "b", Name: "Doc B"},
	}, refs)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")
	ctx := context.Background()

	s, err := Open(path)
	assert.NoError(t, err)
	err = s.Upsert(ctx, []domain.Chunk{
		chunk("a", "Doc A", 0, "durable", []float32{1, 0, 0}),
	})
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	reopened, err := Open(path)
	assert.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEncodeDecodeEmbedding(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}

	decoded, err := decodeEmbedding(encodeEmbedding(vec))

	assert.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestDecodeEmbedding_InvalidLength(t *testing.T) {
	_, err := decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineDistance_Bounds(t *testing.T) {
	assert.InDelta(t, 0.0, cosineDistance([]float32{1, 1}, []float32{2, 2}), 1e-6)
	assert.InDelta(t, 2.0, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, 1.0, cosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-6)
}
