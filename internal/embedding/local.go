// Package embedding provides the local embedding backend: a deterministic
// hashed bag-of-words model that needs no external service. Vectors are
// L2-normalized so cosine distance over them behaves like the remote
// backend's output.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalDimensions is the fixed vector size of the local backend.
const LocalDimensions = 384

// Local embeds text by signed feature hashing of its tokens. It is cheap,
// deterministic, and dimension-stable, which is what the fallback deployment
// mode needs; it captures lexical rather than semantic similarity.
type Local struct {
	dimensions int
}

func NewLocal() *Local {
	return &Local{dimensions: LocalDimensions}
}

// Dimension returns the fixed embedding dimensionality.
func (l *Local) Dimension() int {
	return l.dimensions
}

// Embed encodes a batch of texts. The whole batch is processed in one call;
// output order matches input order.
func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = l.encode(text)
	}
	return vectors, nil
}

// EmbedOne encodes a single text, typically a query.
func (l *Local) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.encode(text), nil
}

func (l *Local) encode(text string) []float32 {
	vec := make([]float32, l.dimensions)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum % uint32(l.dimensions))
		if sum&0x80000000 != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
