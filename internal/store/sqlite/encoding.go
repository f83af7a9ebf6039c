package sqlite

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeEmbedding encodes a float32 vector into the BLOB representation
// stored in SQLite: a little-endian sequence of IEEE 754 float32 values
// without a length prefix. The length is derived from the BLOB size on
// decode.
func encodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// decodeEmbedding decodes a BLOB produced by encodeEmbedding.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// cosineDistance returns 1 - cosine similarity of a and b, clamped to
// [0, 2]. A zero vector has no direction and is treated as orthogonal.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}
