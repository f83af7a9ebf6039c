package service

import (
	"strings"
)

// ChunkConfig controls how document text is split for embedding.
type ChunkConfig struct {
	// MaxSize is the maximum chunk length in runes.
	MaxSize int
	// Overlap is how many runes each window shares with its predecessor.
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxSize: 2000,
		Overlap: 200,
	}
}

// ChunkText splits text into overlapping windows of at most cfg.MaxSize
// runes. Window boundaries prefer the nearest sentence terminator inside the
// window; otherwise the cut is exact. Chunks are trimmed and empty chunks
// dropped. The same input and config always produce the same sequence.
func ChunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxSize {
		cfg.Overlap = 0
	}

	runes := []rune(clean)
	if len(runes) <= cfg.MaxSize {
		return []string{clean}
	}

	chunks := make([]string, 0, len(runes)/cfg.MaxSize+1)
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := sentenceCut(runes, start, end); cut > start {
			end = cut
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// sentenceCut returns the position just past the last sentence terminator
// (". " or ".\n") within runes[start:end], or 0 if there is none.
func sentenceCut(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if runes[i-1] == '.' && (runes[i] == ' ' || runes[i] == '\n') {
			return i + 1
		}
	}
	return 0
}
