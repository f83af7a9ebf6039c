package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/domain"
	"github.com/askdocs/askdocs/internal/telemetry"
)

// Source identifies a document that contributed to an answer.
type Source struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AskInput is a chat request.
type AskInput struct {
	Query          string
	TopK           int
	ConversationID string
}

// AskResult is the answer to a chat request.
type AskResult struct {
	Answer           string
	Sources          []Source
	FoundInDocuments bool
	ConversationID   string
}

// Chat ties retrieval and synthesis together into the question-answering
// operation the API and CLI expose.
type Chat struct {
	pipeline *Pipeline
	synth    *Synthesizer
}

func NewChat(pipeline *Pipeline, synth *Synthesizer) *Chat {
	return &Chat{pipeline: pipeline, synth: synth}
}

// Ask answers a question against the indexed corpus. Embedding and store
// failures surface to the caller; LLM failures never do.
func (c *Chat) Ask(ctx context.Context, in AskInput) (*AskResult, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, domain.ErrMissingQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.ask")
	defer span.End()

	count, err := c.pipeline.Count(ctx)
	if err != nil {
		return nil, err
	}

	results, err := c.pipeline.Search(ctx, query, in.TopK)
	if err != nil {
		return nil, err
	}

	contexts, strong := c.pipeline.Classify(results)

	answer := c.synth.Respond(ctx, SynthesisInput{
		Query:    query,
		Contexts: contexts,
		Strong:   strong,
		Indexed:  count > 0,
	})

	conversationID := in.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	return &AskResult{
		Answer:           answer,
		Sources:          rankSources(contexts),
		FoundInDocuments: len(contexts) > 0,
		ConversationID:   conversationID,
	}, nil
}

// rankSources deduplicates contexts by document name, keeping the highest
// relevance score (1 - distance) per document, in first-seen order.
func rankSources(contexts []domain.SearchResult) []Source {
	var sources []Source
	index := make(map[string]int)
	for _, ctx := range contexts {
		score := 1 - ctx.Distance
		name := ctx.Metadata.DocumentName
		if i, seen := index[name]; seen {
			if score > sources[i].RelevanceScore {
				sources[i].RelevanceScore = score
				sources[i].DocumentID = ctx.Metadata.DocumentID
			}
			continue
		}
		index[name] = len(sources)
		sources = append(sources, Source{
			DocumentID:     ctx.Metadata.DocumentID,
			DocumentName:   name,
			RelevanceScore: score,
		})
	}
	return sources
}
