package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/askdocs/askdocs/internal/domain"
)

// LLMClient generates a chat completion for a prompt. Optional; when absent
// or failing, the synthesizer falls back to the deterministic path.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SynthesisInput is everything the synthesizer needs to produce an answer.
type SynthesisInput struct {
	Query    string
	Contexts []domain.SearchResult
	// Strong is true when at least one context passed the relevance
	// threshold; false when the contexts are the best-effort weak fallback.
	Strong bool
	// Indexed is true when the store holds any chunks at all.
	Indexed bool
}

// Synthesizer turns retrieved contexts into a final answer, via the LLM when
// one is configured and a deterministic lexical summarizer otherwise.
type Synthesizer struct {
	llm LLMClient
}

// NewSynthesizer creates a synthesizer; llm may be nil.
func NewSynthesizer(llm LLMClient) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Respond produces the answer text. LLM provider errors are handled here by
// switching to the deterministic path; they are never surfaced.
func (s *Synthesizer) Respond(ctx context.Context, in SynthesisInput) string {
	if s.llm != nil {
		answer, err := s.complete(ctx, in)
		if err == nil {
			return answer
		}
		log.Printf("llm completion failed, using fallback response: %v", err)
	}
	return s.fallback(in)
}

func (s *Synthesizer) complete(ctx context.Context, in SynthesisInput) (string, error) {
	var prompt string
	contextBlock := joinContexts(in.Contexts)
	if in.Strong && contextBlock != "" {
		prompt = fmt.Sprintf(`You are a helpful assistant that answers questions based on the provided documents.

Context from user's documents:
%s

Question: %s

Answer the question based on the context provided. If the context doesn't fully answer the question, say so but provide the best answer you can from the context.`, contextBlock, in.Query)
	} else {
		prompt = fmt.Sprintf(`The user asked: %s

Note: The answer was not found in the user's documents. Please provide a helpful answer from your general knowledge.`, in.Query)
	}

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func joinContexts(contexts []domain.SearchResult) string {
	parts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// fallback is the deterministic lexical path. Chunks are grouped per source
// document, truncated at sentence boundaries, and either summarized into key
// sentences (interrogative queries) or presented as-is with a length cap.
func (s *Synthesizer) fallback(in SynthesisInput) string {
	if in.Strong && len(in.Contexts) > 0 {
		return s.answerFromDocuments(in.Query, in.Contexts)
	}
	if len(in.Contexts) > 0 {
		return s.hedgedAnswer(in.Query, in.Contexts[0])
	}
	if !in.Indexed {
		return fmt.Sprintf("I couldn't find specific information about '%s' in your selected documents. "+
			"Please make sure you've added documents to the knowledge base first.", in.Query)
	}
	return fmt.Sprintf("I couldn't find specific information about '%s' in your selected documents.", in.Query)
}

func (s *Synthesizer) answerFromDocuments(query string, contexts []domain.SearchResult) string {
	if len(contexts) > 5 {
		contexts = contexts[:5]
	}

	// Group chunk texts per source document, preserving first-seen order.
	var docNames []string
	docContent := make(map[string][]string)
	for _, ctx := range contexts {
		content := strings.Join(strings.Fields(ctx.Content), " ")
		if content == "" {
			continue
		}
		content = truncateChunk(content)
		name := ctx.Metadata.DocumentName
		if _, seen := docContent[name]; !seen {
			docNames = append(docNames, name)
		}
		docContent[name] = append(docContent[name], content)
	}

	var allContent []string
	for _, name := range docNames {
		contents := docContent[name]
		if len(contents) > 3 {
			contents = contents[:3]
		}
		allContent = append(allContent, strings.Join(contents, " "))
	}
	combined := strings.Join(allContent, " ")

	if hasInterrogativeLead(query) {
		var b strings.Builder
		if len(docNames) == 1 {
			fmt.Fprintf(&b, "Based on %s, ", docNames[0])
		} else {
			fmt.Fprintf(&b, "Based on your documents (%s), ", strings.Join(docNames, ", "))
		}
		b.WriteString(naturalResponse(query, combined))
		return b.String()
	}

	var b strings.Builder
	if len(docNames) == 1 {
		fmt.Fprintf(&b, "Based on %s, here's what I found:\n\n", docNames[0])
	} else {
		b.WriteString("Based on your documents, here's what I found:\n\n")
	}

	if runeLen(combined) > 1000 {
		head := truncRunes(combined, 1000)
		if cut := lastPeriodIndex(head); cut > 700 {
			b.WriteString(truncRunes(combined, cut+1))
			b.WriteString(" For more details, please refer to the full documents.")
		} else {
			b.WriteString(truncRunes(combined, 900))
			b.WriteString("... For more details, please refer to the full documents.")
		}
	} else {
		b.WriteString(combined)
	}
	return b.String()
}

func (s *Synthesizer) hedgedAnswer(query string, best domain.SearchResult) string {
	content := best.Content
	if content == "" {
		return fmt.Sprintf("I couldn't find specific information about '%s' in your selected documents.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found some information in your documents, though it may not directly answer '%s':\n\n", query)
	b.WriteString(truncRunes(content, 600))
	if runeLen(content) > 600 {
		b.WriteString("...")
	}
	return b.String()
}

// truncateChunk limits a whitespace-normalized chunk to 500 runes, cutting
// at the last sentence boundary when one exists past rune 300.
func truncateChunk(content string) string {
	if runeLen(content) <= 500 {
		return content
	}
	head := truncRunes(content, 500)
	if cut := lastPeriodIndex(head); cut > 300 {
		return truncRunes(content, cut+1) + "..."
	}
	return head + "..."
}

var interrogativeLeads = []string{"what", "tell me", "explain", "describe"}

func hasInterrogativeLead(query string) bool {
	q := strings.ToLower(query)
	for _, lead := range interrogativeLeads {
		if strings.HasPrefix(q, lead) {
			return true
		}
	}
	return false
}

// naturalResponse extracts key sentences from content by lexical overlap
// with the query: sentences sharing a word with the query (or the first few
// when none do) are kept in original order, near-duplicates skipped, and the
// result capped to 800 runes at a sentence boundary.
func naturalResponse(query, content string) string {
	sentences := strings.Split(content, ". ")
	if len(sentences) > 15 {
		sentences = sentences[:15]
	}

	queryWords := wordSet(query)
	seen := make(map[string]bool)
	var keySentences []string
	for _, sentence := range sentences {
		sentenceWords := wordSet(sentence)
		overlap := 0
		for w := range sentenceWords {
			if queryWords[w] {
				overlap++
			}
		}
		if overlap == 0 && len(keySentences) >= 5 {
			continue
		}
		signature := wordSignature(sentenceWords)
		if seen[signature] && len(keySentences) >= 3 {
			continue
		}
		keySentences = append(keySentences, strings.TrimSpace(sentence))
		seen[signature] = true
	}

	if len(keySentences) == 0 {
		limit := len(sentences)
		if limit > 5 {
			limit = 5
		}
		for _, sentence := range sentences[:limit] {
			if trimmed := strings.TrimSpace(sentence); trimmed != "" {
				keySentences = append(keySentences, trimmed)
			}
		}
	}

	var response string
	switch {
	case len(keySentences) == 0:
		return ""
	case len(keySentences) == 1:
		response = keySentences[0]
	case len(keySentences) <= 3:
		response = strings.Join(keySentences, ". ")
	default:
		response = strings.Join(keySentences[:3], ". ") + ". " + keySentences[len(keySentences)-1]
	}

	if !strings.HasSuffix(response, ".") && !strings.HasSuffix(response, "!") && !strings.HasSuffix(response, "?") {
		response += "."
	}

	if runeLen(response) > 800 {
		head := truncRunes(response, 800)
		if cut := lastPeriodIndex(head); cut > 500 {
			response = truncRunes(response, cut+1)
		} else {
			response = truncRunes(response, 750) + "..."
		}
	}
	return response
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// wordSignature canonicalizes a word set so near-duplicate sentences (same
// words, any order) compare equal.
func wordSignature(words map[string]bool) string {
	sorted := make([]string, 0, len(words))
	for w := range words {
		sorted = append(sorted, w)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// lastPeriodIndex returns the rune index of the last '.' in s, or -1.
func lastPeriodIndex(s string) int {
	r := []rune(s)
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == '.' {
			return i
		}
	}
	return -1
}
