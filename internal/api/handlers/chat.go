package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/askdocs/askdocs/internal/api"
	"github.com/askdocs/askdocs/internal/domain"
	"github.com/askdocs/askdocs/internal/service"
)

type ChatService interface {
	Ask(ctx context.Context, in service.AskInput) (*service.AskResult, error)
}

type SearchService interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

type ChatHandler struct {
	chat     ChatService
	searcher SearchService
}

func NewChatHandler(chat ChatService, searcher SearchService) *ChatHandler {
	return &ChatHandler{chat: chat, searcher: searcher}
}

type ChatRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k"`
	ConversationID string `json:"conversation_id"`
}

type ChatResponse struct {
	Answer           string           `json:"answer"`
	Sources          []service.Source `json:"sources"`
	FoundInDocuments bool             `json:"found_in_documents"`
	ConversationID   string           `json:"conversation_id"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.chat.Ask(r.Context(), service.AskInput{
		Query:          req.Query,
		TopK:           req.TopK,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []service.Source{}
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Answer:           result.Answer,
		Sources:          sources,
		FoundInDocuments: result.FoundInDocuments,
		ConversationID:   result.ConversationID,
	})
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type SearchResultResponse struct {
	Content  string               `json:"content"`
	Metadata domain.ChunkMetadata `json:"metadata"`
	Distance float64              `json:"distance"`
}

func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.searcher.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]SearchResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResultResponse{
			Content:  res.Content,
			Metadata: res.Metadata,
			Distance: res.Distance,
		})
	}
	api.Success(w, http.StatusOK, out)
}
