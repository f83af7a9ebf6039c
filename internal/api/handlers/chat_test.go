package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/askdocs/askdocs/internal/domain"
	"github.com/askdocs/askdocs/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Ask(ctx context.Context, in service.AskInput) (*service.AskResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskResult), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, query, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestChatHandler_Chat_Success(t *testing.T) {
	chat := new(MockChatService)
	h := NewChatHandler(chat, new(MockSearchService))

	chat.On("Ask", mock.Anything, service.AskInput{Query: "What color is the sky?"}).Return(&service.AskResult{
		Answer:           "The sky is blue.",
		Sources:          []service.Source{{DocumentID: "a", DocumentName: "Doc A", RelevanceScore: 0.7}},
		FoundInDocuments: true,
		ConversationID:   "conv-1",
	}, nil)

	rec := postJSON(t, h.Chat, ChatRequest{Query: "What color is the sky?"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data ChatResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The sky is blue.", resp.Data.Answer)
	assert.True(t, resp.Data.FoundInDocuments)
	assert.Len(t, resp.Data.Sources, 1)
	assert.Equal(t, "conv-1", resp.Data.ConversationID)
	chat.AssertExpectations(t)
}

func TestChatHandler_Chat_MissingQuery(t *testing.T) {
	h := NewChatHandler(new(MockChatService), new(MockSearchService))

	rec := postJSON(t, h.Chat, ChatRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_Chat_InvalidBody(t *testing.T) {
	h := NewChatHandler(new(MockChatService), new(MockSearchService))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_Chat_EmbeddingUnavailable(t *testing.T) {
	chat := new(MockChatService)
	h := NewChatHandler(chat, new(MockSearchService))

	chat.On("Ask", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingUnavailable)

	rec := postJSON(t, h.Chat, ChatRequest{Query: "anything"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChatHandler_Search_Success(t *testing.T) {
	searcher := new(MockSearchService)
	h := NewChatHandler(new(MockChatService), searcher)

	searcher.On("Search", mock.Anything, "sky", 3).Return([]domain.SearchResult{
		{
			Content:  "The sky is blue.",
			Metadata: domain.ChunkMetadata{DocumentID: "a", DocumentName: "Doc A", ChunkIndex: 0},
			Distance: 0.3,
		},
	}, nil)

	rec := postJSON(t, h.Search, SearchRequest{Query: "sky", TopK: 3})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []SearchResultResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "The sky is blue.", resp.Data[0].Content)
	assert.InDelta(t, 0.3, resp.Data[0].Distance, 1e-9)
	searcher.AssertExpectations(t)
}

func TestChatHandler_Search_EmptyStoreReturnsEmptyList(t *testing.T) {
	searcher := new(MockSearchService)
	h := NewChatHandler(new(MockChatService), searcher)

	searcher.On("Search", mock.Anything, "sky", 0).Return([]domain.SearchResult{}, nil)

	rec := postJSON(t, h.Search, SearchRequest{Query: "sky"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []SearchResultResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}
