package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/api"
	"github.com/askdocs/askdocs/internal/domain"
	"github.com/askdocs/askdocs/internal/service"
	"github.com/askdocs/askdocs/internal/source"
)

type KnowledgeService interface {
	AddDocuments(ctx context.Context, docs []domain.Document) service.BatchResult
	RemoveDocument(ctx context.Context, documentID string) error
	ListDocuments(ctx context.Context) ([]domain.DocumentRef, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type KnowledgeHandler struct {
	svc KnowledgeService
	// src fetches documents referenced by id; may be nil when no document
	// source is configured.
	src source.Source
}

func NewKnowledgeHandler(svc KnowledgeService, src source.Source) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, src: src}
}

type AddDocumentRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type AddKnowledgeRequest struct {
	Documents []AddDocumentRequest `json:"documents"`
	// DocumentIDs are fetched from the configured document source.
	DocumentIDs []string `json:"document_ids"`
	ClearFirst  bool     `json:"clear_first"`
}

type AddKnowledgeResponse struct {
	AddedCount int      `json:"added_count"`
	Errors     []string `json:"errors"`
}

func (h *KnowledgeHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 && len(req.DocumentIDs) == 0 {
		api.Error(w, http.StatusBadRequest, "documents or document_ids required")
		return
	}
	if len(req.DocumentIDs) > 0 && h.src == nil {
		api.Error(w, http.StatusBadRequest, "no document source configured")
		return
	}

	if req.ClearFirst {
		if err := h.svc.Clear(r.Context()); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	var docs []domain.Document
	var fetchErrors []string
	for _, d := range req.Documents {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		name := d.Name
		if name == "" {
			name = id
		}
		docs = append(docs, domain.Document{ID: id, Name: name, Content: d.Content})
	}
	for _, id := range req.DocumentIDs {
		doc, err := h.src.Fetch(r.Context(), id)
		if err != nil {
			log.Printf("failed to fetch document %s: %v", id, err)
			fetchErrors = append(fetchErrors, "document "+id+": "+err.Error())
			continue
		}
		docs = append(docs, *doc)
	}

	result := h.svc.AddDocuments(r.Context(), docs)

	errs := fetchErrors
	for _, e := range result.Errors {
		errs = append(errs, e.Error())
	}
	if errs == nil {
		errs = []string{}
	}

	resp := AddKnowledgeResponse{
		AddedCount: result.AddedCount,
		Errors:     errs,
	}

	// The batch fails as a whole only when nothing at all was added.
	if resp.AddedCount == 0 && len(errs) > 0 {
		api.JSON(w, http.StatusBadRequest, resp)
		return
	}
	api.Success(w, http.StatusOK, resp)
}

type DocumentRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListDocumentsResponse struct {
	Documents  []DocumentRefResponse `json:"documents"`
	ChunkCount int                   `json:"chunk_count"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	count, err := h.svc.Count(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := make([]DocumentRefResponse, 0, len(refs))
	for _, ref := range refs {
		docs = append(docs, DocumentRefResponse{ID: ref.ID, Name: ref.Name})
	}
	api.Success(w, http.StatusOK, ListDocumentsResponse{Documents: docs, ChunkCount: count})
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	if err := h.svc.RemoveDocument(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *KnowledgeHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context()); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "cleared"})
}
