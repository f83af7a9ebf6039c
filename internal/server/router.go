package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/askdocs/askdocs/internal/api"
	"github.com/askdocs/askdocs/internal/api/handlers"
	"github.com/askdocs/askdocs/internal/api/middleware"
)

type RouterConfig struct {
	ChatHandler      *handlers.ChatHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Post("/search", cfg.ChatHandler.Search)

		r.Route("/knowledge-base", func(r chi.Router) {
			r.Post("/add", cfg.KnowledgeHandler.Add)
			r.Get("/documents", cfg.KnowledgeHandler.List)
			r.Delete("/documents/{id}", cfg.KnowledgeHandler.Delete)
			r.Delete("/clear", cfg.KnowledgeHandler.Clear)
		})
	})

	return r
}
