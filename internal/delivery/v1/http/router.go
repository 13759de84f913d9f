package http

import (
	_ "github.com/DRSN-tech/product-search/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(prUC usecase.ProductUC, searchUC usecase.SearchUC, ingestUC usecase.IngestUC) {
	r.router.Use(middleware.RequestID, middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		registerProductRoutes(v1, NewProductHandler(prUC, r.logger))
		registerSearchRoutes(v1, NewSearchHandler(searchUC, r.logger))
		registerIngestRoutes(v1, NewIngestHandler(ingestUC))
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.getProducts)
	})
}

func registerSearchRoutes(router chi.Router, sHandler *SearchHandler) {
	router.Route("/search", func(s chi.Router) {
		s.Get("/text", sHandler.searchText)
		s.Post("/image", sHandler.searchImage)
		s.Post("/multimodal", sHandler.searchMultimodal)
	})
}

func registerIngestRoutes(router chi.Router, iHandler *IngestHandler) {
	router.Get("/ingest/stats", iHandler.getStats)
}
