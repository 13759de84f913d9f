package http

import (
	"net/http"

	"github.com/DRSN-tech/product-search/internal/usecase"
)

type IngestHandler struct {
	ingestUsecase usecase.IngestUC
}

func NewIngestHandler(ingestUsecase usecase.IngestUC) *IngestHandler {
	return &IngestHandler{ingestUsecase: ingestUsecase}
}

// getStats
//
//	@Summary		Счётчики инжеста
//	@Tags			ingest
//	@Produce		json
//	@Success		200	{object}	IngestStatsResponse
//	@Router			/ingest/stats [get]
func (i *IngestHandler) getStats(w http.ResponseWriter, _ *http.Request) {
	s := i.ingestUsecase.Stats()

	WriteSuccess(w, http.StatusOK, IngestStatsResponse{
		Received:  s.Received,
		Committed: s.Committed,
		Rejected:  s.Rejected,
		Failed:    s.Failed,
	})
}
