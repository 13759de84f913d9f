package pgdb

import (
	"context"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/tr"
	"github.com/jimlawless/whereami"
)

// HistoryRepo дописывает неизменяемые записи истории цен и отзывов.
// Вызывается внутри транзакции tr.Manager: запись берётся из контекста.
type HistoryRepo struct {
	db   tr.Querier
	conv converter.HistoryConverter
}

func NewHistoryRepo(db tr.Querier, conv converter.HistoryConverter) *HistoryRepo {
	return &HistoryRepo{
		db:   db,
		conv: conv,
	}
}

func (h *HistoryRepo) AppendPrice(ctx context.Context, entry *domain.PriceHistoryEntry) error {
	query := `
		INSERT INTO product_price_history (id, product_id, price, ts)
		VALUES ($1, $2, $3, $4)
	`

	m := h.conv.PriceToModel(entry)
	if _, err := tr.QuerierFromCtx(ctx, h.db).Exec(ctx, query, m.ID, m.ProductID, m.Price, m.Timestamp); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (h *HistoryRepo) AppendReview(ctx context.Context, entry *domain.ReviewHistoryEntry) error {
	query := `
		INSERT INTO product_review_history (id, product_id, rating, reviews_count, ts)
		VALUES ($1, $2, $3, $4, $5)
	`

	m := h.conv.ReviewToModel(entry)
	if _, err := tr.QuerierFromCtx(ctx, h.db).Exec(ctx, query, m.ID, m.ProductID, m.Rating, m.ReviewsCount, m.Timestamp); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
