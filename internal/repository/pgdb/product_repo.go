package pgdb

import (
	"context"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/tr"
	"github.com/jimlawless/whereami"
)

// ProductRepo реализует репозиторий атрибутов товаров поверх PostgreSQL.
type ProductRepo struct {
	db   tr.Querier
	conv converter.ProductConverter
}

func NewProductRepo(db tr.Querier, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		db:   db,
		conv: conv,
	}
}

// Upsert заменяет запись товара целиком: последняя запись побеждает.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, store_url, image_url, price, rating, reviews_count, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			store_url = EXCLUDED.store_url,
			image_url = EXCLUDED.image_url,
			price = EXCLUDED.price,
			rating = EXCLUDED.rating,
			reviews_count = EXCLUDED.reviews_count,
			last_update = EXCLUDED.last_update,
			updated_at = NOW()
	`

	m := p.conv.ToModel(product)
	_, err := tr.QuerierFromCtx(ctx, p.db).Exec(ctx, query,
		m.ID, m.Name, m.StoreURL, m.ImageURL, m.Price, m.Rating, m.ReviewsCount, m.LastUpdate,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetProductsInfo возвращает атрибуты найденных товаров; неизвестные ID пропускаются.
// Порядок результата не определён.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []string) ([]usecase.ProductInfo, error) {
	if len(ids) == 0 {
		return []usecase.ProductInfo{}, nil
	}

	query := `
		SELECT id, name, store_url, image_url, price, rating, reviews_count, last_update, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := tr.QuerierFromCtx(ctx, p.db).Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0, len(ids))
	for rows.Next() {
		var m converter.ProductModel
		if err := rows.Scan(
			&m.ID, &m.Name, &m.StoreURL, &m.ImageURL, &m.Price,
			&m.Rating, &m.ReviewsCount, &m.LastUpdate, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, p.conv.ToProductInfo(&m))
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
