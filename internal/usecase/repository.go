package usecase

import (
	"context"

	"github.com/DRSN-tech/product-search/internal/domain"
)

type ProductRepository interface {
	Upsert(ctx context.Context, product *domain.Product) error
	GetProductsInfo(ctx context.Context, ids []string) ([]ProductInfo, error)
}

type HistoryRepository interface {
	AppendPrice(ctx context.Context, entry *domain.PriceHistoryEntry) error
	AppendReview(ctx context.Context, entry *domain.ReviewHistoryEntry) error
}

type EmbeddingRepository interface {
	UpsertEmbeddings(ctx context.Context, productID string, emb *domain.Embeddings) error
	SearchNearest(ctx context.Context, partition domain.Partition, vector domain.Vector, topK int) ([]string, error)
	FetchCombinedVectors(ctx context.Context, ids []string) ([]IDVector, error)
}

type TextIndexRepository interface {
	Index(ctx context.Context, id, name string) error
	Search(ctx context.Context, query string, size int) ([]string, error)
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]ProductInfo, error)
	FillProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []string) error
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// TxManager выполняет fn в одной транзакции БД; транзакция передаётся через ctx.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
