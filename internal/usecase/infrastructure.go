package usecase

import (
	"context"

	"github.com/DRSN-tech/product-search/internal/domain"
)

// EmbeddingEngine возвращает сырые (ненормализованные) векторы модели.
type EmbeddingEngine interface {
	EmbedImage(ctx context.Context, image []byte) (domain.Vector, error)
	EmbedText(ctx context.Context, text string) (domain.Vector, error)
}

type ImagesInfra interface {
	FetchImage(ctx context.Context, imageURL string) (*FetchedImage, error)
	StoreImage(ctx context.Context, productID string, img *FetchedImage) (string, error)
}
