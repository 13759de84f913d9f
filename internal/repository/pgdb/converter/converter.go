package converter

import (
	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/internal/usecase"
)

// ProductConverter преобразует Product между domain, usecase и моделью PostgreSQL.
type ProductConverter struct{}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	return &ProductModel{
		ID:           entity.ID,
		Name:         entity.Name,
		StoreURL:     entity.StoreURL,
		ImageURL:     entity.ImageURL,
		Price:        entity.Price,
		Rating:       entity.Rating,
		ReviewsCount: entity.ReviewCount,
		LastUpdate:   entity.LastUpdate,
	}
}

func (ProductConverter) ToEntity(model *ProductModel) *domain.Product {
	return domain.NewProduct(
		model.ID,
		model.Name,
		model.StoreURL,
		model.ImageURL,
		model.Price,
		model.Rating,
		model.ReviewsCount,
		model.LastUpdate,
	)
}

func (c ProductConverter) ToProductInfo(model *ProductModel) usecase.ProductInfo {
	return usecase.NewProductInfo(c.ToEntity(model))
}

// HistoryConverter преобразует записи истории в модели PostgreSQL.
type HistoryConverter struct{}

func (HistoryConverter) PriceToModel(entry *domain.PriceHistoryEntry) *PriceHistoryModel {
	return &PriceHistoryModel{
		ID:        entry.RecordID,
		ProductID: entry.ProductID,
		Price:     entry.Price,
		Timestamp: entry.Timestamp,
	}
}

func (HistoryConverter) ReviewToModel(entry *domain.ReviewHistoryEntry) *ReviewHistoryModel {
	return &ReviewHistoryModel{
		ID:           entry.RecordID,
		ProductID:    entry.ProductID,
		Rating:       entry.Rating,
		ReviewsCount: entry.ReviewCount,
		Timestamp:    entry.Timestamp,
	}
}
