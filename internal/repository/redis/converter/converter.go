package converter

import "github.com/DRSN-tech/product-search/internal/usecase"

// ProductInfoConverter преобразует ProductInfo в модель кэша и обратно.
type ProductInfoConverter struct{}

func (ProductInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	return &ProductInfoRedisModel{
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

func (ProductInfoConverter) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	return &usecase.ProductInfo{
		ID:          model.ID,
		Name:        model.Name,
		StoreURL:    model.StoreURL,
		ImageURL:    model.ImageURL,
		Price:       model.Price,
		Rating:      model.Rating,
		ReviewCount: model.ReviewsCount,
		LastUpdate:  model.LastUpdate,
	}
}

func (c ProductInfoConverter) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	out := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		out = append(out, *c.ToRedisModel(&entities[i]))
	}
	return out
}
