package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
)

// cacheFillTimeout ограничивает фоновое заполнение кэша после чтения из БД
const cacheFillTimeout = 500 * time.Millisecond

// ProductUseCase реализует чтение атрибутов товаров: кэш, затем БД.
type ProductUseCase struct {
	productRepo ProductRepository
	cacheRepo   CacheRepository
	logger      logger.Logger
}

func NewProductUC(productRepo ProductRepository, cacheRepo CacheRepository, logger logger.Logger) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам.
func (p *ProductUseCase) GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "ProductUseCase.GetProductsInfo"

	// Валидация
	if len(req.IDs) == 0 {
		return nil, e.Wrap(op, e.ErrNoProducts)
	}

	found, notFound, err := p.lookup(ctx, req.IDs)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return NewGetProductsRes(found, notFound), nil
}

// FetchByIDs гидратирует ранжированный список ID с сохранением порядка.
// Неизвестные ID молча пропускаются, пустой вход даёт пустой результат.
func (p *ProductUseCase) FetchByIDs(ctx context.Context, ids []string) ([]ProductInfo, error) {
	if len(ids) == 0 {
		return []ProductInfo{}, nil
	}

	found, _, err := p.lookup(ctx, ids)
	if err != nil {
		return nil, e.Wrap("ProductUseCase.FetchByIDs", err)
	}

	return found, nil
}

func (p *ProductUseCase) lookup(ctx context.Context, ids []string) ([]ProductInfo, []string, error) {
	const op = "ProductUseCase.lookup"

	// Поиск продуктов в кэше
	cacheProductsMap, err := p.cacheRepo.GetProducts(ctx, ids)
	if err != nil {
		p.logger.Warnf("cache lookup failed, falling back to db: %v", e.Wrap(op, err))
		cacheProductsMap = nil
	}

	nonCacheable := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cacheProductsMap[id]; !ok {
			nonCacheable = append(nonCacheable, id)
		}
	}

	// Получение продуктов из БД
	var productsInfoFromDB []ProductInfo
	if len(nonCacheable) > 0 {
		productsInfoFromDB, err = p.productRepo.GetProductsInfo(ctx, nonCacheable)
		if err != nil {
			return nil, nil, e.Wrap(op, err)
		}

		if len(productsInfoFromDB) > 0 {
			// Фоновое добавление продуктов в кэш
			go func(products []ProductInfo) {
				bgCtx, cancel := context.WithTimeout(context.Background(), cacheFillTimeout)
				defer cancel()

				if err := p.cacheRepo.FillProducts(bgCtx, products); err != nil {
					p.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}(productsInfoFromDB)
		}
	}

	dbProductsMap := make(map[string]ProductInfo, len(productsInfoFromDB))
	for _, productInfo := range productsInfoFromDB {
		dbProductsMap[productInfo.ID] = productInfo
	}

	// Формирование результата в порядке запроса
	result := make([]ProductInfo, 0, len(ids))
	notFoundProducts := make([]string, 0)
	for _, id := range ids {
		if pr, ok := cacheProductsMap[id]; ok {
			result = append(result, pr)
		} else if pr, ok := dbProductsMap[id]; ok {
			result = append(result, pr)
		} else {
			notFoundProducts = append(notFoundProducts, id)
		}
	}

	return result, notFoundProducts, nil
}
