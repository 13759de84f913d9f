package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestGetProductsInfo_OrderAndNotFound(t *testing.T) {
	j := &journal{}
	repo := newFakeProductRepo(j)
	repo.put("db-1", "db-2")
	cache := newFakeCache()
	cache.products["cached"] = ProductInfo{ID: "cached", Name: "from cache"}

	uc := NewProductUC(repo, cache, logger.Nop{})
	res, err := uc.GetProductsInfo(context.Background(), NewGetProductsReq([]string{"db-2", "missing", "cached", "db-1"}))
	require.NoError(t, err)

	require.Equal(t, []string{"db-2", "cached", "db-1"}, ids(res.Products))
	require.Equal(t, "from cache", res.Products[1].Name)
	require.Equal(t, []string{"missing"}, res.NotFoundProducts)

	// продукты из БД попадают в кэш в фоне
	require.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		_, ok := cache.products["db-1"]
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestGetProductsInfo_EmptyRequest(t *testing.T) {
	uc := NewProductUC(newFakeProductRepo(&journal{}), newFakeCache(), logger.Nop{})

	_, err := uc.GetProductsInfo(context.Background(), NewGetProductsReq(nil))
	require.ErrorIs(t, err, e.ErrNoProducts)
}

func TestFetchByIDs_EmptyShortCircuits(t *testing.T) {
	repo := newFakeProductRepo(&journal{})
	uc := NewProductUC(repo, newFakeCache(), logger.Nop{})

	res, err := uc.FetchByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Empty(t, res)
	require.Zero(t, repo.calls)
}

func TestFetchByIDs_CacheFailureFallsBackToDB(t *testing.T) {
	repo := newFakeProductRepo(&journal{})
	repo.put("a", "b")
	cache := newFakeCache()
	cache.getErr = e.ErrStoreUnavailable

	uc := NewProductUC(repo, cache, logger.Nop{})
	res, err := uc.FetchByIDs(context.Background(), []string{"b", "a"})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ids(res))
}

func TestFetchByIDs_AllCachedSkipsDB(t *testing.T) {
	repo := newFakeProductRepo(&journal{})
	cache := newFakeCache()
	cache.products["a"] = ProductInfo{ID: "a"}

	uc := NewProductUC(repo, cache, logger.Nop{})
	res, err := uc.FetchByIDs(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids(res))
	require.Zero(t, repo.calls)
}

func TestGetProductsInfo_FillDoesNotRestoreInvalidatedProduct(t *testing.T) {
	repo := newFakeProductRepo(&journal{})
	repo.put("p1")
	cache := newFakeCache()

	// ингест фиксирует новую версию между чтением из БД и фоновым заполнением
	repo.afterGet = func() {
		repo.mu.Lock()
		repo.products["p1"] = domain.Product{ID: "p1", Name: "updated"}
		repo.afterGet = nil
		repo.mu.Unlock()
		require.NoError(t, cache.DeleteProducts(context.Background(), []string{"p1"}))
	}

	uc := NewProductUC(repo, cache, logger.Nop{})
	res, err := uc.GetProductsInfo(context.Background(), NewGetProductsReq([]string{"p1"}))
	require.NoError(t, err)
	require.Equal(t, "product p1", res.Products[0].Name)

	require.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.fills == 1
	}, time.Second, 10*time.Millisecond)

	cache.mu.Lock()
	_, stale := cache.products["p1"]
	cache.mu.Unlock()
	require.False(t, stale)

	res, err = uc.GetProductsInfo(context.Background(), NewGetProductsReq([]string{"p1"}))
	require.NoError(t, err)
	require.Equal(t, "updated", res.Products[0].Name)
}
