package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DRSN-tech/product-search/internal/repository/redis/converter"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/stretchr/testify/require"
)

func TestBuildProductCacheKeys(t *testing.T) {
	require.Equal(t, []string{"product:a1", "product:b2"}, buildProductCacheKeys([]string{"a1", "b2"}))
}

func TestRedisValueToBytes(t *testing.T) {
	b, err := redisValueToBytes("x", "k")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), b)

	b, err = redisValueToBytes(nil, "k")
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = redisValueToBytes(42, "k")
	require.Error(t, err)
}

func TestProductCodecRoundTrip(t *testing.T) {
	conv := converter.ProductInfoConverter{}
	info := usecase.ProductInfo{ID: "p1", Name: "Áo", Price: 1234567, Rating: 4.5, ReviewCount: 1200, LastUpdate: 1700000000}

	data, err := json.Marshal(conv.ToRedisModel(&info))
	require.NoError(t, err)

	model, err := decodeProduct(data)
	require.NoError(t, err)
	require.Equal(t, info, *conv.ToUseCase(model))
}

func TestCacheRepo_EmptyInputSkipsRedis(t *testing.T) {
	// клиент не нужен: пустой вход не должен доходить до Redis
	repo := NewCacheRepo(nil, converter.ProductInfoConverter{}, nil, nil)

	res, err := repo.GetProducts(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, res)
	require.NoError(t, repo.FillProducts(context.Background(), nil))
	require.NoError(t, repo.DeleteProducts(context.Background(), nil))
}

func TestTombstoneIsNotAProduct(t *testing.T) {
	require.True(t, isTombstone(tombstone))
	require.False(t, isTombstone([]byte(`{"id":"p1"}`)))

	// метка не должна разбираться как запись продукта
	_, err := decodeProduct(tombstone)
	require.Error(t, err)
}
