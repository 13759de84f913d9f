package clients

import (
	"context"
	"fmt"

	config "github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// Имена векторов внутри точки каждой партиции
const (
	VectorText     = "text"
	VectorImage    = "image"
	VectorCombined = "combined"

	// PayloadProductID поле payload с идентификатором товара
	PayloadProductID = "product_id"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

// CollectionName возвращает имя коллекции Qdrant для партиции.
func CollectionName(prefix string, partition domain.Partition) string {
	return fmt.Sprintf("%s_%s", prefix, partition)
}

func (c *QdrantClient) Close(_ context.Context) error {
	return c.Client.Close()
}

// EnsureCollections создаёт недостающие коллекции всех партиций
// с именованными векторами и индексом по product_id.
func EnsureCollections(ctx context.Context, client *QdrantClient) error {
	for _, partition := range domain.Partitions {
		name := CollectionName(client.cfg.CollectionPrefix, partition)

		exists, err := client.Client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check collection %s existence: %w", name, err)
		}
		if exists {
			continue
		}

		if err := client.Client.CreateCollection(ctx, newCollectionRequest(name, client.cfg)); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}

		if _, err := client.Client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			FieldName:      PayloadProductID,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return fmt.Errorf("failed to create payload index for %s: %w", name, err)
		}
	}

	return nil
}

func newCollectionRequest(name string, cfg *config.QdrantCfg) *qdrant.CreateCollection {
	params := func() *qdrant.VectorParams {
		return &qdrant.VectorParams{
			Size:     cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}
	}

	return &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			VectorText:     params(),
			VectorImage:    params(),
			VectorCombined: params(),
		}),
		HnswConfig: &qdrant.HnswConfigDiff{
			M:           qdrant.PtrOf(cfg.HnswM),
			EfConstruct: qdrant.PtrOf(cfg.HnswEfConstruct),
		},
	}
}
