package qdrant

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/internal/usecase"
	"github.com/DRSN-tech/product-search/pkg/clients"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// minHnswEf нижняя граница ширины поиска HNSW
const minHnswEf = 64

// pointsClient подмножество *qdrant.Client, используемое репозиторием
type pointsClient interface {
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
}

// EmbeddingRepo хранит эмбеддинги товаров в трёх коллекциях-партициях Qdrant.
// Каждая точка содержит именованные векторы text, image и combined.
type EmbeddingRepo struct {
	client pointsClient
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client pointsClient, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// UpsertEmbeddings записывает тройку векторов товара во все партиции.
// Внутри партиции замена точки атомарна; между партициями атомарности нет,
// повторная запись того же товара восстанавливает согласованность.
func (q *EmbeddingRepo) UpsertEmbeddings(ctx context.Context, productID string, emb *domain.Embeddings) error {
	for _, partition := range domain.Partitions {
		key := domain.NewPartitionKey(productID, partition)

		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection(partition),
			Wait:           qdrant.PtrOf(true),
			Points:         []*qdrant.PointStruct{newPoint(key, emb)},
		})
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), e.Join(key.String(), e.ErrStoreUnavailable, err))
		}
	}

	return nil
}

// SearchNearest возвращает ID товаров партиции по убыванию косинусного сходства.
func (q *EmbeddingRepo) SearchNearest(ctx context.Context, partition domain.Partition, vector domain.Vector, topK int) ([]string, error) {
	if topK <= 0 {
		return []string{}, nil
	}
	using, err := vectorName(partition)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection(partition),
		Query:          qdrant.NewQueryDense(vector),
		Using:          qdrant.PtrOf(using),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Params:         &qdrant.SearchParams{HnswEf: qdrant.PtrOf(HnswEf(topK))},
		WithPayload:    qdrant.NewWithPayloadInclude(clients.PayloadProductID),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.Join("query", e.ErrStoreUnavailable, err))
	}

	ids := make([]string, 0, len(points))
	for _, p := range points {
		if id := p.GetPayload()[clients.PayloadProductID].GetStringValue(); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// FetchCombinedVectors читает сохранённые комбинированные векторы из партиции combined_search.
// Отсутствующие товары пропускаются.
func (q *EmbeddingRepo) FetchCombinedVectors(ctx context.Context, ids []string) ([]usecase.IDVector, error) {
	if len(ids) == 0 {
		return []usecase.IDVector{}, nil
	}

	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(domain.NewPartitionKey(id, domain.PartitionCombined).PointID()))
	}

	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection(domain.PartitionCombined),
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayloadInclude(clients.PayloadProductID),
		WithVectors:    qdrant.NewWithVectorsInclude(clients.VectorCombined),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.Join("get", e.ErrStoreUnavailable, err))
	}

	result := make([]usecase.IDVector, 0, len(points))
	for _, p := range points {
		id := p.GetPayload()[clients.PayloadProductID].GetStringValue()
		vector := denseVector(p.GetVectors().GetVectors().GetVectors()[clients.VectorCombined])
		if id == "" || len(vector) == 0 {
			continue
		}
		result = append(result, usecase.NewIDVector(id, vector))
	}

	return result, nil
}

// HnswEf возвращает ширину поиска для topK: max(64, 2*topK).
func HnswEf(topK int) uint64 {
	return uint64(max(minHnswEf, 2*topK))
}

func (q *EmbeddingRepo) collection(partition domain.Partition) string {
	return clients.CollectionName(q.cfg.CollectionPrefix, partition)
}

func newPoint(key domain.PartitionKey, emb *domain.Embeddings) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(key.PointID()),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			clients.VectorText:     qdrant.NewVectorDense(emb.Text),
			clients.VectorImage:    qdrant.NewVectorDense(emb.Image),
			clients.VectorCombined: qdrant.NewVectorDense(emb.Combined),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			clients.PayloadProductID: key.ProductID,
			"partition":              string(key.Partition),
		}),
	}
}

// vectorName сопоставляет партиции вектор, по которому в ней ищут.
func vectorName(partition domain.Partition) (string, error) {
	switch partition {
	case domain.PartitionText:
		return clients.VectorText, nil
	case domain.PartitionImage:
		return clients.VectorImage, nil
	case domain.PartitionCombined:
		return clients.VectorCombined, nil
	default:
		return "", fmt.Errorf("unknown partition %q", partition)
	}
}

func denseVector(v *qdrant.VectorOutput) domain.Vector {
	if d := v.GetDense(); d != nil {
		return d.GetData()
	}
	return v.GetData()
}
