package usecase

import (
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/product-search/internal/domain"
)

// INGEST

// RawProductMessage сырая запись краулера в том виде, в каком она приходит из топика.
// Все поля строковые, нормализация выполняется в пайплайне.
type RawProductMessage struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StoreURL     string `json:"store_url"`
	ImageURL     string `json:"image_url"`
	Price        string `json:"price"`
	Rating       string `json:"rating"`
	ReviewsCount string `json:"reviews_count"`
	Timestamp    string `json:"timestamp"`
}

// IngestState состояние записи в пайплайне инжеста.
type IngestState int

const (
	StateReceived IngestState = iota
	StateValidated
	StateEmbedded
	StateCommitted
	StateRejected // терминальное: запись отбрасывается без побочных эффектов
	StateFailed   // терминальное для попытки: сообщение доставляется повторно
)

func (s IngestState) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateEmbedded:
		return "embedded"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IngestStats счётчики пайплайна, безопасные для конкурентного доступа.
type IngestStats struct {
	received  atomic.Int64
	committed atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// IngestStatsSnapshot согласованный на момент чтения срез счётчиков.
type IngestStatsSnapshot struct {
	Received  int64
	Committed int64
	Rejected  int64
	Failed    int64
}

func (s *IngestStats) Snapshot() IngestStatsSnapshot {
	return IngestStatsSnapshot{
		Received:  s.received.Load(),
		Committed: s.committed.Load(),
		Rejected:  s.rejected.Load(),
		Failed:    s.failed.Load(),
	}
}

// FetchedImage байты изображения товара.
// StoredURL заполнен, если объект уже лежит в нашем бакете.
type FetchedImage struct {
	Data        []byte
	ContentType string
	StoredURL   string
}

// SEARCH

// SearchReq запрос к движку поиска. Для текстового режима Image пуст,
// для поиска по картинке пуст Query.
type SearchReq struct {
	Query string
	Image []byte
	Limit int
}

// SearchRes гидратированные товары в порядке ранжирования.
type SearchRes struct {
	Products []ProductInfo
}

// SearchOptions параметры движка поиска.
type SearchOptions struct {
	DefaultLimit int
	MaxLimit     int
	QueryTimeout time.Duration
}

// IDVector сохранённый комбинированный вектор кандидата.
type IDVector struct {
	ID     string
	Vector domain.Vector
}

// PRODUCTS

// GetProductsReq запрос информации о продуктах по их идентификаторам.
type GetProductsReq struct {
	IDs []string
}

// GetProductsRes ответ с данными запрошенных продуктов.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []string
}

// ProductInfo DTO с информацией о продукте для внешнего использования.
type ProductInfo struct {
	ID          string
	Name        string
	StoreURL    string
	ImageURL    string
	Price       int64
	Rating      float64
	ReviewCount int64
	LastUpdate  int64
}

// MAPPERS

func NewProductInfo(p *domain.Product) ProductInfo {
	return ProductInfo{
		ID:          p.ID,
		Name:        p.Name,
		StoreURL:    p.StoreURL,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		LastUpdate:  p.LastUpdate,
	}
}

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []string) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []string) *GetProductsReq {
	return &GetProductsReq{ids}
}

func NewSearchReq(query string, image []byte, limit int) *SearchReq {
	return &SearchReq{
		Query: query,
		Image: image,
		Limit: limit,
	}
}

func NewSearchRes(products []ProductInfo) *SearchRes {
	if products == nil {
		products = []ProductInfo{}
	}
	return &SearchRes{Products: products}
}

func NewIDVector(id string, vector domain.Vector) IDVector {
	return IDVector{ID: id, Vector: vector}
}
