package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
)

// IngestUseCase проводит сырую запись краулера через нормализацию,
// извлечение эмбеддингов и запись во все хранилища.
type IngestUseCase struct {
	productRepo   ProductRepository
	historyRepo   HistoryRepository
	embeddingRepo EmbeddingRepository
	textIndex     TextIndexRepository
	cacheRepo     CacheRepository
	engine        EmbeddingEngine
	imagesInfra   ImagesInfra
	trManager     TxManager
	location      *time.Location
	logger        logger.Logger
	stats         IngestStats
}

func NewIngestUC(
	productRepo ProductRepository,
	historyRepo HistoryRepository,
	embeddingRepo EmbeddingRepository,
	textIndex TextIndexRepository,
	cacheRepo CacheRepository,
	engine EmbeddingEngine,
	imagesInfra ImagesInfra,
	trManager TxManager,
	location *time.Location,
	logger logger.Logger,
) *IngestUseCase {
	if location == nil {
		location = time.UTC
	}

	return &IngestUseCase{
		productRepo:   productRepo,
		historyRepo:   historyRepo,
		embeddingRepo: embeddingRepo,
		textIndex:     textIndex,
		cacheRepo:     cacheRepo,
		engine:        engine,
		imagesInfra:   imagesInfra,
		trManager:     trManager,
		location:      location,
		logger:        logger,
	}
}

// Ingest обрабатывает одно сообщение и возвращает терминальное состояние:
// StateCommitted, StateRejected (сообщение подтверждается и отбрасывается)
// или StateFailed (сообщение нужно доставить повторно).
func (u *IngestUseCase) Ingest(ctx context.Context, payload []byte) (IngestState, error) {
	const op = "IngestUseCase.Ingest"
	u.stats.received.Add(1)

	state, err := u.ingest(ctx, payload)
	switch state {
	case StateCommitted:
		u.stats.committed.Add(1)
	case StateRejected:
		u.stats.rejected.Add(1)
		u.logger.Warnf("record rejected: %v", e.Wrap(op, err))
	default:
		state = StateFailed
		u.stats.failed.Add(1)
		u.logger.Errorf(err, "record failed, will be redelivered")
	}

	if err != nil {
		return state, e.Wrap(op, err)
	}
	return state, nil
}

// Stats возвращает текущие значения счётчиков.
func (u *IngestUseCase) Stats() IngestStatsSnapshot {
	return u.stats.Snapshot()
}

func (u *IngestUseCase) ingest(ctx context.Context, payload []byte) (IngestState, error) {
	// Received
	var msg RawProductMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return StateRejected, e.Join("decode message", e.ErrValidation, err)
	}
	u.canonicalizeID(&msg)

	// Validated
	product, err := NormalizeProduct(&msg, u.location)
	if err != nil {
		return StateRejected, err
	}

	img, err := u.imagesInfra.FetchImage(ctx, product.ImageURL)
	if err != nil {
		return classify(err), e.Wrap("fetch image", err)
	}

	// Embedded
	emb, err := u.embed(ctx, product.Name, img.Data)
	if err != nil {
		return classify(err), err
	}

	storedURL, err := u.imagesInfra.StoreImage(ctx, product.ID, img)
	if err != nil {
		return classify(err), e.Wrap("store image", err)
	}
	product.ImageURL = storedURL

	// Committed
	if err := u.commit(ctx, product, emb); err != nil {
		return classify(err), err
	}

	// Удаление из кэша старых данных товара
	if err := u.cacheRepo.DeleteProducts(ctx, []string{product.ID}); err != nil {
		u.logger.Warnf("Failed to delete products from cache: %v", err)
	}

	u.logger.Debugf("product %s committed", product.ID)
	return StateCommitted, nil
}

// canonicalizeID приводит идентификатор к хэшу ссылки на магазин:
// одна и та же ссылка всегда означает один и тот же товар.
func (u *IngestUseCase) canonicalizeID(msg *RawProductMessage) {
	if strings.TrimSpace(msg.StoreURL) == "" {
		return
	}

	canonical := domain.ProductIDFromURL(msg.StoreURL)
	carried := strings.TrimSpace(msg.ID)
	if carried == "" || carried == canonical {
		return
	}

	u.logger.Warnf("product id %q does not match store url %q, using %q", carried, msg.StoreURL, canonical)
	msg.ID = canonical
}

// embed извлекает и нормализует эмбеддинги товара.
func (u *IngestUseCase) embed(ctx context.Context, name string, image []byte) (*domain.Embeddings, error) {
	rawImage, err := u.engine.EmbedImage(ctx, image)
	if err != nil {
		return nil, e.Wrap("embed image", err)
	}

	rawText, err := u.engine.EmbedText(ctx, name)
	if err != nil {
		return nil, e.Wrap("embed text", err)
	}

	emb, err := domain.NewEmbeddings(rawText, rawImage)
	if err != nil {
		return nil, e.Join("normalize embeddings", e.ErrModel, err)
	}

	return emb, nil
}

// commit записывает товар в фиксированном порядке:
// атрибуты, эмбеддинги трёх партиций, история, текстовый индекс.
// Повторная доставка после частичной записи перезаписывает те же ключи.
func (u *IngestUseCase) commit(ctx context.Context, product *domain.Product, emb *domain.Embeddings) error {
	if err := u.productRepo.Upsert(ctx, product); err != nil {
		return e.Wrap("upsert product", err)
	}

	if err := u.embeddingRepo.UpsertEmbeddings(ctx, product.ID, emb); err != nil {
		return e.Wrap("upsert embeddings", err)
	}

	err := u.trManager.Do(ctx, func(ctx context.Context) error {
		if err := u.historyRepo.AppendPrice(ctx, domain.NewPriceHistoryEntry(product)); err != nil {
			return err
		}
		return u.historyRepo.AppendReview(ctx, domain.NewReviewHistoryEntry(product))
	})
	if err != nil {
		return e.Wrap("append history", err)
	}

	if err := u.textIndex.Index(ctx, product.ID, product.Name); err != nil {
		return e.Wrap("index text", err)
	}

	return nil
}

// classify определяет исход по ошибке: некорректные данные отбрасываются,
// всё остальное считается временной ошибкой.
func classify(err error) IngestState {
	if errors.Is(err, e.ErrValidation) || errors.Is(err, e.ErrDecode) {
		return StateRejected
	}
	return StateFailed
}
