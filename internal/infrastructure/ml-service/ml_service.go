package ml_service

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/internal/infrastructure/imaging"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Методы сервиса эмбеддингов
const (
	embedImageMethod = "/embedding.v1.EmbeddingService/EmbedImage"
	embedTextMethod  = "/embedding.v1.EmbeddingService/EmbedText"
)

// Поля ответа сервиса
const (
	fieldVector       = "vector"
	fieldModelVersion = "model_version"
)

// MLService клиент к сервису vision-language модели.
// Возвращает сырые векторы модели, нормализация выполняется вызывающей стороной.
type MLService struct {
	conn       grpc.ClientConnInterface
	sem        chan struct{} // ограничение одновременных инференсов
	resolution int
	dimension  int
	timeout    time.Duration
	logger     logger.Logger
}

func NewMLService(conn grpc.ClientConnInterface, cfg *cfg.MLServiceCfg, dimension int, logger logger.Logger) *MLService {
	return &MLService{
		conn:       conn,
		sem:        make(chan struct{}, max(1, cfg.MaxConcurrent)),
		resolution: cfg.ImageResolution,
		dimension:  dimension,
		timeout:    cfg.RequestTimeout,
		logger:     logger,
	}
}

// EmbedImage готовит изображение локально и отправляет его в модель.
// Невалидные байты отклоняются с e.ErrDecode без обращения к сервису.
func (m *MLService) EmbedImage(ctx context.Context, image []byte) (domain.Vector, error) {
	const op = "MLService.EmbedImage"

	prepared, err := imaging.Prepare(image, m.resolution)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := m.infer(ctx, embedImageMethod, wrapperspb.Bytes(prepared))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

// EmbedText отправляет текст в модель; токенизация выполняется на стороне сервиса.
func (m *MLService) EmbedText(ctx context.Context, text string) (domain.Vector, error) {
	const op = "MLService.EmbedText"

	vector, err := m.infer(ctx, embedTextMethod, wrapperspb.String(text))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return vector, nil
}

func (m *MLService) infer(ctx context.Context, method string, req proto.Message) (domain.Vector, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, e.Join(method, e.ErrModel, ctx.Err())
	}
	defer func() { <-m.sem }()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	res := &structpb.Struct{}
	if err := m.conn.Invoke(ctx, method, req, res); err != nil {
		return nil, e.Join(method, e.ErrModel, err)
	}

	vector, err := parseVector(res, m.dimension)
	if err != nil {
		return nil, e.Join(method, e.ErrModel, err)
	}

	m.logger.Debugf("%s: got %d-dim vector, model %s", method, len(vector), res.GetFields()[fieldModelVersion].GetStringValue())
	return vector, nil
}

// parseVector извлекает вектор из ответа; dimension <= 0 отключает проверку размерности.
func parseVector(res *structpb.Struct, dimension int) (domain.Vector, error) {
	values := res.GetFields()[fieldVector].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, e.ErrEmptyVectors
	}
	if dimension > 0 && len(values) != dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", e.ErrDimensionMismatch, len(values), dimension)
	}

	vector := make(domain.Vector, len(values))
	for i, v := range values {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("vector[%d] is not a number", i)
		}
		vector[i] = float32(n.NumberValue)
	}

	return vector, nil
}
