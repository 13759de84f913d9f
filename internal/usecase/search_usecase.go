package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// candidateBreadth во сколько раз пул кандидатов шире итоговой выдачи
const candidateBreadth = 2

// ProductsFetcher гидратирует ранжированные ID в атрибуты товаров.
type ProductsFetcher interface {
	FetchByIDs(ctx context.Context, ids []string) ([]ProductInfo, error)
}

// SearchUseCase реализует текстовый, визуальный и мультимодальный поиск.
// Ошибки бэкендов и модели не пробрасываются наружу: запрос деградирует
// до пустой выдачи с записью в лог. Ошибкой считается только некорректный ввод.
type SearchUseCase struct {
	engine        EmbeddingEngine
	embeddingRepo EmbeddingRepository
	textIndex     TextIndexRepository
	products      ProductsFetcher
	opts          SearchOptions
	logger        logger.Logger
}

func NewSearchUC(
	engine EmbeddingEngine,
	embeddingRepo EmbeddingRepository,
	textIndex TextIndexRepository,
	products ProductsFetcher,
	opts SearchOptions,
	logger logger.Logger,
) *SearchUseCase {
	return &SearchUseCase{
		engine:        engine,
		embeddingRepo: embeddingRepo,
		textIndex:     textIndex,
		products:      products,
		opts:          opts,
		logger:        logger,
	}
}

// SearchText возвращает товары в порядке лексической релевантности.
func (s *SearchUseCase) SearchText(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.SearchText"

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, e.Wrap(op, e.ErrInvalidQuery)
	}
	limit := s.limit(req.Limit)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids, err := s.textIndex.Search(ctx, query, limit)
	if err != nil {
		return s.degrade(op, err), nil
	}

	return s.hydrate(ctx, op, ids), nil
}

// SearchImage возвращает товары, ближайшие к изображению в партиции image_search.
func (s *SearchUseCase) SearchImage(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.SearchImage"

	if len(req.Image) == 0 {
		return nil, e.Wrap(op, e.ErrNoImages)
	}
	limit := s.limit(req.Limit)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.engine.EmbedImage(ctx, req.Image)
	if err != nil {
		if errors.Is(err, e.ErrDecode) {
			return nil, e.Wrap(op, err)
		}
		return s.degrade(op, err), nil
	}

	vector, err := raw.Normalize()
	if err != nil {
		return s.degrade(op, err), nil
	}

	ids, err := s.embeddingRepo.SearchNearest(ctx, domain.PartitionImage, vector, limit)
	if err != nil {
		return s.degrade(op, err), nil
	}

	return s.hydrate(ctx, op, ids), nil
}

// SearchMultimodal объединяет лексических и визуальных кандидатов и
// переранжирует их по косинусу с нормализованной суммой векторов запроса.
func (s *SearchUseCase) SearchMultimodal(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.SearchMultimodal"

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, e.Wrap(op, e.ErrInvalidQuery)
	}
	if len(req.Image) == 0 {
		return nil, e.Wrap(op, e.ErrNoImages)
	}
	limit := s.limit(req.Limit)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	emb, err := s.embedQuery(ctx, query, req.Image)
	if err != nil {
		if errors.Is(err, e.ErrDecode) {
			return nil, e.Wrap(op, err)
		}
		return s.degrade(op, err), nil
	}

	pool, err := s.candidates(ctx, query, emb.Image, candidateBreadth*limit)
	if err != nil {
		return s.degrade(op, err), nil
	}
	if len(pool) == 0 {
		return NewSearchRes(nil), nil
	}

	stored, err := s.embeddingRepo.FetchCombinedVectors(ctx, pool)
	if err != nil {
		return s.degrade(op, err), nil
	}

	ranked := RankByCosine(emb.Combined, stored, limit)
	ids := make([]string, 0, len(ranked))
	for _, c := range ranked {
		ids = append(ids, c.ID)
	}

	return s.hydrate(ctx, op, ids), nil
}

// embedQuery параллельно извлекает эмбеддинги текста и изображения запроса.
func (s *SearchUseCase) embedQuery(ctx context.Context, query string, image []byte) (*domain.Embeddings, error) {
	var rawText, rawImage domain.Vector

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.engine.EmbedText(gctx, query)
		if err != nil {
			return e.Wrap("embed text", err)
		}
		rawText = v
		return nil
	})
	g.Go(func() error {
		v, err := s.engine.EmbedImage(gctx, image)
		if err != nil {
			return e.Wrap("embed image", err)
		}
		rawImage = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return domain.NewEmbeddings(rawText, rawImage)
}

// candidates параллельно собирает кандидатов из текстового индекса и
// партиции image_search. Отказ одного источника даёт частичный пул.
func (s *SearchUseCase) candidates(ctx context.Context, query string, image domain.Vector, breadth int) ([]string, error) {
	const op = "SearchUseCase.candidates"

	var (
		lexical, visual       []string
		lexicalErr, visualErr error
		g                     errgroup.Group
	)
	g.Go(func() error {
		lexical, lexicalErr = s.textIndex.Search(ctx, query, breadth)
		return nil
	})
	g.Go(func() error {
		visual, visualErr = s.embeddingRepo.SearchNearest(ctx, domain.PartitionImage, image, breadth)
		return nil
	})
	_ = g.Wait()

	switch {
	case lexicalErr != nil && visualErr != nil:
		return nil, errors.Join(lexicalErr, visualErr)
	case lexicalErr != nil:
		s.logger.Warnf("%s: lexical candidates unavailable, continuing with visual only: %v", op, lexicalErr)
	case visualErr != nil:
		s.logger.Warnf("%s: visual candidates unavailable, continuing with lexical only: %v", op, visualErr)
	}

	return unionIDs(lexical, visual), nil
}

// RankByCosine сортирует кандидатов по косинусу с вектором запроса по убыванию;
// при равенстве меньший ID идёт первым. Кандидаты с несовместимым вектором пропускаются.
func RankByCosine(query domain.Vector, candidates []IDVector, limit int) []domain.ScoredID {
	scored := make([]domain.ScoredID, 0, len(candidates))
	for _, c := range candidates {
		sim, err := query.Cosine(c.Vector)
		if err != nil {
			continue
		}
		scored = append(scored, domain.ScoredID{ID: c.ID, Score: sim})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// unionIDs объединяет списки без повторов, сохраняя порядок первого появления.
func unionIDs(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (s *SearchUseCase) hydrate(ctx context.Context, op string, ids []string) *SearchRes {
	products, err := s.products.FetchByIDs(ctx, ids)
	if err != nil {
		return s.degrade(op, err)
	}
	return NewSearchRes(products)
}

func (s *SearchUseCase) degrade(op string, err error) *SearchRes {
	s.logger.Errorf(err, "%s: search degraded to empty result", op)
	return NewSearchRes(nil)
}

func (s *SearchUseCase) limit(requested int) int {
	switch {
	case requested <= 0:
		return s.opts.DefaultLimit
	case s.opts.MaxLimit > 0 && requested > s.opts.MaxLimit:
		return s.opts.MaxLimit
	default:
		return requested
	}
}

func (s *SearchUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.QueryTimeout)
}
