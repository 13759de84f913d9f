package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/DRSN-tech/product-search/pkg/logger"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	engine     *fakeEngine
	embeddings *fakeEmbeddingRepo
	index      *fakeTextIndex
	products   *fakeProductRepo
	uc         *SearchUseCase
}

func newSearchFixture() *searchFixture {
	j := &journal{}
	f := &searchFixture{
		engine:     newFakeEngine(),
		embeddings: newFakeEmbeddingRepo(j),
		index:      newFakeTextIndex(j),
		products:   newFakeProductRepo(j),
	}
	hydrator := NewProductUC(f.products, newFakeCache(), logger.Nop{})
	opts := SearchOptions{DefaultLimit: 50, MaxLimit: 200, QueryTimeout: time.Second}
	f.uc = NewSearchUC(f.engine, f.embeddings, f.index, hydrator, opts, logger.Nop{})
	return f
}

func ids(products []ProductInfo) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

// storeCombined сохраняет товар с комбинированным вектором, у которого
// косинус с осью x равен sim.
func (f *searchFixture) storeCombined(id string, sim float64) {
	v := domain.Vector{float32(sim), float32(math.Sqrt(1 - sim*sim)), 0, 0}
	f.embeddings.stored[id] = domain.Embeddings{Text: v, Image: v, Combined: v}
	f.products.put(id)
}

func TestSearchText_LexicalOrderAndUnknownDropped(t *testing.T) {
	f := newSearchFixture()
	f.products.put("p1", "p2")
	f.index.result = []string{"p2", "ghost", "p1"}

	res, err := f.uc.SearchText(context.Background(), NewSearchReq("áo thun", nil, 10))
	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p1"}, ids(res.Products))
	require.Equal(t, 10, f.index.lastSize)
}

func TestSearchText_InvalidQuery(t *testing.T) {
	f := newSearchFixture()

	_, err := f.uc.SearchText(context.Background(), NewSearchReq("   ", nil, 10))
	require.ErrorIs(t, err, e.ErrInvalidQuery)
}

func TestSearchText_LimitClamp(t *testing.T) {
	f := newSearchFixture()

	_, err := f.uc.SearchText(context.Background(), NewSearchReq("q", nil, 0))
	require.NoError(t, err)
	require.Equal(t, 50, f.index.lastSize)

	_, err = f.uc.SearchText(context.Background(), NewSearchReq("q", nil, 100000))
	require.NoError(t, err)
	require.Equal(t, 200, f.index.lastSize)
}

func TestSearchText_BackendFailureDegrades(t *testing.T) {
	f := newSearchFixture()
	f.index.err = e.Wrap("elastic", e.ErrStoreUnavailable)

	res, err := f.uc.SearchText(context.Background(), NewSearchReq("q", nil, 10))
	require.NoError(t, err)
	require.NotNil(t, res.Products)
	require.Empty(t, res.Products)
}

func TestSearchImage_SimilarityOrder(t *testing.T) {
	f := newSearchFixture()
	f.products.put("a", "b", "c")
	f.embeddings.nearest = []string{"c", "a", "b"}

	res, err := f.uc.SearchImage(context.Background(), NewSearchReq("", []byte("img"), 2))
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, ids(res.Products))
	require.Equal(t, 2, f.embeddings.lastTopK)
}

func TestSearchImage_DecodeErrorIsClientError(t *testing.T) {
	f := newSearchFixture()

	_, err := f.uc.SearchImage(context.Background(), NewSearchReq("", []byte("garbage"), 5))
	require.ErrorIs(t, err, e.ErrDecode)

	_, err = f.uc.SearchImage(context.Background(), NewSearchReq("", nil, 5))
	require.ErrorIs(t, err, e.ErrNoImages)
}

func TestSearchImage_ModelFailureDegrades(t *testing.T) {
	f := newSearchFixture()
	f.engine.err = e.ErrModel

	res, err := f.uc.SearchImage(context.Background(), NewSearchReq("", []byte("img"), 5))
	require.NoError(t, err)
	require.Empty(t, res.Products)
}

func TestSearchMultimodal_FusionRanking(t *testing.T) {
	f := newSearchFixture()
	f.engine.text["áo"] = domain.Vector{1, 0, 0, 0}
	f.engine.image["img"] = domain.Vector{2, 0, 0, 0}

	f.storeCombined("A", 0.9)
	f.storeCombined("B", 0.4)
	// B найден обоими источниками, A только визуальным
	f.index.result = []string{"B"}
	f.embeddings.nearest = []string{"A", "B"}

	res, err := f.uc.SearchMultimodal(context.Background(), NewSearchReq("áo", []byte("img"), 10))
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, ids(res.Products))

	require.Len(t, f.embeddings.fetched, 1)
	require.ElementsMatch(t, []string{"A", "B"}, f.embeddings.fetched[0])
	require.Equal(t, 20, f.index.lastSize)
	require.Equal(t, 20, f.embeddings.lastTopK)
}

func TestSearchMultimodal_TopLimit(t *testing.T) {
	f := newSearchFixture()
	f.engine.text["q"] = domain.Vector{1, 0, 0, 0}
	f.engine.image["img"] = domain.Vector{1, 0, 0, 0}

	f.storeCombined("low", 0.1)
	f.storeCombined("mid", 0.5)
	f.storeCombined("high", 0.99)
	f.index.result = []string{"low", "mid"}
	f.embeddings.nearest = []string{"high"}

	res, err := f.uc.SearchMultimodal(context.Background(), NewSearchReq("q", []byte("img"), 2))
	require.NoError(t, err)
	require.Equal(t, []string{"high", "mid"}, ids(res.Products))
}

func TestSearchMultimodal_PartialSource(t *testing.T) {
	f := newSearchFixture()
	f.engine.text["q"] = domain.Vector{1, 0, 0, 0}
	f.engine.image["img"] = domain.Vector{1, 0, 0, 0}
	f.storeCombined("A", 0.7)
	f.embeddings.nearest = []string{"A"}
	f.index.err = errors.New("elasticsearch down")

	res, err := f.uc.SearchMultimodal(context.Background(), NewSearchReq("q", []byte("img"), 5))
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, ids(res.Products))
}

func TestSearchMultimodal_Degrades(t *testing.T) {
	cases := map[string]func(f *searchFixture){
		"model":        func(f *searchFixture) { f.engine.err = e.ErrModel },
		"both sources": func(f *searchFixture) { f.index.err = e.ErrStoreUnavailable; f.embeddings.nearestErr = e.ErrStoreUnavailable },
		"fetch":        func(f *searchFixture) { f.embeddings.fetchErr = e.ErrStoreUnavailable },
		"hydration":    func(f *searchFixture) { f.products.err = e.ErrStoreUnavailable },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			f := newSearchFixture()
			f.storeCombined("A", 0.7)
			f.embeddings.nearest = []string{"A"}
			setup(f)

			res, err := f.uc.SearchMultimodal(context.Background(), NewSearchReq("q", []byte("img"), 5))
			require.NoError(t, err)
			require.Empty(t, res.Products)
		})
	}
}

func TestSearchMultimodal_InvalidInput(t *testing.T) {
	f := newSearchFixture()

	_, err := f.uc.SearchMultimodal(context.Background(), NewSearchReq("", []byte("img"), 5))
	require.ErrorIs(t, err, e.ErrInvalidQuery)

	_, err = f.uc.SearchMultimodal(context.Background(), NewSearchReq("q", nil, 5))
	require.ErrorIs(t, err, e.ErrNoImages)

	_, err = f.uc.SearchMultimodal(context.Background(), NewSearchReq("q", []byte("garbage"), 5))
	require.ErrorIs(t, err, e.ErrDecode)
}

func TestRankByCosine(t *testing.T) {
	q := domain.Vector{1, 0}
	candidates := []IDVector{
		NewIDVector("b", domain.Vector{1, 1}),
		NewIDVector("a", domain.Vector{2, 2}),
		NewIDVector("c", domain.Vector{1, 0}),
		NewIDVector("bad", domain.Vector{1, 0, 0}),
		NewIDVector("d", domain.Vector{-1, 0}),
	}

	ranked := RankByCosine(q, candidates, 3)
	require.Len(t, ranked, 3)
	require.Equal(t, "c", ranked[0].ID)
	// равные оценки упорядочены по ID
	require.Equal(t, "a", ranked[1].ID)
	require.Equal(t, "b", ranked[2].ID)
	require.InDelta(t, math.Sqrt2/2, ranked[1].Score, 1e-6)
}

func TestUnionIDs(t *testing.T) {
	require.Equal(t, []string{"b", "a", "c"}, unionIDs([]string{"b", "a"}, []string{"a", "c", "b"}))
	require.Empty(t, unionIDs(nil, nil))
}
