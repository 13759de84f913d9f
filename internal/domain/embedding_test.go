package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/stretchr/testify/require"
)

func randomVector(rng *rand.Rand, dim int) Vector {
	v := make(Vector, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func TestVector_Normalize(t *testing.T) {
	v, err := Vector{3, 4}.Normalize()
	require.NoError(t, err)
	require.InDelta(t, 0.6, v[0], 1e-6)
	require.InDelta(t, 0.8, v[1], 1e-6)
	require.InDelta(t, 1.0, v.Norm(), 1e-6)

	_, err = Vector{0, 0}.Normalize()
	require.ErrorIs(t, err, e.ErrZeroVector)

	_, err = Vector{}.Normalize()
	require.ErrorIs(t, err, e.ErrEmptyVectors)
}

func TestVector_NormalizeDoesNotMutate(t *testing.T) {
	orig := Vector{3, 4}
	_, err := orig.Normalize()
	require.NoError(t, err)
	require.Equal(t, Vector{3, 4}, orig)
}

func TestVector_DimensionMismatch(t *testing.T) {
	_, err := Vector{1, 2}.Add(Vector{1})
	require.ErrorIs(t, err, e.ErrDimensionMismatch)

	_, err = Vector{1, 2}.Cosine(Vector{1})
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestVector_Cosine(t *testing.T) {
	sim, err := Vector{1, 0}.Cosine(Vector{0, 1})
	require.NoError(t, err)
	require.InDelta(t, 0, sim, 1e-9)

	sim, err = Vector{2, 0}.Cosine(Vector{5, 0})
	require.NoError(t, err)
	require.InDelta(t, 1, sim, 1e-9)

	_, err = Vector{0, 0}.Cosine(Vector{1, 0})
	require.ErrorIs(t, err, e.ErrZeroVector)
}

func TestNewEmbeddings_UnitNormAndFusion(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rawText := randomVector(rng, 768)
		rawImage := randomVector(rng, 768)
		// масштаб сырого вектора модели не должен влиять на результат
		for j := range rawImage {
			rawImage[j] *= 17
		}

		emb, err := NewEmbeddings(rawText, rawImage)
		require.NoError(t, err)

		for _, v := range []Vector{emb.Text, emb.Image, emb.Combined} {
			require.Len(t, v, 768)
			require.InDelta(t, 1.0, v.Norm(), 1e-4)
		}

		// combined = normalize(text + image): проверка через скалярное произведение
		sum, err := emb.Text.Add(emb.Image)
		require.NoError(t, err)
		dot, err := emb.Combined.Dot(sum)
		require.NoError(t, err)
		require.InDelta(t, sum.Norm(), dot, 1e-3)

		// комбинированный вектор равноудалён от обеих модальностей
		ct, _ := emb.Combined.Dot(emb.Text)
		ci, _ := emb.Combined.Dot(emb.Image)
		require.InDelta(t, ct, ci, 1e-4)
	}
}

func TestCombine_OppositeVectorsFail(t *testing.T) {
	_, err := Combine(Vector{1, 0}, Vector{-1, 0})
	require.ErrorIs(t, err, e.ErrZeroVector)
}

func TestVector_NormMatchesMath(t *testing.T) {
	require.InDelta(t, math.Sqrt(14), Vector{1, 2, 3}.Norm(), 1e-9)
}
