package domain

import (
	"fmt"
	"math"

	"github.com/DRSN-tech/product-search/pkg/e"
)

// Vector эмбеддинг в общем семантическом пространстве текста и изображений
type Vector []float32

// Norm возвращает L2-норму вектора.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize возвращает копию вектора единичной длины.
func (v Vector) Normalize() (Vector, error) {
	if len(v) == 0 {
		return nil, e.ErrEmptyVectors
	}
	n := v.Norm()
	if n == 0 {
		return nil, e.ErrZeroVector
	}

	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}

// Add возвращает поэлементную сумму векторов.
func (v Vector) Add(other Vector) (Vector, error) {
	if len(v) != len(other) {
		return nil, fmt.Errorf("%w: %d vs %d", e.ErrDimensionMismatch, len(v), len(other))
	}

	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i] + other[i]
	}
	return out, nil
}

// Dot возвращает скалярное произведение.
func (v Vector) Dot(other Vector) (float64, error) {
	if len(v) != len(other) {
		return 0, fmt.Errorf("%w: %d vs %d", e.ErrDimensionMismatch, len(v), len(other))
	}

	var dot float64
	for i := range v {
		dot += float64(v[i]) * float64(other[i])
	}
	return dot, nil
}

// Cosine возвращает косинусное сходство. Нормы считаются явно,
// поэтому входные векторы не обязаны быть нормализованы.
func (v Vector) Cosine(other Vector) (float64, error) {
	dot, err := v.Dot(other)
	if err != nil {
		return 0, err
	}
	na, nb := v.Norm(), other.Norm()
	if na == 0 || nb == 0 {
		return 0, e.ErrZeroVector
	}
	return dot / (na * nb), nil
}

// Combine строит комбинированный эмбеддинг: normalize(text + image).
// Это направление среднего вектора, а не среднее по модулю.
func Combine(text, image Vector) (Vector, error) {
	sum, err := text.Add(image)
	if err != nil {
		return nil, err
	}
	return sum.Normalize()
}

// Embeddings тройка эмбеддингов одного товара
type Embeddings struct {
	Text     Vector
	Image    Vector
	Combined Vector
}

// NewEmbeddings нормализует сырые векторы модели и строит комбинированный.
func NewEmbeddings(rawText, rawImage Vector) (*Embeddings, error) {
	text, err := rawText.Normalize()
	if err != nil {
		return nil, fmt.Errorf("text embedding: %w", err)
	}
	image, err := rawImage.Normalize()
	if err != nil {
		return nil, fmt.Errorf("image embedding: %w", err)
	}
	combined, err := Combine(text, image)
	if err != nil {
		return nil, fmt.Errorf("combined embedding: %w", err)
	}

	return &Embeddings{Text: text, Image: image, Combined: combined}, nil
}

// ScoredID кандидат с оценкой сходства
type ScoredID struct {
	ID    string
	Score float64
}
