package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/DRSN-tech/product-search/internal/domain"
	"github.com/DRSN-tech/product-search/pkg/e"
)

// journal фиксирует порядок записей во все хранилища
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeProductRepo struct {
	mu       sync.Mutex
	j        *journal
	products map[string]domain.Product
	err      error
	calls    int
	afterGet func()
}

func newFakeProductRepo(j *journal) *fakeProductRepo {
	return &fakeProductRepo{j: j, products: map[string]domain.Product{}}
}

func (f *fakeProductRepo) Upsert(_ context.Context, p *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.products[p.ID] = *p
	f.j.add("product:" + p.ID)
	return nil
}

func (f *fakeProductRepo) GetProductsInfo(_ context.Context, ids []string) ([]ProductInfo, error) {
	f.mu.Lock()
	f.calls++
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	out := make([]ProductInfo, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, NewProductInfo(&p))
		}
	}
	hook := f.afterGet
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeProductRepo) put(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.products[id] = domain.Product{ID: id, Name: "product " + id}
	}
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	j       *journal
	prices  []domain.PriceHistoryEntry
	reviews []domain.ReviewHistoryEntry
}

func (f *fakeHistoryRepo) AppendPrice(_ context.Context, entry *domain.PriceHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = append(f.prices, *entry)
	f.j.add("price:" + entry.ProductID)
	return nil
}

func (f *fakeHistoryRepo) AppendReview(_ context.Context, entry *domain.ReviewHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, *entry)
	f.j.add("review:" + entry.ProductID)
	return nil
}

type fakeEmbeddingRepo struct {
	mu         sync.Mutex
	j          *journal
	stored     map[string]domain.Embeddings
	nearest    []string
	nearestErr error
	upsertErr  error
	fetchErr   error
	fetched    [][]string
	lastTopK   int
}

func newFakeEmbeddingRepo(j *journal) *fakeEmbeddingRepo {
	return &fakeEmbeddingRepo{j: j, stored: map[string]domain.Embeddings{}}
}

func (f *fakeEmbeddingRepo) UpsertEmbeddings(_ context.Context, id string, emb *domain.Embeddings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.stored[id] = *emb
	f.j.add("embeddings:" + id)
	return nil
}

func (f *fakeEmbeddingRepo) SearchNearest(_ context.Context, _ domain.Partition, _ domain.Vector, topK int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTopK = topK
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}
	if len(f.nearest) > topK {
		return f.nearest[:topK], nil
	}
	return f.nearest, nil
}

func (f *fakeEmbeddingRepo) FetchCombinedVectors(_ context.Context, ids []string) ([]IDVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, append([]string(nil), ids...))
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]IDVector, 0, len(ids))
	for _, id := range ids {
		if emb, ok := f.stored[id]; ok {
			out = append(out, NewIDVector(id, emb.Combined))
		}
	}
	return out, nil
}

type fakeTextIndex struct {
	mu       sync.Mutex
	j        *journal
	docs     map[string]string
	result   []string
	err      error
	lastSize int
}

func newFakeTextIndex(j *journal) *fakeTextIndex {
	return &fakeTextIndex{j: j, docs: map[string]string{}}
}

func (f *fakeTextIndex) Index(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id] = name
	f.j.add("index:" + id)
	return nil
}

func (f *fakeTextIndex) Search(_ context.Context, query string, size int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSize = size
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	var out []string
	for id, name := range f.docs {
		if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// fakeCache повторяет семантику Redis-кэша: заполнение через SETNX, удаление оставляет метку.
type fakeCache struct {
	mu         sync.Mutex
	products   map[string]ProductInfo
	tombstones map[string]bool
	getErr     error
	deleted    []string
	fills      int
}

func newFakeCache() *fakeCache {
	return &fakeCache{products: map[string]ProductInfo{}, tombstones: map[string]bool{}}
}

func (f *fakeCache) GetProducts(_ context.Context, ids []string) (map[string]ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[string]ProductInfo)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeCache) FillProducts(_ context.Context, products []ProductInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fills++
	for _, p := range products {
		if _, ok := f.products[p.ID]; ok || f.tombstones[p.ID] {
			continue
		}
		f.products[p.ID] = p
	}
	return nil
}

func (f *fakeCache) DeleteProducts(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.products, id)
		f.tombstones[id] = true
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

// fakeEngine возвращает заранее заданные векторы; изображение "garbage" не декодируется.
type fakeEngine struct {
	mu       sync.Mutex
	text     map[string]domain.Vector
	image    map[string]domain.Vector
	fallback domain.Vector
	err      error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		text:     map[string]domain.Vector{},
		image:    map[string]domain.Vector{},
		fallback: domain.Vector{1, 2, 3, 4},
	}
}

func (f *fakeEngine) EmbedImage(_ context.Context, image []byte) (domain.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if string(image) == "garbage" {
		return nil, e.Wrap("fakeEngine.EmbedImage", e.ErrDecode)
	}
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.image[string(image)]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEngine) EmbedText(_ context.Context, text string) (domain.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.text[text]; ok {
		return v, nil
	}
	return domain.Vector{4, 3, 2, 1}, nil
}

// fakeImages отдаёт URL как байты изображения
type fakeImages struct {
	fetchErr error
	storeErr error
}

func (f *fakeImages) FetchImage(_ context.Context, imageURL string) (*FetchedImage, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &FetchedImage{Data: []byte(imageURL), ContentType: "image/jpeg"}, nil
}

func (f *fakeImages) StoreImage(_ context.Context, productID string, _ *FetchedImage) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	return fmt.Sprintf("http://minio:9000/product-images/images/%s.jpg", productID), nil
}

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}
