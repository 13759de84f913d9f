package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/jimlawless/whereami"
)

// TextIndexRepo лексический индекс названий товаров в Elasticsearch.
type TextIndexRepo struct {
	client *elasticsearch.Client
	cfg    *cfg.ElasticCfg
}

func NewTextIndexRepo(client *elasticsearch.Client, cfg *cfg.ElasticCfg) *TextIndexRepo {
	return &TextIndexRepo{
		client: client,
		cfg:    cfg,
	}
}

type document struct {
	ID          string `json:"id"`
	ProductName string `json:"product_name"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Index добавляет или заменяет документ товара; _id совпадает с ID товара.
func (r *TextIndexRepo) Index(ctx context.Context, id, name string) error {
	body, err := json.Marshal(document{ID: id, ProductName: name})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	res, err := r.client.Index(
		r.cfg.IndexName,
		bytes.NewReader(body),
		r.client.Index.WithDocumentID(id),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), e.Join(id, e.ErrStoreUnavailable, err))
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search возвращает ID товаров в порядке релевантности match-запроса по названию.
func (r *TextIndexRepo) Search(ctx context.Context, query string, size int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" || size <= 0 {
		return []string{}, nil
	}

	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"product_name": query,
			},
		},
		"_source": false,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.cfg.IndexName),
		r.client.Search.WithBody(bytes.NewReader(body)),
		r.client.Search.WithSize(size),
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.Join("search", e.ErrStoreUnavailable, err))
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}

	return ids, nil
}

func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	err := fmt.Errorf("elasticsearch %s: %s", res.Status(), msg)
	if res.StatusCode >= 500 {
		return e.Join("elasticsearch", e.ErrStoreUnavailable, err)
	}
	return err
}
