package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	config "github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jimlawless/whereami"
)

// productsMapping: id как keyword, название товара анализируется стандартным анализатором
const productsMapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "product_name": {
        "type": "text",
        "analyzer": "standard",
        "fields": {"keyword": {"type": "keyword", "ignore_above": 256}}
      }
    }
  }
}`

func NewElasticClient(cfg *config.ElasticCfg) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return client, nil
}

// EnsureIndex создаёт текстовый индекс товаров, если его ещё нет.
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, index string) error {
	res, err := client.Indices.Exists([]string{index}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), e.Join("elasticsearch", e.ErrStoreUnavailable, err))
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("unexpected status checking index %s: %s", index, res.Status())
	}

	res, err = client.Indices.Create(
		index,
		client.Indices.Create.WithBody(strings.NewReader(productsMapping)),
		client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), e.Join("elasticsearch", e.ErrStoreUnavailable, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		// параллельный старт другого инстанса мог успеть создать индекс
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("failed to create index %s: %s", index, res.Status())
	}

	return nil
}
