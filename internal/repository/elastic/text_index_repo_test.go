package elastic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/DRSN-tech/product-search/pkg/clients"
	"github.com/DRSN-tech/product-search/pkg/e"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T, h http.HandlerFunc) *TextIndexRepo {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	esCfg := &cfg.ElasticCfg{Addresses: []string{srv.URL}, IndexName: "products"}
	client, err := clients.NewElasticClient(esCfg)
	require.NoError(t, err)

	return NewTextIndexRepo(client, esCfg)
}

func TestTextIndexRepo_Index(t *testing.T) {
	var (
		path string
		doc  map[string]string
	)
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &doc)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	require.NoError(t, repo.Index(context.Background(), "abc", "Áo thun nam"))
	require.Equal(t, "PUT /products/_doc/abc", path)
	require.Equal(t, map[string]string{"id": "abc", "product_name": "Áo thun nam"}, doc)
}

func TestTextIndexRepo_SearchKeepsHitOrder(t *testing.T) {
	var query map[string]any
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7", r.URL.Query().Get("size"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &query)
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"c"},{"_id":"a"},{"_id":"b"}]}}`)
	})

	ids, err := repo.Search(context.Background(), "áo", 7)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, ids)
	require.Equal(t, map[string]any{"product_name": "áo"}, query["query"].(map[string]any)["match"])
}

func TestTextIndexRepo_SearchShortCircuits(t *testing.T) {
	var calls atomic.Int32
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	ids, err := repo.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = repo.Search(context.Background(), "shirt", 0)
	require.NoError(t, err)
	require.Empty(t, ids)

	require.Zero(t, calls.Load())
}

func TestTextIndexRepo_SearchServerError(t *testing.T) {
	repo := newRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"unavailable"}`)
	})

	_, err := repo.Search(context.Background(), "shirt", 5)
	require.ErrorIs(t, err, e.ErrStoreUnavailable)
}
