package http

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DRSN-tech/product-search/internal/cfg"
	"github.com/stretchr/testify/require"
)

func TestServer_StopEndsRunWithoutError(t *testing.T) {
	srv := NewServer(http.NotFoundHandler(), &cfg.HTTPConfig{Port: "0"})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	// даём серверу начать слушать порт
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
