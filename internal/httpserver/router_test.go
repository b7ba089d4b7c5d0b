package httpserver

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"collatz-cache/internal/cache"
	"collatz-cache/internal/handlers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRouter(t *testing.T) {
	store := cache.NewMemoryStore()
	key := cache.BuildSequenceKey(big.NewInt(4)).String()
	require.NoError(t, store.Set(context.Background(), key, []byte("2\n1")))

	srv := httptest.NewServer(NewRouter(zaptest.NewLogger(t), handlers.NewSequenceHandler(store)))
	t.Cleanup(srv.Close)

	tests := []struct {
		path   string
		status int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/v1/sequences/4", http.StatusOK},
		{"/v1/sequences/5", http.StatusNotFound},
		{"/v1/sequences/zero", http.StatusBadRequest},
		{"/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("Content-Type"))
		})
	}
}
