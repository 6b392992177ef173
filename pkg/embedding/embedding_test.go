package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguru-go/internal/config"
)

func TestHashClient_Deterministic(t *testing.T) {
	c := NewHashClient(16)
	a, err := c.CreateEmbedding(context.Background(), "condo Sukhumvit")
	require.NoError(t, err)
	b, err := c.CreateEmbedding(context.Background(), "condo Sukhumvit")
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	for _, v := range a {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}

	other, _ := c.CreateEmbedding(context.Background(), "house Silom")
	assert.NotEqual(t, a, other)
}

func TestHashClient_BlankTextIsZeroVector(t *testing.T) {
	c := NewHashClient(16)
	for _, text := range []string{"", "   \n"} {
		v, err := c.CreateEmbedding(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, make([]float32, 16), v)
	}
}

func TestHashClient_ExtendsBeyondDigest(t *testing.T) {
	c := NewHashClient(40)
	vs, err := c.CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Len(t, vs[0], 40)

	short, _ := NewHashClient(16).CreateEmbedding(context.Background(), "a")
	assert.Equal(t, short, vs[0][:16], "first block is the plain digest")
	assert.Equal(t, 40, c.Dimensions())
}

func TestNewClient_Providers(t *testing.T) {
	c, err := NewClient(config.EmbeddingConfig{Provider: "hash", Dimensions: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, c.Dimensions())

	_, err = NewClient(config.EmbeddingConfig{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewClient(config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}

func TestOpenAIClient_BatchesAndReordersByIndex(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mini", req.Model)

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		// 倒序返回，客户端需按 index 还原
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), 1}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	c, err := NewClient(config.EmbeddingConfig{
		Provider:  "openai",
		BaseURL:   srv.URL,
		APIKey:    "secret",
		Model:     "mini",
		BatchSize: 2,
	})
	require.NoError(t, err)

	vs, err := c.CreateEmbeddings(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, float32(1), vs[0][0])
	assert.Equal(t, float32(2), vs[1][0])
	assert.Equal(t, float32(3), vs[2][0])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIClient_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(config.EmbeddingConfig{Provider: "openai", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)
	_, err = c.CreateEmbedding(context.Background(), "hello")
	assert.Error(t, err)
}
