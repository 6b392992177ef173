package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propguru-go/internal/config"
)

func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			payload, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{{"delta": map[string]string{"content": c}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestGenerate_CollectsStream(t *testing.T) {
	srv := sseServer(t, "สวัสดี", "ครับ")
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
	text, err := c.Generate(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "สวัสดีครับ", text)
}

type recordingWriter struct {
	chunks []string
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func TestStreamChatMessages_WritesEachChunk(t *testing.T) {
	srv := sseServer(t, "a", "b", "c")
	defer srv.Close()

	w := &recordingWriter{}
	c := NewClient(config.LLMConfig{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, c.StreamChatMessages(context.Background(), nil, nil, w))
	assert.Equal(t, []string{"a", "b", "c"}, w.chunks)
}

func TestGenerate_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(config.LLMConfig{BaseURL: srv.URL}).Generate(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "429")
}
