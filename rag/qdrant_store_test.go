package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedEmbedder struct{ dims int }

func (e fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, e.dims)
		for j := range vec {
			vec[j] = 0.1
		}
		out[i] = vec
	}
	return out, nil
}

func newQdrantTestServer(t *testing.T, handler func(body map[string]any) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "/collections/test_chunks/points/search")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(handler(body)))
	}))
}

func TestQdrantRetriever_Search(t *testing.T) {
	srv := newQdrantTestServer(t, func(body map[string]any) any {
		assert.EqualValues(t, 3, body["limit"])
		return map[string]any{
			"status": "ok",
			"result": []map[string]any{
				{
					"id":    "point-1",
					"score": 0.92,
					"payload": map[string]any{
						"text":        "Relevant chunk text.",
						"document_id": "doc-a",
						"page_number": 4,
						"chunk_id":    "chunk-9",
					},
				},
			},
		}
	})
	defer srv.Close()

	r := NewQdrantRetriever(QdrantConfig{
		BaseURL:    srv.URL,
		Collection: "test_chunks",
	}, fixedEmbedder{dims: 3}, nil)

	fragments, err := r.Search(context.Background(), "query", 3, nil)
	require.NoError(t, err)
	require.Len(t, fragments, 1)

	f := fragments[0]
	assert.Equal(t, "chunk-9", f.ID)
	assert.Equal(t, "Relevant chunk text.", f.Text)
	assert.Equal(t, "doc-a", f.DocumentID)
	assert.Equal(t, 4, f.PageNumber)
}

func TestQdrantRetriever_DocumentFilter(t *testing.T) {
	var gotFilter map[string]any
	srv := newQdrantTestServer(t, func(body map[string]any) any {
		gotFilter, _ = body["filter"].(map[string]any)
		return map[string]any{"status": "ok", "result": []any{}}
	})
	defer srv.Close()

	r := NewQdrantRetriever(QdrantConfig{BaseURL: srv.URL, Collection: "test_chunks"},
		fixedEmbedder{dims: 3}, nil)

	fragments, err := r.Search(context.Background(), "query", 5, []string{"doc-a", "doc-b"})
	require.NoError(t, err)
	assert.Empty(t, fragments)
	require.NotNil(t, gotFilter, "document filter must be forwarded to qdrant")

	must := gotFilter["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, "document_id", cond["key"])
}

func TestQdrantRetriever_MissingPageDefaultsToUnknown(t *testing.T) {
	srv := newQdrantTestServer(t, func(body map[string]any) any {
		return map[string]any{
			"status": "ok",
			"result": []map[string]any{
				{"id": 17, "score": 0.5, "payload": map[string]any{"text": "no page here"}},
			},
		}
	})
	defer srv.Close()

	r := NewQdrantRetriever(QdrantConfig{BaseURL: srv.URL, Collection: "test_chunks"},
		fixedEmbedder{dims: 3}, nil)

	fragments, err := r.Search(context.Background(), "query", 1, nil)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "Unknown", fragments[0].PageLabel())
	// Point ID backfills the fragment ID when the payload has no chunk_id.
	assert.Equal(t, "17", fragments[0].ID)
}

func TestQdrantRetriever_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"collection not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewQdrantRetriever(QdrantConfig{BaseURL: srv.URL, Collection: "test_chunks"},
		fixedEmbedder{dims: 3}, nil)

	_, err := r.Search(context.Background(), "query", 1, nil)
	assert.Error(t, err)
}

func TestQdrantRetriever_ZeroTopK(t *testing.T) {
	r := NewQdrantRetriever(QdrantConfig{Collection: "test_chunks"}, fixedEmbedder{dims: 3}, nil)

	fragments, err := r.Search(context.Background(), "query", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, fragments)
}
