package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/llm"
	"github.com/BaSui01/docflow/types"
)

// Embedder generates one embedding vector per input text. llm.Provider
// satisfies this.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

var _ Embedder = (llm.Provider)(nil)

// QdrantConfig configures the Qdrant-backed retriever.
//
// Chunk text and source metadata live in the point payload; the payload
// field names are configurable to match existing collections.
type QdrantConfig struct {
	Host       string        `json:"host"`
	Port       int           `json:"port"`
	BaseURL    string        `json:"base_url,omitempty"`
	APIKey     string        `json:"api_key,omitempty"`
	Collection string        `json:"collection"`
	Timeout    time.Duration `json:"timeout,omitempty"`

	PayloadTextField     string `json:"payload_text_field"`     // default "text"
	PayloadDocumentField string `json:"payload_document_field"` // default "document_id"
	PayloadPageField     string `json:"payload_page_field"`     // default "page_number"
	PayloadChunkField    string `json:"payload_chunk_field"`    // default "chunk_id"
}

// QdrantRetriever implements Retriever against Qdrant's REST API, embedding
// queries through the configured Embedder.
type QdrantRetriever struct {
	cfg      QdrantConfig
	embedder Embedder
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
}

// NewQdrantRetriever creates a Qdrant-backed retriever.
func NewQdrantRetriever(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) *QdrantRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PayloadTextField == "" {
		cfg.PayloadTextField = "text"
	}
	if cfg.PayloadDocumentField == "" {
		cfg.PayloadDocumentField = "document_id"
	}
	if cfg.PayloadPageField == "" {
		cfg.PayloadPageField = "page_number"
	}
	if cfg.PayloadChunkField == "" {
		cfg.PayloadChunkField = "chunk_id"
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	return &QdrantRetriever{
		cfg:      cfg,
		embedder: embedder,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With(zap.String("component", "qdrant_retriever")),
	}
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must,omitempty"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantMatch struct {
	Any []string `json:"any"`
}

// Search implements Retriever.
func (r *QdrantRetriever) Search(ctx context.Context, query string, topK int, filter []string) ([]types.EvidenceFragment, error) {
	if strings.TrimSpace(r.cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if topK <= 0 {
		return []types.EvidenceFragment{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, types.NewError(types.ErrMalformedResponse, "embedder returned no vector for query")
	}

	req := struct {
		Vector      []float64     `json:"vector"`
		Limit       int           `json:"limit"`
		WithPayload bool          `json:"with_payload"`
		Filter      *qdrantFilter `json:"filter,omitempty"`
	}{
		Vector:      vectors[0],
		Limit:       topK,
		WithPayload: true,
	}

	if len(filter) > 0 {
		req.Filter = &qdrantFilter{
			Must: []qdrantCondition{{
				Key:   r.cfg.PayloadDocumentField,
				Match: qdrantMatch{Any: filter},
			}},
		}
	}

	type qdrantResult struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	}
	var resp struct {
		Result []qdrantResult `json:"result"`
		Status string         `json:"status"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(r.cfg.Collection))
	if err := r.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	fragments := make([]types.EvidenceFragment, 0, len(resp.Result))
	for _, result := range resp.Result {
		fragments = append(fragments, r.fragmentFromPayload(result.ID, result.Payload))
	}

	r.logger.Debug("qdrant search completed",
		zap.String("query", query),
		zap.Int("results", len(fragments)))

	return fragments, nil
}

func (r *QdrantRetriever) fragmentFromPayload(pointID any, payload map[string]any) types.EvidenceFragment {
	f := types.EvidenceFragment{PageNumber: types.PageUnknown}

	if payload != nil {
		if v, ok := payload[r.cfg.PayloadTextField].(string); ok {
			f.Text = v
		}
		if v, ok := payload[r.cfg.PayloadDocumentField].(string); ok {
			f.DocumentID = v
		}
		if v, ok := payload[r.cfg.PayloadChunkField].(string); ok {
			f.ChunkID = v
		}
		// JSON numbers decode as float64.
		if v, ok := payload[r.cfg.PayloadPageField].(float64); ok {
			f.PageNumber = int(v)
		}
	}

	f.ID = f.ChunkID
	if f.ID == "" {
		// Fall back to the Qdrant point ID; dedup degrades to the text
		// prefix only when neither is available.
		f.ID = fmt.Sprintf("%v", pointID)
	}

	return f
}

func (r *QdrantRetriever) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(r.cfg.APIKey) != "" {
		// Qdrant convention.
		req.Header.Set("api-key", r.cfg.APIKey)
	}
}

func (r *QdrantRetriever) doJSON(ctx context.Context, method, path string, in, out any) error {
	endpoint := r.baseURL + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	r.applyHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return types.NewError(types.ErrUpstreamUnavailable, "qdrant request failed").
			WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant request failed: method=%s path=%s status=%d body=%s",
			method, path, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
