package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/NaggiDev/practical-rag-sub000/internal/config"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

const (
	OpenAIProviderVersion = "openai-compatible"
	openAIMaxInputTokens  = 8191
	openAIHTTPTimeout     = 30 * time.Second
)

type openAIProvider struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	modelName  string
	dimensions int
}

type openAIEmbedRequest struct {
	Input          interface{} `json:"input"`
	Model          string      `json:"model"`
	EncodingFormat string      `json:"encoding_format"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func init() {
	RegisterModel(ModelMetadata{
		Name:       "OpenAI Compatible",
		Version:    OpenAIProviderVersion,
		Dimensions: 1536,
		Default:    true,
	}, newOpenAIProvider)
}

func newOpenAIProvider() (Provider, error) {
	cfg := config.Get()

	if cfg.EmbeddingAPIKey == "" {
		return nil, fmt.Errorf("embedding_api_key is required for the %s provider", OpenAIProviderVersion)
	}

	baseURL := cfg.EmbeddingBaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	modelName := cfg.EmbeddingModel
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = 1536
	}

	return &openAIProvider{
		client:     &http.Client{Timeout: openAIHTTPTimeout},
		baseURL:    baseURL,
		apiKey:     cfg.EmbeddingAPIKey,
		modelName:  modelName,
		dimensions: dimensions,
	}, nil
}

func (m *openAIProvider) Name() string   { return "OpenAI Compatible" }
func (m *openAIProvider) Dimensions() int { return m.dimensions }

func (m *openAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, m.dimensions), nil
	}
	truncated := truncate(text, openAIMaxInputTokens)
	log.Debug().Int("estimatedTokens", estimateTokens(truncated)).Msg("embedding: single text encoded")
	results, err := m.embedRequest(ctx, truncated)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("embedding API returned no results for model %s", m.modelName)
	}
	return results[0], nil
}

func (m *openAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncate(t, openAIMaxInputTokens)
	}

	results, err := m.embedRequest(ctx, truncated)
	if err != nil {
		return nil, err
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d results for %d inputs (model=%s)",
			len(results), len(texts), m.modelName)
	}
	return results, nil
}

func (m *openAIProvider) embedRequest(ctx context.Context, input interface{}) ([][]float32, error) {
	reqBody := openAIEmbedRequest{
		Input:          input,
		Model:          m.modelName,
		EncodingFormat: "float",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send embedding request to %s: %w", m.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodySnippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding API error (model=%s, status=%d): %s",
			m.modelName, resp.StatusCode, strings.TrimSpace(string(bodySnippet)))
	}

	var embedResp openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode embedding response from %s: %w", m.baseURL, err)
	}

	sort.Slice(embedResp.Data, func(i, j int) bool {
		return embedResp.Data[i].Index < embedResp.Data[j].Index
	})

	results := make([][]float32, len(embedResp.Data))
	for i, d := range embedResp.Data {
		results[i] = d.Embedding
	}
	return results, nil
}

func (m *openAIProvider) Health(ctx context.Context) models.HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/models", nil)
	if err != nil {
		return models.HealthUnhealthy
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return models.HealthUnhealthy
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return models.HealthUnhealthy
	}
	if resp.StatusCode >= 400 {
		return models.HealthDegraded
	}
	return models.HealthHealthy
}

var _ Provider = (*openAIProvider)(nil)
