package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	completionsSuffix = "/v1/chat/completions"
	modelsSuffix      = "/v1/models"
)

// NormalizeCompletionsURL maps a configured base URL onto the
// OpenAI-compatible chat completions path
func NormalizeCompletionsURL(baseURL string) string {
	return normalizeV1URL(baseURL, completionsSuffix)
}

// NormalizeModelsURL maps a configured base URL onto the model listing path
func NormalizeModelsURL(baseURL string) string {
	return normalizeV1URL(baseURL, modelsSuffix)
}

func normalizeV1URL(baseURL, suffix string) string {
	switch {
	case strings.HasSuffix(baseURL, suffix):
		return baseURL
	case strings.HasSuffix(baseURL, "/v1"):
		return baseURL + strings.TrimPrefix(suffix, "/v1")
	default:
		return strings.TrimSuffix(baseURL, "/") + suffix
	}
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type completionRequest struct {
	Model         string        `json:"model"`
	Messages      []Message     `json:"messages"`
	Stream        bool          `json:"stream"`
	StreamOptions streamOptions `json:"stream_options"`
}

// NewCompletionRequest builds the streaming POST request for the endpoint
func NewCompletionRequest(ctx context.Context, cfg EndpointConfig, messages []Message) (*http.Request, error) {
	if messages == nil {
		messages = []Message{}
	}
	body, err := json.Marshal(completionRequest{
		Model:         cfg.ModelName,
		Messages:      messages,
		Stream:        true,
		StreamOptions: streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, NormalizeCompletionsURL(cfg.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	setAuthHeaders(req, cfg)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func setAuthHeaders(req *http.Request, cfg EndpointConfig) {
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
}

// ListModels queries the endpoint for the model ids it serves
func ListModels(ctx context.Context, client *http.Client, cfg EndpointConfig) ([]string, error) {
	url := NormalizeModelsURL(cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	setAuthHeaders(req, cfg)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	ids := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
