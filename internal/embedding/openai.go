// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOpenAIURL is the hosted embeddings API base.
const DefaultOpenAIURL = "https://api.openai.com"

const apiPathOpenAIEmbeddings = "/v1/embeddings"

// OpenAIProvider generates embeddings through an OpenAI-compatible
// /v1/embeddings endpoint.
type OpenAIProvider struct {
	BaseURL    string
	Model      string
	APIKey     string
	Dims       int
	HTTPClient *http.Client
}

// Embed generates an embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if p.APIKey == "" {
		return nil, unavailable(p.ModelID(), errors.New("no API key configured"))
	}

	body, err := json.Marshal(openAIEmbedRequest{Model: p.Model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	base := strings.TrimSuffix(p.BaseURL, "/")
	if base == "" {
		base = DefaultOpenAIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+apiPathOpenAIEmbeddings, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	var result openAIEmbedResponse
	if err := sendJSON(ctx, p.client(), req, p.ModelID(), &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, unavailable(p.ModelID(), errors.New("response contains no embeddings"))
	}
	vec := result.Data[0].Embedding
	if err := checkVector(p.ModelID(), vec, p.Dims); err != nil {
		return nil, err
	}
	return vec, nil
}

// ModelID returns "openai/<model>".
func (p *OpenAIProvider) ModelID() string { return "openai/" + p.Model }

// Dimensions returns the expected vector dimensions.
func (p *OpenAIProvider) Dimensions() int { return p.Dims }

func (p *OpenAIProvider) client() *http.Client {
	if p.HTTPClient == nil {
		return http.DefaultClient
	}
	return p.HTTPClient
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}
