// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderEmbed(t *testing.T) {
	var gotAuth string
	var got openAIEmbedRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, apiPathOpenAIEmbeddings, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.5,0.5]}],"model":"m"}`)
	}))
	defer ts.Close()

	p := &OpenAIProvider{BaseURL: ts.URL + "/", Model: "m", APIKey: "sk-test", Dims: 2, HTTPClient: ts.Client()}
	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, vec)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, openAIEmbedRequest{Model: "m", Input: "hello"}, got)
	assert.Equal(t, "openai/m", p.ModelID())
}

func TestOpenAIProviderFailures(t *testing.T) {
	p := &OpenAIProvider{Model: "m", Dims: 2}
	_, err := p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrModelUnavailable, "missing key")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer ts.Close()
	p = &OpenAIProvider{BaseURL: ts.URL, Model: "m", APIKey: "k", Dims: 2, HTTPClient: ts.Client()}
	_, err = p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrModelUnavailable, "empty data")

	unauthorized := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer unauthorized.Close()
	p.BaseURL = unauthorized.URL
	p.HTTPClient = unauthorized.Client()
	_, err = p.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrModelUnavailable, "401")
}
