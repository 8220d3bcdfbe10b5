// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/paperscout/pkg/types"
)

// Registry resolves configured model ids to providers. Providers are
// constructed on first lookup and reused afterwards.
type Registry struct {
	cfg    types.EmbeddingConfig
	client *http.Client

	mu        sync.Mutex
	specs     map[string]types.ModelSpec
	providers map[string]Provider
}

// NewRegistry validates the configured models. When cfg.Models is empty
// the default model set is used.
func NewRegistry(cfg types.EmbeddingConfig, hc *http.Client) (*Registry, error) {
	if hc == nil {
		hc = &http.Client{}
	}
	models := cfg.Models
	if len(models) == 0 {
		models = types.DefaultModels()
	}

	r := &Registry{
		cfg:       cfg,
		client:    hc,
		specs:     make(map[string]types.ModelSpec, len(models)),
		providers: make(map[string]Provider),
	}
	for _, spec := range models {
		if spec.ID == "" {
			return nil, errors.New("embedding model with empty id")
		}
		if _, dup := r.specs[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate embedding model %q", spec.ID)
		}
		switch spec.Kind {
		case types.ModelHashing, types.ModelOllama, types.ModelOpenAI:
		default:
			return nil, fmt.Errorf("embedding model %q: unknown kind %q", spec.ID, spec.Kind)
		}
		if spec.Dimensions <= 0 {
			return nil, fmt.Errorf("embedding model %q: dimensions must be positive", spec.ID)
		}
		r.specs[spec.ID] = spec
	}
	return r, nil
}

// Register adds an already constructed provider under its model id,
// replacing any configured model with the same id.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[p.ModelID()] = types.ModelSpec{ID: p.ModelID(), Dimensions: p.Dimensions()}
	r.providers[p.ModelID()] = p
}

// Has reports whether id names a configured model.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.specs[id]
	return ok
}

// Models returns the configured model specs sorted by id.
func (r *Registry) Models() []types.ModelSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ModelSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the provider for id, or ErrUnknownModel.
func (r *Registry) Lookup(id string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[id]; ok {
		return p, nil
	}
	spec, ok := r.specs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}

	var p Provider
	switch spec.Kind {
	case types.ModelHashing:
		p = NewHashingProvider(spec.ID, spec.Dimensions)
	case types.ModelOllama:
		baseURL := r.cfg.OllamaURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		p = NewOllamaProvider(
			WithBaseURL(baseURL),
			WithModel(spec.Name),
			WithDimensions(spec.Dimensions),
			WithHTTPClient(r.client),
		)
	case types.ModelOpenAI:
		p = &OpenAIProvider{
			BaseURL:    r.cfg.OpenAIURL,
			Model:      spec.Name,
			APIKey:     r.cfg.OpenAIAPIKey,
			Dims:       spec.Dimensions,
			HTTPClient: r.client,
		}
	}
	p = WithCallTimeout(p, r.cfg.Timeout)
	r.providers[id] = p
	return p, nil
}

// Check verifies that a model is ready to serve. Only backends that can
// list their models (Ollama) are checked; the rest are assumed ready.
func (r *Registry) Check(ctx context.Context, id string) error {
	p, err := r.Lookup(id)
	if err != nil {
		return err
	}
	if t, ok := p.(*timedProvider); ok {
		p = t.Provider
	}
	o, ok := p.(*OllamaProvider)
	if !ok {
		return nil
	}
	has, err := o.HasModel(ctx)
	if err != nil {
		return err
	}
	if !has {
		return unavailable(id, fmt.Errorf("model %q is not pulled", o.model))
	}
	return nil
}

// timedProvider bounds every Embed call by a fixed timeout.
type timedProvider struct {
	Provider
	timeout time.Duration
}

// WithCallTimeout wraps p so each Embed call runs under timeout. Running
// out of time is reported as ErrModelUnavailable; cancellation of the
// caller's context is returned as-is. A non-positive timeout returns p.
func WithCallTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &timedProvider{Provider: p, timeout: timeout}
}

func (t *timedProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	vec, err := t.Provider.Embed(callCtx, text)
	if err == nil {
		return vec, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if callCtx.Err() != nil && !errors.Is(err, ErrModelUnavailable) {
		return nil, unavailable(t.ModelID(), fmt.Errorf("timed out after %s: %w", t.timeout, err))
	}
	return nil, err
}
