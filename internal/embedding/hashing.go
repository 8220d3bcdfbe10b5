// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	// HashingModelID identifies the builtin model.
	HashingModelID = "hashing-v1"

	// HashingDimensions is the default bucket count.
	HashingDimensions = 512
)

// HashingProvider embeds text by feature hashing lowercased word unigrams
// and bigrams into a fixed number of buckets. It needs no network and is
// deterministic, so equal text always maps to the same vector.
type HashingProvider struct {
	id   string
	dims int
}

// NewHashingProvider returns a hashing model with the given id and width.
// A non-positive width falls back to HashingDimensions.
func NewHashingProvider(id string, dims int) *HashingProvider {
	if id == "" {
		id = HashingModelID
	}
	if dims <= 0 {
		dims = HashingDimensions
	}
	return &HashingProvider{id: id, dims: dims}
}

// Embed returns the L2-normalized hashed feature vector of text. Text
// without word characters maps to the zero vector.
func (p *HashingProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, p.dims)
	words := tokenize(text)
	for i, w := range words {
		p.add(vec, w)
		if i > 0 {
			p.add(vec, words[i-1]+" "+w)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// add hashes feature into a bucket. The top hash bit picks the sign so
// collisions tend to cancel rather than accumulate.
func (p *HashingProvider) add(vec []float64, feature string) {
	h := fnv.New32a()
	h.Write([]byte(feature))
	sum := h.Sum32()
	bucket := int(sum % uint32(p.dims))
	if sum&(1<<31) != 0 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

// ModelID returns the model identifier.
func (p *HashingProvider) ModelID() string { return p.id }

// Dimensions returns the bucket count.
func (p *HashingProvider) Dimensions() int { return p.dims }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
