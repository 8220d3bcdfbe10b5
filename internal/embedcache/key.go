// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Key identifies one cached vector: normalized text under one model.
type Key struct {
	Text  string
	Model string
}

// NewKey normalizes text and pairs it with modelID.
func NewKey(text, modelID string) Key {
	return Key{Text: NormalizeText(text), Model: modelID}
}

// NormalizeText trims, lowercases and collapses internal whitespace, so
// texts differing only in case or spacing share one cache entry.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Digest returns the hex SHA-256 of the normalized text.
func (k Key) Digest() string {
	sum := sha256.Sum256([]byte(k.Text))
	return hex.EncodeToString(sum[:])
}

// encodeVector packs vec as little-endian float64s.
func encodeVector(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeVector unpacks a blob written by encodeVector.
func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 8", len(buf))
	}
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec, nil
}
