// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperscout/pkg/types"
)

func TestFormatTable(t *testing.T) {
	_, res := sampleResult()
	var buf bytes.Buffer
	FormatTable(res.Corpus, &buf)
	out := buf.String()

	assert.Contains(t, out, "Rank")
	assert.Contains(t, out, "2401.00001")
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "0.920")
	assert.Contains(t, out, "2 of 5 candidates ranked (1 dropped)")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(types.RankedCorpus{}, &buf)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	_, res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(res.Corpus, &buf))

	var decoded types.RankedCorpus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Entries, 2)
}

func TestFormatAuthors(t *testing.T) {
	assert.Equal(t, "", formatAuthors(nil))
	assert.Equal(t, "Ada", formatAuthors([]string{"Ada"}))
	assert.Equal(t, "Ada et al.", formatAuthors([]string{"Ada", "Grace"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate(strings.Repeat("é", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}
