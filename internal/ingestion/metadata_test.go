package ingestion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_JSONMarshaling(t *testing.T) {
	metadata := &Metadata{
		Title:     "Resume",
		PageCount: 2,
		SizeBytes: 4096,
		Timestamp: "2024-01-01T00:00:00Z",
		Hash:      "abcd1234",
	}

	jsonBytes, err := metadata.ToJSON()
	require.NoError(t, err)

	var unmarshaled Metadata
	err = json.Unmarshal(jsonBytes, &unmarshaled)
	require.NoError(t, err)
	assert.Equal(t, *metadata, unmarshaled)
	assert.Contains(t, string(jsonBytes), `"page_count": 2`)
	assert.NotContains(t, string(jsonBytes), `"author"`)
}

func TestComputeHash(t *testing.T) {
	h1 := computeHash([]byte("test content"))
	h2 := computeHash([]byte("different content"))

	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, computeHash([]byte("test content")))
}

func TestNewMetadata(t *testing.T) {
	data := []byte("%PDF-1.4 bytes")
	m := NewMetadata(data)

	assert.Equal(t, len(data), m.SizeBytes)
	assert.Equal(t, computeHash(data), m.Hash)

	_, err := time.Parse(time.RFC3339, m.Timestamp)
	assert.NoError(t, err)
}
