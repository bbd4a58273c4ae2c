package vk

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "vkdl/pkg/errors"
)

const sizeSuffix = "&from=bu&cs=240x0"

// chunkBody builds a pagination response body in the shape the album
// host returns: a JSON object with a payload array whose second element
// holds the markup blob
func chunkBody(urls ...string) string {
	markup := ""
	for _, u := range urls {
		markup += fmt.Sprintf(`<div style="background-image: url(%s)"></div>`, u)
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"payload": []interface{}{0, []interface{}{markup}},
	})
	return string(payload)
}

func TestExtractChunkURLs(t *testing.T) {
	body := chunkBody(
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
	)

	urls, err := ExtractChunkURLs(body)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/a.jpg",
		"https://example.com/b.jpg",
	}, urls)
}

func TestExtractChunkURLsStripsCommentWrapper(t *testing.T) {
	body := "<!--" + chunkBody("https://example.com/a.jpg") + "-->"

	urls, err := ExtractChunkURLs(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.jpg"}, urls)
}

func TestExtractChunkURLsUnparseableBody(t *testing.T) {
	urls, err := ExtractChunkURLs("<html>definitely not json</html>")
	require.Error(t, err)
	assert.Nil(t, urls)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeParsing, typed.Type)
	assert.False(t, errs.IsRetryable(typed.Type))
}

func TestExtractChunkURLsShortPayload(t *testing.T) {
	urls, err := ExtractChunkURLs(`{"payload": []}`)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestExtractChunkURLsNoImageMarker(t *testing.T) {
	payload, _ := json.Marshal(map[string]interface{}{
		"payload": []interface{}{0, []interface{}{"<div>no images here</div>", 12}},
	})

	urls, err := ExtractChunkURLs(string(payload))
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestExtractChunkURLsSkipsNonStringElements(t *testing.T) {
	markup := `<div style="background-image: url(https://example.com/a.jpg)"></div>`
	payload, _ := json.Marshal(map[string]interface{}{
		"payload": []interface{}{0, []interface{}{7, nil, markup}},
	})

	urls, err := ExtractChunkURLs(string(payload))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.jpg"}, urls)
}

func TestNormalizeResourceURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "escaped slashes and size suffix",
			raw:      `https:\/\/example.com\/img.jpg&from=bu&cs=240x0`,
			expected: "https://example.com/img.jpg",
		},
		{
			name:     "already clean",
			raw:      "https://example.com/img.jpg",
			expected: "https://example.com/img.jpg",
		},
		{
			name:     "suffix only stripped at the end",
			raw:      "https://example.com/img.jpg&from=bu&cs=240x0/tail.jpg",
			expected: "https://example.com/img.jpg&from=bu&cs=240x0/tail.jpg",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, NormalizeResourceURL(test.raw, sizeSuffix))
		})
	}
}
