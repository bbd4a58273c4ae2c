package vk

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	errs "vkdl/pkg/errors"
)

var urlRefPattern = regexp.MustCompile(`url\((.*?)\)`)

// ExtractChunkURLs parses one pagination response body and returns every
// url(...) reference found in the first markup fragment that carries a
// background-image marker. The body may be wrapped in an HTML comment
// delimiter. A body that does not decode as the expected structure
// yields a parsing error; callers treat that page as empty.
func ExtractChunkURLs(body string) ([]string, error) {
	raw := strings.TrimSpace(body)
	if strings.HasPrefix(raw, "<!--") && strings.HasSuffix(raw, "-->") {
		raw = strings.TrimSpace(raw[4 : len(raw)-3])
	}

	var chunk struct {
		Payload []json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("payload not parseable: %v", err),
		}
	}

	if len(chunk.Payload) < 2 {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(chunk.Payload[1], &items); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("unexpected payload shape: %v", err),
		}
	}

	// The markup blob sits among mixed-type elements; take the first
	// string that carries the image marker
	var markup string
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil && strings.Contains(s, "background-image") {
			markup = s
			break
		}
	}

	matches := urlRefPattern.FindAllStringSubmatch(markup, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		urls = append(urls, m[1])
	}
	return urls, nil
}

// NormalizeResourceURL unescapes backslash-escaped slashes and strips
// the known trailing size suffix
func NormalizeResourceURL(raw, suffix string) string {
	u := strings.ReplaceAll(raw, `\/`, "/")
	return strings.TrimSuffix(u, suffix)
}
