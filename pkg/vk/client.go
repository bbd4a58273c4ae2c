package vk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vkdl/pkg/config"
	errs "vkdl/pkg/errors"
	"vkdl/pkg/logger"
)

// Client issues the two kinds of requests the album host understands:
// POST pagination queries against the album URL and plain GETs for the
// image resources. Redirects are followed by the underlying transport.
type Client struct {
	httpClient      *http.Client
	userAgent       string
	apiHeaders      map[string]string
	downloadHeaders map[string]string
	referer         string
	logger          logger.Logger
}

// NewClient creates a client with the configured header sets
func NewClient(cfg *config.HTTPConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient:      &http.Client{},
		userAgent:       cfg.UserAgent,
		apiHeaders:      cfg.APIHeaders,
		downloadHeaders: cfg.DownloadHeaders,
		logger:          log,
	}
}

// SetReferer sets the Referer header sent with every request
func (c *Client) SetReferer(referer string) {
	c.referer = referer
}

// FetchAlbumChunk POSTs one pagination query and returns the raw
// response body. The body may be wrapped in a comment delimiter; the
// parser strips it.
func (c *Client) FetchAlbumChunk(ctx context.Context, albumURL string, offset int, timeout time.Duration) (string, error) {
	form := url.Values{
		"al":     {"1"},
		"offset": {strconv.Itoa(offset)},
		"part":   {"1"},
		"rev":    {"1"},
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, albumURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &errs.Error{
			Type:    errs.ErrorTypeBadInput,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	c.setHeaders(req, c.apiHeaders)

	c.logger.DebugWithFields("fetching album chunk", map[string]interface{}{
		"url":    albumURL,
		"offset": offset,
	})

	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchResource GETs a single image resource and returns its bytes
func (c *Client) FetchResource(ctx context.Context, resourceURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeBadInput,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	c.setHeaders(req, c.downloadHeaders)

	c.logger.DebugWithFields("fetching resource", map[string]interface{}{
		"url": resourceURL,
	})

	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request, headers map[string]string) {
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
}

// do performs the request, classifies transport and status failures,
// and returns the full response body
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		errType := errs.ErrorTypeNetwork
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			errType = errs.ErrorTypeTimeout
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errType,
			Message: fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return body, nil
}

// checkResponseStatus maps non-2xx statuses onto the error taxonomy
func checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &errs.Error{
			Type:    errs.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &errs.Error{
			Type:    errs.ErrorTypeServerError,
			Message: fmt.Sprintf("server returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	default:
		// Any other non-2xx status is treated as transient and left to
		// the retry policy
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}
