package vk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkdl/pkg/config"
	errs "vkdl/pkg/errors"
)

func newTestClient() *Client {
	cfg := config.DefaultConfig()
	return NewClient(&cfg.HTTP, nil)
}

func TestFetchAlbumChunkSendsPaginationForm(t *testing.T) {
	var gotMethod, gotContentType, gotRequestedWith, gotReferer string
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotRequestedWith = r.Header.Get("X-Requested-With")
		gotReferer = r.Header.Get("Referer")

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"al":     r.PostFormValue("al"),
			"offset": r.PostFormValue("offset"),
			"part":   r.PostFormValue("part"),
			"rev":    r.PostFormValue("rev"),
		}

		w.Write([]byte(`<!--{"payload":[0,[]]}-->`))
	}))
	defer server.Close()

	client := newTestClient()
	client.SetReferer(server.URL + "/album-1_2")

	body, err := client.FetchAlbumChunk(context.Background(), server.URL, 40, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "XMLHttpRequest", gotRequestedWith)
	assert.Equal(t, server.URL+"/album-1_2", gotReferer)
	assert.Equal(t, map[string]string{
		"al":     "1",
		"offset": "40",
		"part":   "1",
		"rev":    "1",
	}, gotForm)
	assert.Equal(t, `<!--{"payload":[0,[]]}-->`, body)
}

func TestFetchAlbumChunkServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient()
	_, err := client.FetchAlbumChunk(context.Background(), server.URL, 0, 5*time.Second)
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeServerError, typed.Type)
	assert.Equal(t, http.StatusInternalServerError, typed.Code)
	assert.True(t, errs.IsRetryable(typed.Type))
}

func TestFetchResource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("Accept"))
		w.Write([]byte("image bytes"))
	}))
	defer server.Close()

	client := newTestClient()
	data, err := client.FetchResource(context.Background(), server.URL+"/img.jpg", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)
}

func TestFetchResourceFollowsRedirect(t *testing.T) {
	var mux http.ServeMux
	server := httptest.NewServer(&mux)
	defer server.Close()

	mux.HandleFunc("/img.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/real.jpg", http.StatusFound)
	})
	mux.HandleFunc("/real.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirected bytes"))
	})

	client := newTestClient()
	data, err := client.FetchResource(context.Background(), server.URL+"/img.jpg", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("redirected bytes"), data)
}

func TestFetchResourceRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient()
	_, err := client.FetchResource(context.Background(), server.URL, 5*time.Second)
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeRateLimit, typed.Type)
}

func TestFetchResourceNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := newTestClient()
	_, err := client.FetchResource(context.Background(), server.URL, time.Second)
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.True(t, errs.IsRetryable(typed.Type))
}
