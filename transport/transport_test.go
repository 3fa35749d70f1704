package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmkit-go/llmkit/llmkiterr"
)

func TestPostJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ping", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	c.SetHeader("Authorization", "Bearer secret")

	var result struct {
		OK bool `json:"ok"`
	}
	err := c.PostJSON(t.Context(), "/v1/ping", map[string]string{"hello": "world"}, &result)

	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestDoJSONMapsHTTPErrorsToProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`rate limited`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	var result struct{}
	err := c.DoJSON(t.Context(), Request{Method: http.MethodGet, Path: "/x"}, &result)

	require.Error(t, err)
	assert.True(t, llmkiterr.IsProvider(err))
}

func TestDoStreamReturnsLiveBodyForSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("line one\nline two\n"))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	resp, err := c.DoStream(t.Context(), Request{Method: http.MethodGet, Path: "/stream"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetBaseURLOverridesConfiguredBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: "http://unused.invalid"})
	c.SetBaseURL(srv.URL)

	var result struct{}
	err := c.GetJSON(t.Context(), "/ok", &result)
	require.NoError(t, err)
}
