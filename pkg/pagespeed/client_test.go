package pagespeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPagespeedParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/runPagespeed", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "https://bondstreetsalon.com", q.Get("url"))
		assert.Equal(t, "performance", q.Get("category"))
		assert.Equal(t, "mobile", q.Get("strategy"))
		assert.Equal(t, "test-key", q.Get("key"))

		_, _ = w.Write([]byte(`{
			"lighthouseResult": {
				"categories": {
					"performance": {"score": 0.82}
				}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.RunPagespeed(context.Background(), "https://bondstreetsalon.com")
	require.NoError(t, err)

	score := resp.LighthouseResult.Categories.Performance.Score
	require.NotNil(t, score)
	assert.Equal(t, 0.82, *score)
}

func TestRunPagespeedOmitsEmptyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasKey := r.URL.Query()["key"]
		assert.False(t, hasKey)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("", WithBaseURL(srv.URL))
	resp, err := client.RunPagespeed(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, resp.LighthouseResult.Categories.Performance.Score)
}

func TestRunPagespeedStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`audit crashed`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.RunPagespeed(context.Background(), "https://example.com")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.HTTPStatus())
}
