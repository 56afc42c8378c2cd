package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsPayload(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"test"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api?q=")
	payload, err := c.Fetch(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"test"}`, string(payload))
	assert.Equal(t, "/api?q=9876543210", gotPath)
}

func TestFetchEscapesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api?q=")
	_, err := c.Fetch(context.Background(), "user+tag@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user+tag@example.com", gotQuery)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api?q=")
	_, err := c.Fetch(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api?q=")
	_, err := c.Fetch(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL + "/api?q=")
	_, err := c.Fetch(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
