package auth

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCredCachesToken(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	cc := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
		require.NoError(t, cc.SetAuthHeader(req))
		assert.Equal(t, "Bearer token123", req.Header.Get("Authorization"))
	}
	assert.EqualValues(t, 1, hits.Load())

	cc.Invalidate()
	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	require.NoError(t, cc.SetAuthHeader(req))
	assert.EqualValues(t, 2, hits.Load())
}

func TestClientCredError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	cc := NewClientCred(Conf{ClientID: "id", TokenURL: server.URL})
	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	assert.Error(t, cc.SetAuthHeader(req))
}

func TestNew(t *testing.T) {
	a, err := New(Conf{}, "abc")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	require.NoError(t, a.SetAuthHeader(req))
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))

	a, err = New(Conf{ClientID: "id", TokenURL: "http://token"}, "")
	require.NoError(t, err)
	assert.IsType(t, &ClientCred{}, a)

	_, err = New(Conf{}, "")
	assert.Error(t, err)
}
