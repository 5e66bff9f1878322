package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrors "github.com/whiteelite/relay/internal/domain/errors"
	"github.com/whiteelite/relay/internal/metrics"
)

func TestDoSendsAuthHeaders(t *testing.T) {
	var got http.Header
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL + "/", APIKey: "key-1", HMACSecret: "s3cret", Metrics: metrics.New()})
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/rpc", Label: "getConfig", Body: map[string]string{"a": "b"}})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	assert.Equal(t, "key-1", got.Get(HeaderAPIKey))
	assert.Equal(t, "1700000000", got.Get(HeaderTimestamp))
	assert.Equal(t, Sign("s3cret", "1700000000", body), got.Get(HeaderHMACSignature))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.JSONEq(t, `{"a":"b"}`, string(body))
}

func TestDoOmitsAuthWhenUnset(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL}).Do(context.Background(), Request{Method: http.MethodGet, Label: "config"})
	require.NoError(t, err)
	assert.Empty(t, got.Get(HeaderAPIKey))
	assert.Empty(t, got.Get(HeaderHMACSignature))
}

func TestDoReturnsNon2xxResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", 300))
	}))
	defer srv.Close()

	resp, err := New(Options{BaseURL: srv.URL}).Do(context.Background(), Request{Method: http.MethodGet, Label: "config"})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Len(t, resp.Snippet(), 259)

	var out map[string]any
	assert.ErrorIs(t, resp.Decode(&out), &relayerrors.Error{Kind: relayerrors.KindRelayUnavailable})
}

func TestDoTransportFailureIsRelayUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Options{BaseURL: url}).Do(context.Background(), Request{Method: http.MethodGet, Label: "config"})
	require.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindRelayUnavailable})
}

func TestDoHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}).Do(context.Background(), Request{Method: http.MethodGet, Label: "config"})
	require.ErrorIs(t, err, &relayerrors.Error{Kind: relayerrors.KindRelayUnavailable})
}

func TestSignIsDeterministic(t *testing.T) {
	a := Sign("secret", "1", []byte(`{"x":1}`))
	assert.Equal(t, a, Sign("secret", "1", []byte(`{"x":1}`)))
	assert.NotEqual(t, a, Sign("secret", "2", []byte(`{"x":1}`)))
	assert.Len(t, a, 64)
}
