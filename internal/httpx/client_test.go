package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/cloudflare-cli/internal/dispatch"
)

func TestExecute_Success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/client/v4/zones", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "cloudflare-cli/test", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"example.com"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"result":{"id":"z1"}}`))
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	c := NewClient(ClientOptions{
		UserAgent: "cloudflare-cli/test",
		Logger:    slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	resp, err := c.Execute(context.Background(), &dispatch.BoundRequest{
		Method: http.MethodPost,
		URL:    srv.URL + "/client/v4/zones",
		Header: http.Header{"Authorization": {"Bearer tok"}, "Content-Type": {"application/json"}},
		Body:   []byte(`{"name":"example.com"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"success":true,"result":{"id":"z1"}}`, string(resp.Body))

	out := logs.String()
	assert.Contains(t, out, `"request_id"`)
	assert.Contains(t, out, "<redacted>")
	assert.NotContains(t, out, "Bearer tok")
}

func TestExecute_NonSuccessKeepsBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":9109,"message":"Invalid access token"}]}`))
	}))
	t.Cleanup(srv.Close)

	resp, err := NewClient(ClientOptions{}).Execute(context.Background(), &dispatch.BoundRequest{
		Method: http.MethodGet,
		URL:    srv.URL,
		Header: http.Header{},
	})
	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, HTTPStatus, te.Kind)
	assert.Equal(t, http.StatusForbidden, te.Status)
	assert.Contains(t, string(te.Body), "Invalid access token")
	require.NotNil(t, resp)
	assert.False(t, resp.OK())
	assert.Equal(t, "HTTP 403 Forbidden", err.Error())
}

func TestExecute_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(ClientOptions{Timeout: 50 * time.Millisecond}).Execute(context.Background(), &dispatch.BoundRequest{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, Timeout, te.Kind)
}

func TestExecute_ConnectFailure(t *testing.T) {
	t.Parallel()
	_, err := NewClient(ClientOptions{Timeout: time.Second}).Execute(context.Background(), &dispatch.BoundRequest{
		Method: http.MethodGet,
		URL:    "http://127.0.0.1:1/zones",
	})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, Connect, te.Kind)
	assert.True(t, strings.HasPrefix(err.Error(), "connect:"))
}

func TestExecute_Canceled(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewClient(ClientOptions{}).Execute(ctx, &dispatch.BoundRequest{Method: http.MethodGet, URL: srv.URL})
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, Canceled, te.Kind)
}

func TestRedactHeaders(t *testing.T) {
	t.Parallel()
	got := redactHeaders(http.Header{
		"Authorization": {"Bearer x"},
		"X-Auth-Key":    {"k"},
		"Accept":        {"application/json"},
	})
	assert.Equal(t, "<redacted>", got["Authorization"])
	assert.Equal(t, "<redacted>", got["X-Auth-Key"])
	assert.Equal(t, "application/json", got["Accept"])
}
