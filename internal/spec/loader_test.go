package spec

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSpecError(t *testing.T, err error, codes ...ErrorCode) *SpecError {
	t.Helper()
	var se *SpecError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, codes, se.Code)
	return se
}

func TestLoad_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "  ")
	requireSpecError(t, err, InputError)
}

func TestLoad_BlocksFileURL(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "file:///etc/hosts")
	requireSpecError(t, err, InputError)
}

func TestLoad_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "ftp://example.com/spec.yaml")
	requireSpecError(t, err, InputError)
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	// Unused port to provoke a quick network failure.
	url := "http://127.0.0.1:1/openapi.yaml"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Load(ctx, url, WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(10*time.Millisecond))
	requireSpecError(t, err, NetworkError)
}

// countingServer answers the first failures requests with status and then
// serves sampleSpec.
func countingServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, "nope")
			return
		}
		_, _ = io.WriteString(w, sampleSpec)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLoad_RetriesTransientFailures(t *testing.T) {
	t.Parallel()
	srv, hits := countingServer(t, 2, http.StatusServiceUnavailable)
	doc, err := Load(context.Background(), srv.URL+"/openapi.yaml", WithMaxRetries(2), WithBackoffBase(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "Sample API", doc.T.Info.Title)
	assert.Equal(t, srv.URL+"/openapi.yaml", doc.Location)
	assert.Equal(t, int32(3), hits.Load())

	srv, hits = countingServer(t, 2, http.StatusTooManyRequests)
	_, err = Load(context.Background(), srv.URL+"/openapi.yaml", WithMaxRetries(1), WithBackoffBase(time.Millisecond))
	se := requireSpecError(t, err, NetworkError)
	assert.Contains(t, se.Message, "transient http error 429")
	assert.Equal(t, int32(2), hits.Load())

	srv, hits = countingServer(t, 1, http.StatusServiceUnavailable)
	_, err = Load(context.Background(), srv.URL+"/openapi.yaml", WithMaxRetries(0))
	requireSpecError(t, err, NetworkError)
	assert.Equal(t, int32(1), hits.Load(), "zero retries means a single attempt")
}

func TestLoad_ClientErrorsAreNotRetried(t *testing.T) {
	t.Parallel()
	srv, hits := countingServer(t, 5, http.StatusNotFound)
	_, err := Load(context.Background(), srv.URL+"/openapi.yaml", WithMaxRetries(3), WithBackoffBase(time.Millisecond))
	se := requireSpecError(t, err, NetworkError)
	assert.Contains(t, se.Message, "http 404: nope")
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoad_FetchTimeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := Load(context.Background(), srv.URL, WithHTTPTimeout(50*time.Millisecond), WithMaxRetries(0))
	requireSpecError(t, err, NetworkError)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLoad_V3_KeepsRawBytes(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSpec), 0o600))

	doc, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, doc.T)
	assert.Equal(t, "Sample API", doc.T.Info.Title)
	assert.Equal(t, sampleSpec, string(doc.Raw), "raw bytes preserved")
	assert.Equal(t, path, doc.Location)
}

func TestLoad_V3_StrictValidation(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := strings.TrimSpace(`openapi: 3.0.0
info:
  title: Bad
  version: "1.0.0"
paths:
  "/zone":
    get:
      responses: {}
`) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Permissive by default.
	_, err := Load(context.Background(), path)
	require.NoError(t, err)

	_, err = Load(context.Background(), path, WithStrict(true))
	se := requireSpecError(t, err, ValidationError, ParseError) // parser version differences
	assert.NotEmpty(t, se.Location)
}

func TestLoad_UnknownVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("info: {}\n"), 0o600))
	_, err := Load(context.Background(), path)
	requireSpecError(t, err, ParseError)
}

func TestLoad_V2_Conversion_Success(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "swagger.yaml")
	content := strings.TrimSpace(`swagger: "2.0"
info:
  title: Sample
  version: "1.0.0"
paths:
  "/hello":
    get:
      responses:
        "200":
          description: ok
`) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.T.OpenAPI, "3."), doc.T.OpenAPI)
}
