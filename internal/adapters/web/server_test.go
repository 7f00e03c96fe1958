package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/adapters/web"
	"go.trai.ch/bindle/internal/core/domain"
	"go.trai.ch/zerr"
)

type stubReader struct {
	lastID   string
	lastMain bool
	err      error
}

func (r *stubReader) ReadAsset(_ context.Context, id string, isMain bool) (*domain.Asset, error) {
	r.lastID = id
	r.lastMain = isMain
	if r.err != nil {
		return nil, r.err
	}
	return &domain.Asset{
		Content:      []byte("require.define(\"" + id + "\", [], function (require, module, exports) {});\n"),
		ContentType:  domain.ContentType(id),
		ETag:         "0123456789abcdef",
		LastModified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func newServer(t *testing.T, reader web.AssetReader) *web.Server {
	t.Helper()
	log := logger.New()
	log.SetOutput(io.Discard)
	return web.NewServer(reader, log)
}

func TestServeAsset(t *testing.T) {
	reader := &stubReader{}
	s := newServer(t, reader)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/yen/1.2.4/index.js", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "yen/1.2.4/index.js", reader.lastID)
	assert.False(t, reader.lastMain)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))
	assert.Equal(t, "max-age=0, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, `"0123456789abcdef"`, resp.Header.Get("ETag"))
	assert.NotEmpty(t, resp.Header.Get("Last-Modified"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `require.define("yen/1.2.4/index.js"`)
}

func TestServeMainFlag(t *testing.T) {
	reader := &stubReader{}
	s := newServer(t, reader)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/app.js?main=1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, reader.lastMain)
}

func TestNotModified(t *testing.T) {
	reader := &stubReader{}
	s := newServer(t, reader)

	req := httptest.NewRequest(http.MethodGet, "/yen/1.2.4/index.js", nil)
	req.Header.Set("If-None-Match", `"0123456789abcdef"`)

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Equal(t, `"0123456789abcdef"`, resp.Header.Get("ETag"))
}

func TestNotFound(t *testing.T) {
	reader := &stubReader{err: zerr.With(domain.Mark(domain.ErrModuleNotFound, nil), "id", "gone.js")}
	s := newServer(t, reader)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/gone.js", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "asset not found")
}

func TestInternalError(t *testing.T) {
	reader := &stubReader{err: zerr.New("compile blew up")}
	s := newServer(t, reader)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/app.js", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	// Internals never leak into the response body.
	assert.NotContains(t, string(body), "blew up")
}
