package http_test

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/internal/bytesize"
	"github.com/marmos91/dittoio/pkg/handler"
	httphandler "github.com/marmos91/dittoio/pkg/handler/http"
)

func TestStageRead(t *testing.T) {
	var gotUA, gotAuth string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/volumes/a.vtk" {
			nethttp.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "volume data")
	}))
	defer srv.Close()

	mem := memfs.New()
	h := httphandler.New(httphandler.Config{
		UserAgent: "dittoio-test",
		Headers:   map[string]string{"Authorization": "Bearer abc"},
	}, httphandler.WithLocalFS(mem))

	require.NoError(t, h.StageRead(context.Background(), srv.URL+"/volumes/a.vtk", "/cache/a.vtk"))

	got, err := util.ReadFile(mem, "/cache/a.vtk")
	require.NoError(t, err)
	assert.Equal(t, "volume data", string(got))
	assert.Equal(t, "dittoio-test", gotUA)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestStageReadNotFound(t *testing.T) {
	srv := httptest.NewServer(nethttp.NotFoundHandler())
	defer srv.Close()

	mem := memfs.New()
	h := httphandler.New(httphandler.Config{}, httphandler.WithLocalFS(mem))

	err := h.StageRead(context.Background(), srv.URL+"/missing.vtk", "/cache/missing.vtk")
	assert.ErrorIs(t, err, handler.ErrSourceNotFound)

	_, statErr := mem.Stat("/cache/missing.vtk")
	assert.Error(t, statErr, "no file should be created on failure")
}

func TestStageReadServerError(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusBadGateway)
	}))
	defer srv.Close()

	h := httphandler.New(httphandler.Config{}, httphandler.WithLocalFS(memfs.New()))
	err := h.StageRead(context.Background(), srv.URL+"/a", "/cache/a")
	require.Error(t, err)
	assert.True(t, httphandler.IsStatus(err, nethttp.StatusBadGateway))
}

func TestStageReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	h := httphandler.New(httphandler.Config{Timeout: 50 * time.Millisecond}, httphandler.WithLocalFS(memfs.New()))
	err := h.StageRead(context.Background(), srv.URL+"/slow", "/cache/slow")
	assert.Error(t, err)
}

func TestStageReadMaxSize(t *testing.T) {
	payload := strings.Repeat("v", 2048)
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Query().Has("chunked") {
			w.(nethttp.Flusher).Flush()
		}
		_, _ = io.WriteString(w, payload)
	}))
	defer srv.Close()

	mem := memfs.New()
	h := httphandler.New(httphandler.Config{MaxSize: bytesize.KiB}, httphandler.WithLocalFS(mem))

	err := h.StageRead(context.Background(), srv.URL+"/big", "/cache/big")
	assert.ErrorIs(t, err, handler.ErrTooLarge)

	err = h.StageRead(context.Background(), srv.URL+"/big?chunked=1", "/cache/big")
	assert.ErrorIs(t, err, handler.ErrTooLarge)

	_, statErr := mem.Stat("/cache/big")
	assert.Error(t, statErr)

	h = httphandler.New(httphandler.Config{MaxSize: 2 * bytesize.KiB}, httphandler.WithLocalFS(mem))
	assert.NoError(t, h.StageRead(context.Background(), srv.URL+"/big?chunked=1", "/cache/big"))
}

func TestStageReadRejectsOtherSchemes(t *testing.T) {
	h := httphandler.New(httphandler.Config{}, httphandler.WithLocalFS(memfs.New()))

	err := h.StageRead(context.Background(), "s3://bucket/key", "/cache/key")
	assert.ErrorIs(t, err, handler.ErrUnsupportedScheme)

	err = h.StageRead(context.Background(), "http:///nohost", "/cache/x")
	assert.ErrorIs(t, err, handler.ErrInvalidLocator)
}

func TestStageWrite(t *testing.T) {
	var (
		mu          sync.Mutex
		body        []byte
		method      string
		contentType string
	)
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(nethttp.StatusCreated)
	}))
	defer srv.Close()

	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/cache/report.json", []byte(`{"ok":true}`), 0o644))

	h := httphandler.New(httphandler.Config{}, httphandler.WithLocalFS(mem))
	require.True(t, handler.CanWrite(h))
	require.NoError(t, h.StageWrite(context.Background(), "/cache/report.json", srv.URL+"/upload/report.json?sig=secret"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, nethttp.MethodPut, method)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "application/json", contentType)
}

func TestStageWriteMissingSource(t *testing.T) {
	h := httphandler.New(httphandler.Config{}, httphandler.WithLocalFS(memfs.New()))
	err := h.StageWrite(context.Background(), "/cache/nothing", "http://example.invalid/x")
	assert.ErrorIs(t, err, handler.ErrSourceNotFound)
}

func TestStageWriteRejected(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(nethttp.StatusForbidden)
	}))
	defer srv.Close()

	mem := memfs.New()
	require.NoError(t, util.WriteFile(mem, "/cache/a.bin", []byte{1, 2, 3}, 0o644))

	h := httphandler.New(httphandler.Config{}, httphandler.WithLocalFS(mem))
	err := h.StageWrite(context.Background(), "/cache/a.bin", srv.URL+"/a.bin?X-Amz-Signature=secret")
	require.Error(t, err)
	assert.True(t, httphandler.IsStatus(err, nethttp.StatusForbidden))
	assert.NotContains(t, err.Error(), "secret")
}
