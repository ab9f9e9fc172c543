package web

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenario-annotator/web/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	t.Setenv("ANNOTATOR_DEBUG", "")
	t.Setenv("ANNOTATOR_DOMAIN", "")
	t.Setenv("ANNOTATOR_SESSION_SECRET", "test-secret-test-secret-test-secret")

	base := t.TempDir()
	dataset := filepath.Join(base, "dataset")
	data := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dataset, "S1", "plots"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataset, "S1", "plots", "S1_0.png"), []byte("png"), 0o644))

	s := NewServer(service.NewJSONRegistry(filepath.Join(data, "users.json")), dataset, data)
	engine, err := s.initRouter()
	require.NoError(t, err)
	return engine, data
}

func serve(engine http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestLoginPageRendersEmbeddedTemplate(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<title>Sign in")
	assert.Contains(t, body, `data-action="/register"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	w = serve(engine, req)
	assert.Contains(t, w.Body.String(), "<title>Anmelden")
}

func TestAssetsAreServed(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, path := range []string{"/assets/css/app.css", "/assets/js/gallery.js", "/assets/js/annotator.js", "/assets/js/login.js"} {
		w := serve(engine, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestSessionFlowThroughServer(t *testing.T) {
	engine, data := newTestEngine(t)

	form := func(path string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(url.Values{"username": {"Carla"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}
	require.Equal(t, http.StatusOK, serve(engine, form("/register")).Code)
	assert.FileExists(t, filepath.Join(data, "users.json"))

	w := serve(engine, form("/login"))
	require.Equal(t, http.StatusFound, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "annotator", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = serve(engine, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Carla")

	req = httptest.NewRequest(http.MethodGet, "/api/scenarios", nil)
	req.AddCookie(cookies[0])
	req.Header.Set("Accept-Encoding", "gzip")
	w = serve(engine, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"name":"S1"`)
}

func TestMediaIsNotCompressed(t *testing.T) {
	engine, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/media/S1/plots/S1_0.png", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(engine, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "png", w.Body.String())

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/media/S1/../../etc/passwd", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDomainValidation(t *testing.T) {
	t.Setenv("ANNOTATOR_DEBUG", "")
	t.Setenv("ANNOTATOR_SESSION_SECRET", "test-secret-test-secret-test-secret")
	t.Setenv("ANNOTATOR_DOMAIN", "annotate.example.org")
	s := NewServer(service.NewJSONRegistry(filepath.Join(t.TempDir(), "users.json")), t.TempDir(), t.TempDir())
	engine, err := s.initRouter()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Host = "other.example.org"
	assert.Equal(t, http.StatusForbidden, serve(engine, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Host = "annotate.example.org:8000"
	assert.Equal(t, http.StatusOK, serve(engine, req).Code)
}
