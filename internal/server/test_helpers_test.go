package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/battlewithbytes/webbrand/internal/config"
	"github.com/battlewithbytes/webbrand/internal/distribute"
	"github.com/battlewithbytes/webbrand/internal/history"
	"github.com/battlewithbytes/webbrand/internal/intercept"
	"github.com/battlewithbytes/webbrand/internal/logo"
	"github.com/battlewithbytes/webbrand/internal/metrics"
)

// bundle is the original web tree every test server starts from.
var bundle = map[string]string{
	"assets/img/icon-transparent.png": "orig-icon",
	"icon-transparent.abc123.png":     "orig-icon-hashed",
	"favicon.ico":                     "orig-favicon",
	"assets/img/banner-dark.png":      "orig-dark",
	"banner-dark.f00d.png":            "orig-dark-hashed",
	"assets/img/banner-light.png":     "orig-light",
	"banner-light.beef.png":           "orig-light-hashed",
	"index.html":                      "<html></html>",
}

type testEnv struct {
	cfg     *config.Config
	store   *logo.Store
	history *history.Store
	metrics *metrics.Metrics
	srv     *Server
}

func testConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.Mode = mode
	cfg.WebDir = filepath.Join(root, "web")
	cfg.OverrideDir = filepath.Join(root, "overrides")
	cfg.DataDir = filepath.Join(root, "data")
	cfg.Server.Port = 0
	cfg.Server.RateLimit = 0
	cfg.Intercept.Prefix = "/web"
	return cfg
}

func writeBundle(t *testing.T, dir string) {
	t.Helper()
	for rel, content := range bundle {
		writeTestFile(t, filepath.Join(dir, filepath.FromSlash(rel)), content)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func newTestEnv(t *testing.T, mode string) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig(t, mode))
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	writeBundle(t, cfg.WebDir)
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		cfg:     cfg,
		store:   logo.NewStore(cfg.OverrideDir, logo.DefaultTable()),
		metrics: metrics.New(),
	}
	hist, err := history.NewStore(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.NewStore: %v", err)
	}
	t.Cleanup(func() { hist.Close() })
	env.history = hist

	var dist *distribute.Distributor
	if cfg.PushEnabled() {
		dist = distribute.New(env.store, distribute.Options{
			WebDir:    cfg.WebDir,
			BackupDir: cfg.BackupDir(),
			Workers:   cfg.Distribute.Workers,
			Logger:    zerolog.Nop(),
			Observers: []func(*distribute.Report){hist.Observer(func(err error) { t.Errorf("record: %v", err) })},
		})
	}
	var icpt *intercept.Interceptor
	if cfg.InterceptEnabled() {
		icpt = intercept.New(env.store, intercept.Options{
			WebDir:    cfg.WebDir,
			BackupDir: cfg.BackupDir(),
			Prefix:    cfg.Intercept.Prefix,
			Logger:    zerolog.Nop(),
			OnServe:   env.metrics.ObserveIntercept,
		})
	}

	env.srv = New(cfg, env.store, dist, icpt, WithHistory(hist), WithMetrics(env.metrics))
	return env
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// upload posts a multipart form with one file part per entry in parts.
func upload(t *testing.T, srv *Server, parts map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range parts {
		fw, err := mw.CreateFormFile(field, field+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logo/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, w.Body.String())
	}
	return result
}
