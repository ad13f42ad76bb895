package intercept

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/battlewithbytes/webbrand/internal/logo"
)

var pngHeader = "\x89PNG\r\n\x1a\n"

type fixture struct {
	webDir    string
	backupDir string
	store     *logo.Store
	served    []string
	icpt      *Interceptor
}

func newFixture(t *testing.T, prefix string) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		webDir:    filepath.Join(root, "web"),
		backupDir: filepath.Join(root, "originals"),
	}
	writeFile(t, filepath.Join(f.webDir, "assets/img/icon-transparent.png"), "orig-icon")
	writeFile(t, filepath.Join(f.webDir, "icon-transparent.deadbeef01.png"), "orig-icon-hashed")
	writeFile(t, filepath.Join(f.webDir, "banner-dark.abc123.png"), "orig-dark")
	writeFile(t, filepath.Join(f.webDir, "assets/img/banner-light.png"), "orig-light")

	f.store = logo.NewStore(filepath.Join(root, "overrides"), logo.DefaultTable())
	f.icpt = New(f.store, Options{
		WebDir:    f.webDir,
		BackupDir: f.backupDir,
		Prefix:    prefix,
		Logger:    zerolog.Nop(),
		OnServe:   func(_ logo.Role, source string) { f.served = append(f.served, source) },
	})
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = path // keep traversal sequences as sent on the wire
	w := httptest.NewRecorder()
	f.icpt.Middleware(next).ServeHTTP(w, req)
	return w
}

func TestServesOverride(t *testing.T) {
	f := newFixture(t, "")
	override := pngHeader + "dark-override"
	f.store.Save(logo.RoleBannerDark, []byte(override))

	w := f.get(t, "/banner-dark.abc123.png")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != override {
		t.Errorf("body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+logo.Fingerprint([]byte(override))+`"` {
		t.Errorf("ETag = %q", etag)
	}
	if len(f.served) != 1 || f.served[0] != SourceOverride {
		t.Errorf("served = %v", f.served)
	}
}

func TestOverrideNotModified(t *testing.T) {
	f := newFixture(t, "")
	f.store.Save(logo.RoleIcon, []byte("icon"))
	etag := `"` + logo.Fingerprint([]byte("icon")) + `"`

	req := httptest.NewRequest(http.MethodGet, "/assets/img/icon-transparent.png", nil)
	req.Header.Set("If-None-Match", etag)
	w := httptest.NewRecorder()
	f.icpt.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w.Code)
	}
}

func TestFallsBackToOriginal(t *testing.T) {
	f := newFixture(t, "")
	w := f.get(t, "/icon-transparent.deadbeef01.png")
	if w.Code != http.StatusOK || w.Body.String() != "orig-icon-hashed" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if f.served[0] != SourceOriginal {
		t.Errorf("source = %s", f.served[0])
	}
}

func TestPrefersBackupOverBundle(t *testing.T) {
	f := newFixture(t, "")
	// Push mode already overwrote the bundle copy; the backup holds the original.
	writeFile(t, filepath.Join(f.webDir, "assets/img/banner-light.png"), "stale-override")
	backup := filepath.Join(f.backupDir, "assets/img/banner-light.png")
	writeFile(t, backup, "orig-light")
	if err := logo.WriteSum(backup, logo.Fingerprint([]byte("stale-override"))); err != nil {
		t.Fatal(err)
	}

	w := f.get(t, "/assets/img/banner-light.png")
	if w.Body.String() != "orig-light" {
		t.Fatalf("body = %q, want backup copy", w.Body.String())
	}
	if f.served[0] != SourceBackup {
		t.Errorf("source = %s", f.served[0])
	}
}

func TestUpgradedBundleBeatsStaleBackup(t *testing.T) {
	f := newFixture(t, "")
	backup := filepath.Join(f.backupDir, "assets/img/banner-light.png")
	writeFile(t, backup, "orig-light")
	logo.WriteSum(backup, logo.Fingerprint([]byte("old-override")))
	writeFile(t, filepath.Join(f.webDir, "assets/img/banner-light.png"), "orig-light-v2")

	w := f.get(t, "/assets/img/banner-light.png")
	if w.Body.String() != "orig-light-v2" {
		t.Fatalf("body = %q, want upgraded bundle file", w.Body.String())
	}
	if f.served[0] != SourceOriginal {
		t.Errorf("source = %s", f.served[0])
	}
}

func TestBackupServedWhenBundleFileGone(t *testing.T) {
	f := newFixture(t, "")
	writeFile(t, filepath.Join(f.backupDir, "banner-light.77.png"), "orig-light-hashed")

	w := f.get(t, "/banner-light.77.png")
	if w.Code != http.StatusOK || w.Body.String() != "orig-light-hashed" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if f.served[0] != SourceBackup {
		t.Errorf("source = %s", f.served[0])
	}
}

func TestMissingEverywhere(t *testing.T) {
	f := newFixture(t, "")
	w := f.get(t, "/banner-light.0000.png")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if f.served[0] != SourceMissing {
		t.Errorf("source = %s", f.served[0])
	}
}

func TestRejectsMalformedHash(t *testing.T) {
	f := newFixture(t, "")
	f.store.Save(logo.RoleIcon, []byte("icon"))
	for _, p := range []string{
		"/icon-transparent.../../etc.png",
		"/icon-transparent.a/b.png",
		"/banner-dark.$(id).png",
	} {
		w := f.get(t, p)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", p, w.Code)
		}
	}
	for _, s := range f.served {
		if s != SourceInvalid {
			t.Fatalf("malformed path reached source %q", s)
		}
	}
}

func TestPassesThroughOtherRequests(t *testing.T) {
	f := newFixture(t, "")
	if w := f.get(t, "/index.html"); w.Code != http.StatusTeapot {
		t.Errorf("unmatched path status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/assets/img/icon-transparent.png", nil)
	w := httptest.NewRecorder()
	f.icpt.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(w, req)
	if w.Code != http.StatusTeapot {
		t.Errorf("POST status = %d", w.Code)
	}
}

func TestPrefix(t *testing.T) {
	f := newFixture(t, "/web/")
	f.store.Save(logo.RoleBannerDark, []byte("dark"))

	if w := f.get(t, "/web/banner-dark.abc123.png"); w.Body.String() != "dark" {
		t.Errorf("prefixed path body = %q", w.Body.String())
	}
	if w := f.get(t, "/banner-dark.abc123.png"); w.Code != http.StatusTeapot {
		t.Errorf("unprefixed path status = %d, want pass-through", w.Code)
	}
	if w := f.get(t, "/webbanner-dark.abc123.png"); w.Code != http.StatusTeapot {
		t.Errorf("prefix without separator status = %d, want pass-through", w.Code)
	}
}

func TestDeletedOverrideFallsBack(t *testing.T) {
	f := newFixture(t, "")
	f.store.Save(logo.RoleBannerDark, []byte("dark"))
	if w := f.get(t, "/banner-dark.abc123.png"); w.Body.String() != "dark" {
		t.Fatalf("body = %q", w.Body.String())
	}
	f.store.Delete(logo.RoleBannerDark)
	if w := f.get(t, "/banner-dark.abc123.png"); w.Body.String() != "orig-dark" {
		t.Fatalf("after delete body = %q, want original", w.Body.String())
	}
}
