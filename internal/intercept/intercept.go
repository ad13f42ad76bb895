// Package intercept serves override images in place of the bundle's own
// branding files for a fixed set of request paths ("pull" mode). The
// bundle on disk is never modified.
package intercept

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/battlewithbytes/webbrand/internal/logo"
)

// Sources reported to the OnServe callback.
const (
	SourceOverride = "override"
	SourceBackup   = "backup"
	SourceOriginal = "original"
	SourceMissing  = "missing"
	SourceInvalid  = "invalid"
)

// Options configures an Interceptor.
type Options struct {
	WebDir    string // bundle root holding the original assets
	BackupDir string // pristine copies kept by push distribution, if any
	Prefix    string // URL prefix the bundle is mounted under, e.g. "/web"
	Logger    zerolog.Logger
	OnServe   func(role logo.Role, source string)
}

// Interceptor resolves intercepted request paths to override, backup or
// original bytes.
type Interceptor struct {
	store *logo.Store
	table logo.Table
	opts  Options
	log   zerolog.Logger
}

// New creates an Interceptor backed by store.
func New(store *logo.Store, opts Options) *Interceptor {
	opts.Prefix = strings.TrimSuffix(opts.Prefix, "/")
	return &Interceptor{
		store: store,
		table: store.Table(),
		opts:  opts,
		log:   opts.Logger.With().Str("component", "intercept").Logger(),
	}
}

// Match maps a request path to a role and a slash-separated path relative
// to the bundle root. ok is false for paths the interceptor does not own.
// A malformed fingerprint segment yields a validation error.
func (i *Interceptor) Match(urlPath string) (role logo.Role, rel string, ok bool, err error) {
	p := urlPath
	if i.opts.Prefix != "" {
		var found bool
		if p, found = strings.CutPrefix(urlPath, i.opts.Prefix); !found || !strings.HasPrefix(p, "/") {
			return "", "", false, nil
		}
	}
	role, rel, err = i.table.MatchPath(p)
	if err != nil {
		return "", "", false, err
	}
	return role, rel, role != "", nil
}

// Middleware serves GET and HEAD requests for intercepted paths and passes
// everything else to next.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		role, rel, ok, err := i.Match(r.URL.Path)
		if err != nil {
			i.observe("", SourceInvalid)
			http.Error(w, "invalid asset path", http.StatusBadRequest)
			return
		}
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		i.serve(w, r, role, rel)
	})
}

// ServeHTTP serves an intercepted path or responds 404 for any other path.
func (i *Interceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)
}

func (i *Interceptor) serve(w http.ResponseWriter, r *http.Request, role logo.Role, rel string) {
	w.Header().Set("Cache-Control", "no-cache")
	name := path.Base(rel)

	data, err := i.store.Read(role)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", logo.ContentType(name, data))
		w.Header().Set("ETag", `"`+logo.Fingerprint(data)+`"`)
		i.observe(role, SourceOverride)
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
		return
	case !errors.Is(err, logo.ErrNotFound):
		i.log.Error().Err(err).Str("role", string(role)).Msg("reading override, serving original")
	}

	file := filepath.Join(i.opts.WebDir, filepath.FromSlash(rel))
	var backup string
	if i.opts.BackupDir != "" {
		backup = filepath.Join(i.opts.BackupDir, filepath.FromSlash(rel))
	}
	// The backup is the original only while the bundle file still holds the
	// override push mode wrote over it.
	if backup != "" && logo.BackupCurrent(backup, file) && i.serveFile(w, r, backup) {
		i.observe(role, SourceBackup)
		return
	}
	if i.serveFile(w, r, file) {
		i.observe(role, SourceOriginal)
		return
	}
	if backup != "" && i.serveFile(w, r, backup) {
		i.observe(role, SourceBackup)
		return
	}
	i.observe(role, SourceMissing)
	http.NotFound(w, r)
}

// serveFile writes a regular file and reports whether it existed.
func (i *Interceptor) serveFile(w http.ResponseWriter, r *http.Request, file string) bool {
	f, err := os.Open(file)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			i.log.Warn().Err(err).Str("path", file).Msg("opening asset")
		}
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func (i *Interceptor) observe(role logo.Role, source string) {
	if i.opts.OnServe != nil {
		i.opts.OnServe(role, source)
	}
}
