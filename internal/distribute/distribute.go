// Package distribute copies override images onto every matching file in a
// web bundle ("push" mode) and puts the original bytes back when an
// override is removed.
package distribute

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/battlewithbytes/webbrand/internal/logo"
)

// DefaultWorkers is the copy pool size when Options.Workers is unset.
const DefaultWorkers = 4

// ErrStopped is returned for runs requested after Stop.
var ErrStopped = errors.New("distributor stopped")

// Options configures a Distributor.
type Options struct {
	WebDir    string // bundle root that is scanned and overwritten
	BackupDir string // pristine copies of overwritten files; empty disables backups
	Workers   int
	Logger    zerolog.Logger
	Observers []func(*Report) // called with every finished report
}

// Distributor runs push distribution and restore passes.
type Distributor struct {
	store *logo.Store
	table logo.Table
	opts  Options
	log   zerolog.Logger

	// writeFile overwrites an existing bundle file. Tests swap it to
	// simulate per-file failures.
	writeFile func(path string, data []byte) error

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// New creates a Distributor reading overrides from store.
func New(store *logo.Store, opts Options) *Distributor {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	return &Distributor{
		store:     store,
		table:     store.Table(),
		opts:      opts,
		log:       opts.Logger.With().Str("component", "distribute").Logger(),
		writeFile: overwriteFile,
	}
}

// BackupDir returns the pristine backup directory ("" when disabled).
func (d *Distributor) BackupDir() string { return d.opts.BackupDir }

type target struct {
	role logo.Role
	rel  string
}

type override struct {
	data        []byte
	fingerprint string
}

// Distribute copies each role's override onto every bundle file matching
// the role's patterns. With no roles given, every role in the table is
// processed. Roles without an override are skipped. Per-file failures are
// recorded in the report and never stop the run; the returned error is
// non-nil only when ctx is cancelled or the walk of the bundle root fails.
func (d *Distributor) Distribute(ctx context.Context, trigger string, roles ...logo.Role) (*Report, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.running.Done()

	rep := newReport(trigger)
	defer d.finish(rep)

	if reason := d.checkTarget(); reason != "" {
		rep.Skipped = reason
		d.log.Info().Str("web_dir", d.opts.WebDir).Msgf("%s, skipping distribution", reason)
		return rep, nil
	}
	if !d.store.DirExists() {
		rep.Skipped = "override directory not found"
		d.log.Info().Str("override_dir", d.store.Dir()).Msg("override directory not found, skipping distribution")
		return rep, nil
	}

	overrides := make(map[logo.Role]override)
	var active []logo.Role
	for _, r := range d.resolve(roles) {
		rep.Roles = append(rep.Roles, RoleSummary{Role: r})
		data, err := d.store.Read(r)
		switch {
		case errors.Is(err, logo.ErrNotFound):
			rep.Summary(r).Skipped = "no override"
		case err != nil:
			rep.Summary(r).Skipped = err.Error()
			d.log.Error().Err(err).Str("role", string(r)).Msg("reading override")
		default:
			overrides[r] = override{data: data, fingerprint: logo.Fingerprint(data)}
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return rep, nil
	}

	targets, err := d.scan(ctx, active)
	if err != nil {
		return rep, err
	}

	err = d.each(ctx, rep, targets, func(t target) FileResult {
		return d.copyOne(t, overrides[t.role])
	})

	for _, r := range active {
		if rep.Summary(r).Matched == 0 {
			spec, _ := d.table.Lookup(r)
			d.log.Warn().Str("role", string(r)).Str("patterns", patternList(spec)).
				Msg("no destination files found for patterns")
		}
	}
	return rep, err
}

// Restore copies pristine backups back over the bundle files of the given
// roles and drops the backups. Files without a backup are left untouched
// and reported as no_backup.
func (d *Distributor) Restore(ctx context.Context, trigger string, roles ...logo.Role) (*Report, error) {
	if err := d.begin(); err != nil {
		return nil, err
	}
	defer d.running.Done()

	rep := newReport(trigger)
	defer d.finish(rep)

	if d.opts.BackupDir == "" {
		rep.Skipped = "backups disabled"
		d.log.Warn().Msg("backups are disabled, originals cannot be restored")
		return rep, nil
	}
	if reason := d.checkTarget(); reason != "" {
		rep.Skipped = reason
		d.log.Info().Str("web_dir", d.opts.WebDir).Msgf("%s, skipping restore", reason)
		return rep, nil
	}

	roles = d.resolve(roles)
	for _, r := range roles {
		rep.Roles = append(rep.Roles, RoleSummary{Role: r})
	}
	targets, err := d.scan(ctx, roles)
	if err != nil {
		return rep, err
	}
	return rep, d.each(ctx, rep, targets, d.restoreOne)
}

// Scan lists the bundle files, relative to the web directory, that each
// role's patterns match. Nothing is written.
func (d *Distributor) Scan(ctx context.Context, roles ...logo.Role) (map[logo.Role][]string, error) {
	if reason := d.checkTarget(); reason != "" {
		return nil, &logo.Error{Kind: logo.KindNotFound, Op: "scan", Path: d.opts.WebDir, Err: errors.New(reason)}
	}
	targets, err := d.scan(ctx, d.resolve(roles))
	if err != nil {
		return nil, err
	}
	out := make(map[logo.Role][]string)
	for _, t := range targets {
		out[t.role] = append(out[t.role], filepath.ToSlash(t.rel))
	}
	return out, nil
}

// Stop rejects new runs and waits for running ones to finish.
func (d *Distributor) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Distributor) begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	d.running.Add(1)
	return nil
}

func (d *Distributor) finish(rep *Report) {
	rep.Finished = time.Now().UTC()
	for _, s := range rep.Roles {
		ev := d.log.Info()
		if s.Failed > 0 {
			ev = d.log.Warn()
		}
		ev.Str("run", rep.ID).
			Str("trigger", rep.Trigger).
			Str("role", string(s.Role)).
			Str("skipped", s.Skipped).
			Int("matched", s.Matched).
			Int("copied", s.Copied).
			Int("unchanged", s.Unchanged).
			Int("restored", s.Restored).
			Int("failed", s.Failed).
			Msg("distribution summary")
	}
	for _, fn := range d.opts.Observers {
		fn(rep)
	}
}

// each runs fn over targets on the worker pool and tallies the results.
func (d *Distributor) each(ctx context.Context, rep *Report, targets []target, fn func(target) FileResult) error {
	results := make([]FileResult, len(targets))
	done := make([]bool, len(targets))

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = fn(t)
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	for i := range results {
		if done[i] {
			rep.Files = append(rep.Files, results[i])
		}
	}
	rep.tally()
	return err
}

func (d *Distributor) resolve(roles []logo.Role) []logo.Role {
	if len(roles) == 0 {
		return d.table.Roles()
	}
	out := make([]logo.Role, 0, len(roles))
	seen := make(map[logo.Role]bool)
	for _, r := range roles {
		if _, ok := d.table.Lookup(r); !ok || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// checkTarget returns a skip reason when the bundle root cannot be used.
func (d *Distributor) checkTarget() string {
	if d.opts.WebDir == "" {
		return "web directory not configured"
	}
	info, err := os.Stat(d.opts.WebDir)
	if err != nil || !info.IsDir() {
		return "web directory not found"
	}
	if err := unix.Access(d.opts.WebDir, unix.W_OK); err != nil {
		return "web directory not writable"
	}
	return ""
}

// scan walks the bundle once and collects the regular files matched by the
// given roles. Symlinks are not followed. Unreadable subdirectories are
// logged and skipped.
func (d *Distributor) scan(ctx context.Context, roles []logo.Role) ([]target, error) {
	var specs []logo.Spec
	for _, r := range roles {
		if spec, ok := d.table.Lookup(r); ok {
			specs = append(specs, spec)
		}
	}

	var targets []target
	err := filepath.WalkDir(d.opts.WebDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == d.opts.WebDir {
				return logo.FSError("scan", path, err)
			}
			d.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if d.opts.BackupDir != "" && path == d.opts.BackupDir {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		for _, spec := range specs {
			if spec.MatchFile(entry.Name()) {
				rel, err := filepath.Rel(d.opts.WebDir, path)
				if err != nil {
					return err
				}
				targets = append(targets, target{role: spec.Role, rel: rel})
				break
			}
		}
		return nil
	})
	return targets, err
}

func (d *Distributor) copyOne(t target, o override) FileResult {
	res := FileResult{Role: t.role, Path: filepath.ToSlash(t.rel)}
	abs := filepath.Join(d.opts.WebDir, t.rel)

	current, err := os.ReadFile(abs)
	if err != nil {
		return d.failed(res, logo.FSError("read", abs, err))
	}
	if logo.Fingerprint(current) == o.fingerprint {
		res.Outcome = OutcomeUnchanged
		return res
	}
	if err := d.backup(t.rel, current); err != nil {
		return d.failed(res, err)
	}
	if err := d.writeFile(abs, o.data); err != nil {
		return d.failed(res, err)
	}
	if d.opts.BackupDir != "" {
		if err := logo.WriteSum(filepath.Join(d.opts.BackupDir, t.rel), o.fingerprint); err != nil {
			d.log.Warn().Err(err).Str("path", res.Path).Msg("recording copied fingerprint")
		}
	}
	res.Outcome = OutcomeCopied
	d.log.Debug().Str("role", string(t.role)).Str("path", res.Path).Msg("override copied")
	return res
}

func (d *Distributor) restoreOne(t target) FileResult {
	res := FileResult{Role: t.role, Path: filepath.ToSlash(t.rel)}
	abs := filepath.Join(d.opts.WebDir, t.rel)
	saved := filepath.Join(d.opts.BackupDir, t.rel)

	original, err := os.ReadFile(saved)
	if errors.Is(err, fs.ErrNotExist) {
		res.Outcome = OutcomeNoBackup
		return res
	}
	if err != nil {
		return d.failed(res, logo.FSError("read backup", saved, err))
	}
	if err := d.writeFile(abs, original); err != nil {
		return d.failed(res, err)
	}
	if err := os.Remove(saved); err != nil {
		d.log.Warn().Err(err).Str("path", saved).Msg("removing restored backup")
	}
	if err := logo.RemoveSum(saved); err != nil {
		d.log.Warn().Err(err).Str("path", saved).Msg("removing backup sum")
	}
	res.Outcome = OutcomeRestored
	d.log.Debug().Str("role", string(t.role)).Str("path", res.Path).Msg("original restored")
	return res
}

// backup saves the bundle file's bytes before an override is written over
// it. An existing backup is kept while the file still holds the override
// recorded in its sum; any other content is a new original shipped by the
// host, and replaces the backup.
func (d *Distributor) backup(rel string, current []byte) error {
	if d.opts.BackupDir == "" {
		return nil
	}
	dst := filepath.Join(d.opts.BackupDir, rel)
	_, err := os.Stat(dst)
	switch {
	case err == nil:
		sum, err := logo.ReadSum(dst)
		if err != nil {
			return err
		}
		if sum == "" || sum == logo.Fingerprint(current) {
			return nil
		}
		d.log.Info().Str("path", filepath.ToSlash(rel)).Msg("bundle file changed since last copy, refreshing backup")
	case !errors.Is(err, fs.ErrNotExist):
		return logo.FSError("backup", dst, err)
	}
	return writeBackup(dst, current)
}

// writeBackup writes data to a temporary file and renames it over dst.
func writeBackup(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return logo.FSError("backup", dst, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-*")
	if err != nil {
		return logo.FSError("backup", dst, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return logo.FSError("backup", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return logo.FSError("backup", dst, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return logo.FSError("backup", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return logo.FSError("backup", dst, err)
	}
	return nil
}

func (d *Distributor) failed(res FileResult, err error) FileResult {
	res.Outcome = OutcomeFailed
	res.Kind = logo.KindOf(err).String()
	res.Error = err.Error()
	d.log.Error().Err(err).Str("role", string(res.Role)).Str("path", res.Path).Str("kind", res.Kind).
		Msg("copy failed")
	return res
}

// overwriteFile replaces the contents of an existing file. It never
// creates one.
func overwriteFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return logo.FSError("overwrite", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return logo.FSError("overwrite", path, err)
	}
	return logo.FSError("overwrite", path, f.Close())
}

func patternList(spec logo.Spec) string {
	s := ""
	for i, p := range spec.Patterns {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}
