package logo

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store manages override files on disk: at most one file per role, named
// after the role's canonical file name.
type Store struct {
	dir   string
	table Table
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write, not here.
func NewStore(dir string, table Table) *Store {
	return &Store{dir: dir, table: table}
}

// Dir returns the override directory.
func (s *Store) Dir() string { return s.dir }

// Table returns the role table the store was built with.
func (s *Store) Table() Table { return s.table }

// Path returns the override file path for a role.
func (s *Store) Path(r Role) (string, error) {
	spec, ok := s.table.Lookup(r)
	if !ok {
		return "", &Error{Kind: KindValidation, Op: "lookup role", Err: fmt.Errorf("unknown role %q", r)}
	}
	return filepath.Join(s.dir, spec.FileName), nil
}

// Save replaces the override for a role. The bytes are written to a
// temporary file next to the target and renamed over it, so readers see
// either the previous override or the new one.
func (s *Store) Save(r Role, data []byte) error {
	path, err := s.Path(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return &Error{Kind: KindValidation, Op: "save", Path: path, Err: fmt.Errorf("empty file")}
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return FSError("create override directory", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return FSError("save", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return FSError("save", path, err)
	}
	if err := tmp.Close(); err != nil {
		return FSError("save", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return FSError("save", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return FSError("save", path, err)
	}
	return nil
}

// Delete removes the override for a role. A missing override is reported
// as a not-found error.
func (s *Store) Delete(r Role) error {
	path, err := s.Path(r)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return FSError("delete", path, err)
	}
	return nil
}

// Exists reports whether an override is configured for a role.
func (s *Store) Exists(r Role) bool {
	path, err := s.Path(r)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the override bytes for a role.
func (s *Store) Read(r Role) ([]byte, error) {
	path, err := s.Path(r)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, FSError("read", path, err)
	}
	return data, nil
}

// Fingerprint returns the digest of the current override for a role.
func (s *Store) Fingerprint(r Role) (string, error) {
	data, err := s.Read(r)
	if err != nil {
		return "", err
	}
	return Fingerprint(data), nil
}

// Status reports, for every role in the table, whether an override exists.
// It reads the filesystem on every call.
func (s *Store) Status() map[Role]bool {
	status := make(map[Role]bool, len(s.table))
	for _, spec := range s.table {
		status[spec.Role] = s.Exists(spec.Role)
	}
	return status
}

// DirExists reports whether the override directory has been created.
func (s *Store) DirExists() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}
