package logo

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// SumSuffix names the file kept next to a pristine backup. It holds the
// fingerprint of the override last written over the bundle file.
const SumSuffix = ".sum"

// ReadSum returns the fingerprint recorded for a backup, or "" when none
// was recorded.
func ReadSum(backup string) (string, error) {
	data, err := os.ReadFile(backup + SumSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", FSError("read sum", backup+SumSuffix, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteSum records the fingerprint of the bytes written over the bundle
// file a backup belongs to.
func WriteSum(backup, fingerprint string) error {
	if err := os.WriteFile(backup+SumSuffix, []byte(fingerprint+"\n"), 0644); err != nil {
		return FSError("write sum", backup+SumSuffix, err)
	}
	return nil
}

// RemoveSum drops the recorded fingerprint. A missing file is not an error.
func RemoveSum(backup string) error {
	if err := os.Remove(backup + SumSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return FSError("remove sum", backup+SumSuffix, err)
	}
	return nil
}

// BackupCurrent reports whether bundleFile still holds the override that
// was written over it, which makes backup its true original. It is false
// when the host replaced the file since, or when nothing was recorded.
func BackupCurrent(backup, bundleFile string) bool {
	sum, err := ReadSum(backup)
	if err != nil || sum == "" {
		return false
	}
	data, err := os.ReadFile(bundleFile)
	if err != nil {
		return false
	}
	return Fingerprint(data) == sum
}
