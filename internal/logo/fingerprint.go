package logo

import (
	"encoding/hex"
	"net/http"
	"path"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the BLAKE2b-256 digest of data as lowercase hex.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentType picks the image type for override bytes served under name.
// Uploads are not validated, so anything that does not sniff as an image is
// labelled by the requested extension.
func ContentType(name string, data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	if path.Ext(name) == ".ico" {
		return "image/x-icon"
	}
	return "image/png"
}
