package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docrows/constants"
)

// AllowedExt checks if a file extension is accepted for extraction.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedDocumentExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// HashHex is the hex sha256 of content; extraction results are cached under it.
func HashHex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
