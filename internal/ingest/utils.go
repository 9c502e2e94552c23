package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/receipts-extractor/constants"
)

// AllowedExt checks if a file extension is in the default allowed set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// HashFile returns the hex SHA256 of the file contents and its size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// IsSidecar reports a .txt or .json file that sits next to a scanned document of the
// same name, e.g. receipt.json beside receipt.jpg. Such files are read through the
// document instead of being processed on their own.
func IsSidecar(path string) bool {
	switch constants.FileTypeFor(filepath.Ext(path)) {
	case "TXT", "JSON":
	default:
		return false
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for ext := range constants.AllowedExtensions {
		if k := constants.FileTypeFor(ext); k == "TXT" || k == "JSON" {
			continue
		}
		for _, cand := range []string{ext, strings.ToUpper(ext)} {
			if st, err := os.Stat(stem + "." + cand); err == nil && !st.IsDir() {
				return true
			}
		}
	}
	return false
}
