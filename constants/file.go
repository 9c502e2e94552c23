package constants

import "strings"

// FileTypes holds the document kinds a run can record.
var FileTypes = []string{"PDF", "IMAGE", "TXT", "JSON"}

// AllowedExtensions holds the default allowed file extensions for receipts ingestion.
// txt and json are pre-extracted OCR sidecars.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"txt":  {},
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FileTypeFor maps a normalized extension to one of FileTypes.
func FileTypeFor(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "PDF"
	case "txt":
		return "TXT"
	case "json":
		return "JSON"
	default:
		return "IMAGE"
	}
}
