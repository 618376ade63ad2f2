package constants

import "strings"

// Input formats understood by the scan and import paths.
const (
	IMAGE = "IMAGE"
	JSON  = "JSON"
)

// FileTypes holds the formats a scan or import may carry.
var FileTypes = []string{IMAGE, JSON}

// AllowedExtensions holds the image extensions accepted for scanning.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
	"webp": {},
	"gif":  {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
}

// MaxImageMBDefault caps the size of an image read for OCR.
const MaxImageMBDefault = 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns IMAGE, JSON or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	if _, ok := AllowedExtensions[ext]; ok {
		return IMAGE
	}
	if ext == "json" {
		return JSON
	}
	return ""
}

// IsHEICExt reports whether ext is one of the HEIC/HEIF container extensions.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}
