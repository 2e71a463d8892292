package utils

import (
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// --- Image Validation ---

var SupportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func IsSupportedImage(header *multipart.FileHeader) bool {
	return SupportedImageTypes[header.Header.Get("Content-Type")]
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

var unsafeFilename = regexp.MustCompile(`[^\w.\-]`)

func SanitizeFilename(name string) string {
	clean := unsafeFilename.ReplaceAllString(filepath.Base(name), "_")
	if clean == "" || clean == "." {
		return "file"
	}
	return clean
}

// ContainsIgnoreCase reports whether substr occurs in str, ignoring case.
func ContainsIgnoreCase(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}
