package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// UploadRoot is the on-disk root for locally stored uploads (avatar fallback
// when R2 is not configured). Override with UPLOAD_DIR.
func UploadRoot() string {
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return "uploads"
}

// EnsureUploadDir creates the upload root if it doesn't exist
func EnsureUploadDir() error {
	return os.MkdirAll(UploadRoot(), 0o755)
}

// SaveFile writes an uploaded multipart file to destPath, creating parent
// directories as needed (avatars live under <root>/avatars/).
func SaveFile(fileHeader *multipart.FileHeader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// GetUploadPath returns the full path for a file inside the upload root
func GetUploadPath(filename string) string {
	return filepath.Join(UploadRoot(), filename)
}
