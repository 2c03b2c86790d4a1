package utils

import (
	"fmt"
	"os"
	"path/filepath"

	coreconfig "github.com/AzielCF/az-localseo/core/config"
	"github.com/sirupsen/logrus"
)

// GetUploadSessionPath returns the spool file for a chunked upload session under uploadsDir, creating its folder.
func GetUploadSessionPath(uploadsDir, sessionID string) (string, error) {
	dir := filepath.Join(uploadsDir, "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	return filepath.Join(dir, sessionID+".part"), nil
}

// EnsureStorageDirectories creates the basic directory structure used by the service
func EnsureStorageDirectories() error {
	dirs := []string{
		coreconfig.Global.Paths.Storages,
		coreconfig.Global.Paths.Uploads,
		filepath.Join(coreconfig.Global.Paths.Uploads, "sessions"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logrus.WithError(err).Errorf("[STORAGE] Failed to create directory %s", dir)
			return err
		}
	}
	return nil
}
