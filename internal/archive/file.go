package archive

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile stores data as dir/name through a temporary file and a rename so a
// reader never observes a partial file. It returns the final path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	destPath := filepath.Join(dir, name)

	tmpFile, err := os.CreateTemp(dir, "stickerkit-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmpFile.Name(), 0o644); err != nil {
		return "", err
	}

	if err := replaceFile(tmpFile.Name(), destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
