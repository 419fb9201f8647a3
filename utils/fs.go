package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileOperations provides file system utilities
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates the parent directory of path if it doesn't exist
func (f *FileOperations) EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// FileExists checks if a file exists
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsDir reports whether path names an existing directory
func (f *FileOperations) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// NamesDirectory reports whether path is an existing directory or is
// written with a trailing separator, which names a directory to be created
func (f *FileOperations) NamesDirectory(path string) bool {
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)) {
		return true
	}
	return f.IsDir(path)
}

// GetFileSize returns the size of a file
func (f *FileOperations) GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// PartPath returns the temporary path a download is written to
func (f *FileOperations) PartPath(outputPath string) string {
	return outputPath + ".part"
}

// CreatePartFile creates or truncates the partial file for outputPath
func (f *FileOperations) CreatePartFile(outputPath string) (*os.File, error) {
	if err := f.EnsureDir(outputPath); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.OpenFile(f.PartPath(outputPath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create partial file: %w", err)
	}
	return file, nil
}

// CommitPartFile moves a completed partial file onto outputPath
func (f *FileOperations) CommitPartFile(outputPath string) error {
	return f.AtomicRename(f.PartPath(outputPath), outputPath)
}

// DiscardPartFile removes the partial file for outputPath, if any
func (f *FileOperations) DiscardPartFile(outputPath string) error {
	err := os.Remove(f.PartPath(outputPath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// AtomicRename performs an atomic file rename operation
func (f *FileOperations) AtomicRename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}
