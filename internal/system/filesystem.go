package system

import (
	"errors"
	"io/fs"
	"os"
)

// FileSystem abstracts the filesystem operations the bootstrap stages need.
type FileSystem interface {
	FileExists(path string) (bool, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte, permissions fs.FileMode) error
	EnsureDirectory(path string, permissions fs.FileMode) error
	Chmod(path string, permissions fs.FileMode) error
	Rename(oldPath string, newPath string) error
	Remove(path string) error
}

// OperatingSystemFileSystem implements FileSystem using the os package.
type OperatingSystemFileSystem struct{}

// NewOperatingSystemFileSystem constructs an OperatingSystemFileSystem.
func NewOperatingSystemFileSystem() OperatingSystemFileSystem {
	return OperatingSystemFileSystem{}
}

// FileExists reports whether a regular file or directory exists at path.
func (fileSystem OperatingSystemFileSystem) FileExists(path string) (bool, error) {
	_, statErr := os.Stat(path)
	if statErr == nil {
		return true, nil
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		return false, nil
	}
	return false, statErr
}

// ReadFile returns the contents of the file at path.
func (fileSystem OperatingSystemFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes content to path with the provided permissions.
func (fileSystem OperatingSystemFileSystem) WriteFile(path string, content []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, content, permissions)
}

// EnsureDirectory creates the directory at path if it does not exist.
func (fileSystem OperatingSystemFileSystem) EnsureDirectory(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// Chmod sets the permissions of the file at path.
func (fileSystem OperatingSystemFileSystem) Chmod(path string, permissions fs.FileMode) error {
	return os.Chmod(path, permissions)
}

// Rename atomically moves oldPath to newPath within the same filesystem.
func (fileSystem OperatingSystemFileSystem) Rename(oldPath string, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// Remove deletes the file at path.
func (fileSystem OperatingSystemFileSystem) Remove(path string) error {
	return os.Remove(path)
}
