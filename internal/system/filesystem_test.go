package system_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fkrzski/docker-proxy/internal/system"
)

func TestOperatingSystemFileSystemFileExists(testingInstance *testing.T) {
	fileSystem := system.NewOperatingSystemFileSystem()
	temporaryDirectory := testingInstance.TempDir()
	presentPath := filepath.Join(temporaryDirectory, "present.txt")
	if writeErr := os.WriteFile(presentPath, []byte("content"), 0o600); writeErr != nil {
		testingInstance.Fatalf("write file: %v", writeErr)
	}

	exists, existsErr := fileSystem.FileExists(presentPath)
	if existsErr != nil {
		testingInstance.Fatalf("check existing file: %v", existsErr)
	}
	if !exists {
		testingInstance.Fatalf("expected file to exist")
	}

	missing, missingErr := fileSystem.FileExists(filepath.Join(temporaryDirectory, "missing.txt"))
	if missingErr != nil {
		testingInstance.Fatalf("check missing file: %v", missingErr)
	}
	if missing {
		testingInstance.Fatalf("expected file to be absent")
	}
}

func TestOperatingSystemFileSystemWriteAndChmod(testingInstance *testing.T) {
	fileSystem := system.NewOperatingSystemFileSystem()
	temporaryDirectory := testingInstance.TempDir()
	targetPath := filepath.Join(temporaryDirectory, "nested", "target.txt")

	if ensureErr := fileSystem.EnsureDirectory(filepath.Dir(targetPath), 0o755); ensureErr != nil {
		testingInstance.Fatalf("ensure directory: %v", ensureErr)
	}
	if writeErr := fileSystem.WriteFile(targetPath, []byte("content"), 0o600); writeErr != nil {
		testingInstance.Fatalf("write file: %v", writeErr)
	}
	if chmodErr := fileSystem.Chmod(targetPath, 0o644); chmodErr != nil {
		testingInstance.Fatalf("chmod file: %v", chmodErr)
	}

	statInfo, statErr := os.Stat(targetPath)
	if statErr != nil {
		testingInstance.Fatalf("stat file: %v", statErr)
	}
	if statInfo.Mode().Perm() != 0o644 {
		testingInstance.Fatalf("expected mode 0644, got %v", statInfo.Mode().Perm())
	}

	renamedPath := filepath.Join(temporaryDirectory, "renamed.txt")
	if renameErr := fileSystem.Rename(targetPath, renamedPath); renameErr != nil {
		testingInstance.Fatalf("rename file: %v", renameErr)
	}
	content, readErr := fileSystem.ReadFile(renamedPath)
	if readErr != nil {
		testingInstance.Fatalf("read renamed file: %v", readErr)
	}
	if string(content) != "content" {
		testingInstance.Fatalf("unexpected content %q", string(content))
	}
}
