package certificates_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/fkrzski/docker-proxy/internal/certificates"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

type recordingCommandRunner struct {
	executed    []string
	errorsByKey map[string]error
}

func newRecordingCommandRunner() *recordingCommandRunner {
	return &recordingCommandRunner{executed: []string{}, errorsByKey: map[string]error{}}
}

func (runner *recordingCommandRunner) Run(ctx context.Context, executable string, arguments []string) error {
	key := fmt.Sprintf("%s %s", executable, strings.Join(arguments, " "))
	runner.executed = append(runner.executed, key)
	return runner.errorsByKey[key]
}

func (runner *recordingCommandRunner) RunOutput(ctx context.Context, executable string, arguments []string) (string, error) {
	return "", runner.Run(ctx, executable, arguments)
}

type trackingFileSystem struct {
	files        map[string]string
	chmodCalls   []string
	generateOnto map[string]string
}

func newTrackingFileSystem() *trackingFileSystem {
	return &trackingFileSystem{files: map[string]string{}, chmodCalls: []string{}}
}

func (fileSystem *trackingFileSystem) FileExists(path string) (bool, error) {
	_, found := fileSystem.files[path]
	return found, nil
}

func (fileSystem *trackingFileSystem) ReadFile(path string) ([]byte, error) {
	content, found := fileSystem.files[path]
	if !found {
		return nil, fs.ErrNotExist
	}
	return []byte(content), nil
}

func (fileSystem *trackingFileSystem) WriteFile(path string, content []byte, permissions fs.FileMode) error {
	fileSystem.files[path] = string(content)
	return nil
}

func (fileSystem *trackingFileSystem) EnsureDirectory(path string, permissions fs.FileMode) error {
	return nil
}

func (fileSystem *trackingFileSystem) Chmod(path string, permissions fs.FileMode) error {
	if _, found := fileSystem.files[path]; !found {
		return fs.ErrNotExist
	}
	fileSystem.chmodCalls = append(fileSystem.chmodCalls, fmt.Sprintf("%s %o", path, permissions))
	return nil
}

func (fileSystem *trackingFileSystem) Rename(oldPath string, newPath string) error {
	content, found := fileSystem.files[oldPath]
	if !found {
		return fs.ErrNotExist
	}
	delete(fileSystem.files, oldPath)
	fileSystem.files[newPath] = content
	return nil
}

func (fileSystem *trackingFileSystem) Remove(path string) error {
	delete(fileSystem.files, path)
	return nil
}

// materializingRunner simulates the certificate tool writing its outputs.
type materializingRunner struct {
	*recordingCommandRunner
	fileSystem *trackingFileSystem
	paths      []string
}

func (runner *materializingRunner) Run(ctx context.Context, executable string, arguments []string) error {
	err := runner.recordingCommandRunner.Run(ctx, executable, arguments)
	if err != nil {
		return err
	}
	for _, path := range runner.paths {
		runner.fileSystem.files[path] = "pem-material"
	}
	return nil
}

func (runner *materializingRunner) RunOutput(ctx context.Context, executable string, arguments []string) (string, error) {
	return "", runner.Run(ctx, executable, arguments)
}

func defaultRequest() certificates.Request {
	return certificates.Request{
		Domains:               []string{"docker.localhost", "*.docker.localhost", "127.0.0.1", "::1"},
		CertificateOutputPath: "/certs/local-cert.pem",
		PrivateKeyOutputPath:  "/certs/local-key.pem",
	}
}

func TestGenerateInvokesToolWhenFilesMissing(testingInstance *testing.T) {
	fileSystem := newTrackingFileSystem()
	runner := &materializingRunner{
		recordingCommandRunner: newRecordingCommandRunner(),
		fileSystem:             fileSystem,
		paths:                  []string{"/certs/local-cert.pem", "/certs/local-key.pem"},
	}
	generator := certificates.NewLeafGenerator(runner, fileSystem, logging.NewTestService(logging.TypeConsole), "mkcert")

	err := generator.Generate(context.Background(), defaultRequest())
	if err != nil {
		testingInstance.Fatalf("generate: %v", err)
	}

	expectedCommand := "mkcert -cert-file /certs/local-cert.pem -key-file /certs/local-key.pem docker.localhost *.docker.localhost 127.0.0.1 ::1"
	if len(runner.executed) != 1 || runner.executed[0] != expectedCommand {
		testingInstance.Fatalf("unexpected commands %v", runner.executed)
	}
	if len(fileSystem.chmodCalls) != 2 {
		testingInstance.Fatalf("expected permissions asserted on both files, got %v", fileSystem.chmodCalls)
	}
}

func TestGenerateSkipsWhenBothFilesExist(testingInstance *testing.T) {
	fileSystem := newTrackingFileSystem()
	fileSystem.files["/certs/local-cert.pem"] = "existing-cert"
	fileSystem.files["/certs/local-key.pem"] = "existing-key"
	runner := newRecordingCommandRunner()
	generator := certificates.NewLeafGenerator(runner, fileSystem, logging.NewTestService(logging.TypeConsole), "mkcert")

	err := generator.Generate(context.Background(), defaultRequest())
	if err != nil {
		testingInstance.Fatalf("generate: %v", err)
	}

	if len(runner.executed) != 0 {
		testingInstance.Fatalf("expected no tool invocation, got %v", runner.executed)
	}
	if fileSystem.files["/certs/local-cert.pem"] != "existing-cert" || fileSystem.files["/certs/local-key.pem"] != "existing-key" {
		testingInstance.Fatalf("expected existing files untouched")
	}
	if len(fileSystem.chmodCalls) != 2 {
		testingInstance.Fatalf("expected permissions reasserted on both files, got %v", fileSystem.chmodCalls)
	}
	for _, chmodCall := range fileSystem.chmodCalls {
		if !strings.HasSuffix(chmodCall, " 644") {
			testingInstance.Fatalf("expected mode 0644, got %q", chmodCall)
		}
	}
}

func TestGenerateSkipsWhenOnlyOneFileExists(testingInstance *testing.T) {
	fileSystem := newTrackingFileSystem()
	fileSystem.files["/certs/local-cert.pem"] = "existing-cert"
	runner := newRecordingCommandRunner()
	generator := certificates.NewLeafGenerator(runner, fileSystem, logging.NewTestService(logging.TypeConsole), "mkcert")

	err := generator.Generate(context.Background(), defaultRequest())
	if err != nil {
		testingInstance.Fatalf("generate: %v", err)
	}
	if len(runner.executed) != 0 {
		testingInstance.Fatalf("expected no tool invocation, got %v", runner.executed)
	}
	if len(fileSystem.chmodCalls) != 1 {
		testingInstance.Fatalf("expected permissions asserted on the present file only, got %v", fileSystem.chmodCalls)
	}
}

func TestGenerateWrapsToolFailure(testingInstance *testing.T) {
	fileSystem := newTrackingFileSystem()
	runner := newRecordingCommandRunner()
	runner.errorsByKey["mkcert -cert-file /certs/local-cert.pem -key-file /certs/local-key.pem docker.localhost *.docker.localhost 127.0.0.1 ::1"] = errors.New("CA not initialized")
	generator := certificates.NewLeafGenerator(runner, fileSystem, logging.NewTestService(logging.TypeConsole), "mkcert")

	err := generator.Generate(context.Background(), defaultRequest())
	if !errors.Is(err, certificates.ErrGeneration) {
		testingInstance.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGenerateRejectsEmptyDomains(testingInstance *testing.T) {
	generator := certificates.NewLeafGenerator(newRecordingCommandRunner(), newTrackingFileSystem(), logging.NewTestService(logging.TypeConsole), "mkcert")
	err := generator.Generate(context.Background(), certificates.Request{
		CertificateOutputPath: "/certs/local-cert.pem",
		PrivateKeyOutputPath:  "/certs/local-key.pem",
	})
	if !errors.Is(err, certificates.ErrGeneration) {
		testingInstance.Fatalf("expected ErrGeneration, got %v", err)
	}
}
