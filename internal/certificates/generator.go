package certificates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fkrzski/docker-proxy/internal/system"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

const (
	// DefaultLeafCertificateFileName and DefaultLeafPrivateKeyFileName are
	// the fixed artifact names inside the certificate directory.
	DefaultLeafCertificateFileName = "local-cert.pem"
	DefaultLeafPrivateKeyFileName  = "local-key.pem"

	// Both leaf files are world-readable: in the local-only developer trust
	// model the wildcard key is shared with the proxy container and is not
	// secret-critical.
	DefaultCertificateFileMode fs.FileMode = 0o644

	certificateDirectoryMode fs.FileMode = 0o755
)

// ErrGeneration is returned when the certificate tool reported failure while
// issuing the leaf certificate.
var ErrGeneration = errors.New("certificate generation failed")

// Request describes the desired leaf certificate and its output paths.
type Request struct {
	Domains               []string
	CertificateOutputPath string
	PrivateKeyOutputPath  string
}

// LeafGenerator issues a wildcard leaf certificate for the local development
// domain set by delegating to the certificate tool.
type LeafGenerator struct {
	commandRunner  system.CommandRunner
	fileSystem     system.FileSystem
	loggingService *logging.Service
	toolBinaryName string
}

// NewLeafGenerator constructs a LeafGenerator.
func NewLeafGenerator(commandRunner system.CommandRunner, fileSystem system.FileSystem, loggingService *logging.Service, toolBinaryName string) LeafGenerator {
	return LeafGenerator{
		commandRunner:  commandRunner,
		fileSystem:     fileSystem,
		loggingService: loggingService,
		toolBinaryName: toolBinaryName,
	}
}

// Generate issues the leaf certificate for the requested domains. Generation
// is skipped when either output file already exists; the file-mode assertion
// runs on every invocation regardless, self-healing permission drift.
func (generator LeafGenerator) Generate(ctx context.Context, request Request) error {
	if len(request.Domains) == 0 {
		return fmt.Errorf("%w: at least one domain is required", ErrGeneration)
	}

	certificateExists, certificateExistsErr := generator.fileSystem.FileExists(request.CertificateOutputPath)
	if certificateExistsErr != nil {
		return fmt.Errorf("check existing certificate: %w", certificateExistsErr)
	}
	privateKeyExists, privateKeyExistsErr := generator.fileSystem.FileExists(request.PrivateKeyOutputPath)
	if privateKeyExistsErr != nil {
		return fmt.Errorf("check existing private key: %w", privateKeyExistsErr)
	}

	switch {
	case certificateExists && privateKeyExists:
		generator.loggingService.Info("certificate files already exist, skipping generation")
	case certificateExists || privateKeyExists:
		generator.loggingService.Warn("certificate file pair is incomplete; remove both files to regenerate",
			logging.String("certificate", request.CertificateOutputPath),
			logging.String("private_key", request.PrivateKeyOutputPath))
	default:
		if generateErr := generator.generate(ctx, request); generateErr != nil {
			return generateErr
		}
		certificateExists = true
		privateKeyExists = true
	}

	if certificateExists {
		if chmodErr := generator.fileSystem.Chmod(request.CertificateOutputPath, DefaultCertificateFileMode); chmodErr != nil {
			return fmt.Errorf("reassert certificate file mode: %w", chmodErr)
		}
	}
	if privateKeyExists {
		if chmodErr := generator.fileSystem.Chmod(request.PrivateKeyOutputPath, DefaultCertificateFileMode); chmodErr != nil {
			return fmt.Errorf("reassert private key file mode: %w", chmodErr)
		}
	}
	return nil
}

func (generator LeafGenerator) generate(ctx context.Context, request Request) error {
	outputDirectory := filepath.Dir(request.CertificateOutputPath)
	if ensureErr := generator.fileSystem.EnsureDirectory(outputDirectory, certificateDirectoryMode); ensureErr != nil {
		return fmt.Errorf("ensure certificate directory: %w", ensureErr)
	}

	generator.loggingService.Info("generating leaf certificate", logging.Strings("domains", request.Domains))
	arguments := []string{
		"-cert-file", request.CertificateOutputPath,
		"-key-file", request.PrivateKeyOutputPath,
	}
	arguments = append(arguments, request.Domains...)
	if runErr := generator.commandRunner.Run(ctx, generator.toolBinaryName, arguments); runErr != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, runErr)
	}
	return nil
}
