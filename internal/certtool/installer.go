package certtool

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fkrzski/docker-proxy/internal/pkgmanager"
	"github.com/fkrzski/docker-proxy/internal/platform"
	"github.com/fkrzski/docker-proxy/internal/system"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

const (
	// BinaryName is the certificate tool this installer provisions.
	BinaryName = "mkcert"

	// DefaultInstallDirectoryPath is where downloaded binaries land unless
	// configured otherwise.
	DefaultInstallDirectoryPath = "/usr/local/bin"

	downloadBaseURL      = "https://dl.filippo.io/mkcert/latest"
	partialDownloadName  = ".mkcert.partial"
	installedBinaryMode  = 0o755
	versionCheckArgument = "-version"
)

var (
	// ErrUnsupportedPlatform is returned when no download target exists for
	// the detected platform. This is the only stage where an unknown
	// platform is fatal: there is no binary to fetch for it.
	ErrUnsupportedPlatform = errors.New("unsupported platform for certificate tool download")

	// ErrInstall is returned when a viable installation path failed.
	ErrInstall = errors.New("certificate tool installation failed")
)

// ProgressReporter surfaces long-running installer steps to the user.
type ProgressReporter interface {
	Start(message string)
	Stop()
}

// NopProgressReporter discards progress updates.
type NopProgressReporter struct{}

func (NopProgressReporter) Start(message string) {}
func (NopProgressReporter) Stop()                {}

// Configuration controls where the certificate tool is installed.
type Configuration struct {
	InstallDirectoryPath string
}

// Installer ensures the certificate tool is present on PATH, installing it
// through the resolved package manager or by direct binary download.
type Installer struct {
	commandRunner    system.CommandRunner
	binaryLocator    system.BinaryLocator
	fileSystem       system.FileSystem
	downloader       Downloader
	progressReporter ProgressReporter
	loggingService   *logging.Service
	configuration    Configuration
}

// NewInstaller constructs an Installer.
func NewInstaller(
	commandRunner system.CommandRunner,
	binaryLocator system.BinaryLocator,
	fileSystem system.FileSystem,
	downloader Downloader,
	progressReporter ProgressReporter,
	loggingService *logging.Service,
	configuration Configuration,
) Installer {
	if configuration.InstallDirectoryPath == "" {
		configuration.InstallDirectoryPath = DefaultInstallDirectoryPath
	}
	if progressReporter == nil {
		progressReporter = NopProgressReporter{}
	}
	return Installer{
		commandRunner:    commandRunner,
		binaryLocator:    binaryLocator,
		fileSystem:       fileSystem,
		downloader:       downloader,
		progressReporter: progressReporter,
		loggingService:   loggingService,
		configuration:    configuration,
	}
}

// DownloadURL derives the upstream download URL for the platform. It fails
// with ErrUnsupportedPlatform when the platform has no published binary.
func DownloadURL(profile platform.Profile) (string, error) {
	var osToken string
	switch profile.OSFamily {
	case platform.OSFamilyMacOS:
		osToken = "darwin"
	case platform.OSFamilyLinux, platform.OSFamilyWSL2:
		osToken = "linux"
	default:
		return "", fmt.Errorf("%w: os family %s", ErrUnsupportedPlatform, profile.OSFamily)
	}

	var archToken string
	switch profile.Architecture {
	case platform.ArchitectureAMD64:
		archToken = "amd64"
	case platform.ArchitectureARM64:
		archToken = "arm64"
	case platform.ArchitectureARMv7:
		archToken = "arm"
	default:
		return "", fmt.Errorf("%w: architecture %s", ErrUnsupportedPlatform, profile.RawMachineHardware)
	}

	return fmt.Sprintf("%s?for=%s/%s", downloadBaseURL, osToken, archToken), nil
}

// EnsureInstalled makes the certificate tool available on PATH. An already
// resolvable binary that answers a version check is treated as installed.
func (installer Installer) EnsureInstalled(ctx context.Context, platformProfile platform.Profile, packageManagerProfile pkgmanager.Profile) error {
	if err := installer.ensureTrustDependency(ctx, packageManagerProfile); err != nil {
		return err
	}

	binaryPath, lookErr := installer.binaryLocator.LookPath(BinaryName)
	if lookErr == nil {
		versionErr := installer.commandRunner.Run(ctx, binaryPath, []string{versionCheckArgument})
		if versionErr == nil {
			installer.loggingService.Info("certificate tool already installed", logging.String("path", binaryPath))
			return nil
		}
		// A resolvable binary that cannot report its version is most likely
		// a truncated artifact from an interrupted download. Reinstall over it.
		installer.loggingService.Warn("certificate tool on PATH failed version check, reinstalling", logging.String("path", binaryPath))
	}

	if platformProfile.OSFamily == platform.OSFamilyMacOS && packageManagerProfile.Name == pkgmanager.NameBrew {
		brewErr := installer.installWithPackageManager(ctx, packageManagerProfile, BinaryName)
		if brewErr == nil {
			installer.loggingService.Info("certificate tool installed via brew")
			return nil
		}
		installer.loggingService.Warn("brew install failed, falling back to direct download", logging.ErrorField(brewErr))
	}

	return installer.installFromDownload(ctx, platformProfile)
}

func (installer Installer) installFromDownload(ctx context.Context, platformProfile platform.Profile) error {
	url, urlErr := DownloadURL(platformProfile)
	if urlErr != nil {
		return urlErr
	}

	partialPath := filepath.Join(installer.configuration.InstallDirectoryPath, partialDownloadName)
	finalPath := filepath.Join(installer.configuration.InstallDirectoryPath, BinaryName)

	installer.loggingService.Info("downloading certificate tool", logging.String("url", url))
	installer.progressReporter.Start("downloading " + BinaryName)
	downloadErr := installer.downloader.Download(ctx, url, partialPath)
	installer.progressReporter.Stop()
	if downloadErr != nil {
		return fmt.Errorf("%w: %v", ErrInstall, downloadErr)
	}

	if chmodErr := installer.fileSystem.Chmod(partialPath, installedBinaryMode); chmodErr != nil {
		return fmt.Errorf("%w: mark downloaded binary executable: %v", ErrInstall, chmodErr)
	}

	// The partial file becomes the installed binary only after it proves it
	// can run, so an interrupted download can never masquerade as a
	// completed install on the next invocation.
	if verifyErr := installer.commandRunner.Run(ctx, partialPath, []string{versionCheckArgument}); verifyErr != nil {
		_ = installer.fileSystem.Remove(partialPath)
		return fmt.Errorf("%w: downloaded binary failed verification: %v", ErrInstall, verifyErr)
	}

	if renameErr := installer.fileSystem.Rename(partialPath, finalPath); renameErr != nil {
		return fmt.Errorf("%w: move binary into %s (elevated privileges may be required): %v", ErrInstall, installer.configuration.InstallDirectoryPath, renameErr)
	}

	installer.loggingService.Info("certificate tool installed", logging.String("path", finalPath))
	return nil
}

func (installer Installer) ensureTrustDependency(ctx context.Context, packageManagerProfile pkgmanager.Profile) error {
	if packageManagerProfile.Name == pkgmanager.NameUnknown {
		installer.loggingService.Warn("no known package manager found; " + pkgmanager.ManualInstallGuidance)
		return nil
	}

	queryErr := installer.runShellTemplate(ctx, packageManagerProfile.QueryInstalledCommandTemplate, packageManagerProfile.TrustDependencyPackage)
	if queryErr == nil {
		installer.loggingService.Info("trust dependency already installed", logging.String("package", packageManagerProfile.TrustDependencyPackage))
		return nil
	}

	installer.loggingService.Info("installing trust dependency", logging.String("package", packageManagerProfile.TrustDependencyPackage))
	installErr := installer.runShellTemplate(ctx, packageManagerProfile.InstallCommandTemplate, packageManagerProfile.TrustDependencyPackage)
	if installErr != nil {
		return fmt.Errorf("%w: install %s: %v", ErrInstall, packageManagerProfile.TrustDependencyPackage, installErr)
	}
	return nil
}

func (installer Installer) installWithPackageManager(ctx context.Context, packageManagerProfile pkgmanager.Profile, packageName string) error {
	return installer.runShellTemplate(ctx, packageManagerProfile.InstallCommandTemplate, packageName)
}

// runShellTemplate executes a package-manager command template with the
// package name appended. Templates run through the shell because the apt
// template chains two commands with &&.
func (installer Installer) runShellTemplate(ctx context.Context, commandTemplate string, packageName string) error {
	return installer.commandRunner.Run(ctx, "sh", []string{"-c", fmt.Sprintf("%s %s", commandTemplate, packageName)})
}
