package bootstrap

import (
	"context"

	"github.com/fkrzski/docker-proxy/internal/certificates"
	"github.com/fkrzski/docker-proxy/internal/pkgmanager"
	"github.com/fkrzski/docker-proxy/internal/platform"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

// PlatformDetector identifies the host platform.
type PlatformDetector interface {
	Detect(ctx context.Context) platform.Profile
}

// PackageManagerResolver probes the host for a known package manager.
type PackageManagerResolver interface {
	Resolve(ctx context.Context) pkgmanager.Profile
}

// CertToolInstaller ensures the certificate tool is available.
type CertToolInstaller interface {
	EnsureInstalled(ctx context.Context, platformProfile platform.Profile, packageManagerProfile pkgmanager.Profile) error
}

// AuthorityBootstrapper asserts the certificate authority into trust stores.
type AuthorityBootstrapper interface {
	EnsureTrusted(ctx context.Context) error
}

// LeafGenerator issues the leaf certificate for the local domain set.
type LeafGenerator interface {
	Generate(ctx context.Context, request certificates.Request) error
}

// StackLauncher manages the container network, environment file, and stack.
type StackLauncher interface {
	EnsureNetwork(ctx context.Context, name string) error
	EnsureEnvFile(ctx context.Context, templatePath string, targetPath string) error
	Launch(ctx context.Context) error
}

// Configuration carries the values the sequence threads through its stages.
type Configuration struct {
	Domains               []string
	CertificateOutputPath string
	PrivateKeyOutputPath  string
	NetworkName           string
	EnvTemplateFilePath   string
	EnvFilePath           string
}

// Runner executes the bootstrap sequence: platform detection, package
// manager resolution, certificate tool installation, trust assertion, leaf
// certificate generation, and stack launch. Execution is strictly
// sequential and fail-fast: the first error halts the run, and repeated
// invocations recover from partial runs through each stage's idempotence
// checks rather than through rollback.
type Runner struct {
	platformDetector       PlatformDetector
	packageManagerResolver PackageManagerResolver
	certToolInstaller      CertToolInstaller
	authorityBootstrapper  AuthorityBootstrapper
	leafGenerator          LeafGenerator
	stackLauncher          StackLauncher
	loggingService         *logging.Service
	configuration          Configuration
}

// NewRunner constructs a Runner.
func NewRunner(
	platformDetector PlatformDetector,
	packageManagerResolver PackageManagerResolver,
	certToolInstaller CertToolInstaller,
	authorityBootstrapper AuthorityBootstrapper,
	leafGenerator LeafGenerator,
	stackLauncher StackLauncher,
	loggingService *logging.Service,
	configuration Configuration,
) Runner {
	return Runner{
		platformDetector:       platformDetector,
		packageManagerResolver: packageManagerResolver,
		certToolInstaller:      certToolInstaller,
		authorityBootstrapper:  authorityBootstrapper,
		leafGenerator:          leafGenerator,
		stackLauncher:          stackLauncher,
		loggingService:         loggingService,
		configuration:          configuration,
	}
}

// Run executes the full bootstrap sequence.
func (runner Runner) Run(ctx context.Context) error {
	platformProfile := runner.platformDetector.Detect(ctx)
	runner.loggingService.Info("platform detected",
		logging.String("os_family", string(platformProfile.OSFamily)),
		logging.String("architecture", string(platformProfile.Architecture)))
	if platformProfile.OSFamily == platform.OSFamilyUnknown {
		runner.loggingService.Warn("operating system not recognized; continuing best-effort, certificate tool download will be unavailable")
	}

	packageManagerProfile := runner.packageManagerResolver.Resolve(ctx)
	if packageManagerProfile.Name == pkgmanager.NameUnknown {
		runner.loggingService.Warn("no known package manager found; " + pkgmanager.ManualInstallGuidance)
	} else {
		runner.loggingService.Info("package manager resolved", logging.String("manager", string(packageManagerProfile.Name)))
	}

	if installErr := runner.certToolInstaller.EnsureInstalled(ctx, platformProfile, packageManagerProfile); installErr != nil {
		return installErr
	}

	if trustErr := runner.authorityBootstrapper.EnsureTrusted(ctx); trustErr != nil {
		return trustErr
	}

	generateErr := runner.leafGenerator.Generate(ctx, certificates.Request{
		Domains:               runner.configuration.Domains,
		CertificateOutputPath: runner.configuration.CertificateOutputPath,
		PrivateKeyOutputPath:  runner.configuration.PrivateKeyOutputPath,
	})
	if generateErr != nil {
		return generateErr
	}

	if networkErr := runner.stackLauncher.EnsureNetwork(ctx, runner.configuration.NetworkName); networkErr != nil {
		return networkErr
	}
	if envErr := runner.stackLauncher.EnsureEnvFile(ctx, runner.configuration.EnvTemplateFilePath, runner.configuration.EnvFilePath); envErr != nil {
		return envErr
	}
	if launchErr := runner.stackLauncher.Launch(ctx); launchErr != nil {
		return launchErr
	}

	runner.loggingService.Info("bootstrap complete",
		logging.Strings("domains", runner.configuration.Domains),
		logging.String("network", runner.configuration.NetworkName))
	return nil
}
