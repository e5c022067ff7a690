package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fkrzski/docker-proxy/internal/bootstrap"
	"github.com/fkrzski/docker-proxy/internal/certificates"
	"github.com/fkrzski/docker-proxy/internal/certtool"
	"github.com/fkrzski/docker-proxy/internal/pkgmanager"
	"github.com/fkrzski/docker-proxy/internal/platform"
	"github.com/fkrzski/docker-proxy/internal/stack"
	"github.com/fkrzski/docker-proxy/internal/system"
)

// environmentConfiguration is the fully resolved view of the viper state the
// commands operate on.
type environmentConfiguration struct {
	Domains               []string
	CertificateOutputPath string
	PrivateKeyOutputPath  string
	InstallDirectoryPath  string
	NetworkName           string
	ComposeFilePath       string
	EnvTemplateFilePath   string
	EnvFilePath           string
}

// environmentComponents bundles the bootstrap stages wired against the real
// host so individual subcommands can run a single stage.
type environmentComponents struct {
	platformDetector      platform.Detector
	packageManagerResolve pkgmanager.Resolver
	certToolInstaller     certtool.Installer
	authorityBootstrapper certificates.AuthorityBootstrapper
	leafGenerator         certificates.LeafGenerator
	stackLauncher         stack.Launcher
	configuration         environmentConfiguration
}

func resolveEnvironmentConfiguration(configurationManager *viper.Viper) (environmentConfiguration, error) {
	domainRoot := strings.TrimSpace(configurationManager.GetString(configKeyDomainRoot))
	if domainRoot == "" {
		return environmentConfiguration{}, errors.New("domain root is not configured")
	}
	if strings.ContainsAny(domainRoot, " *") {
		return environmentConfiguration{}, fmt.Errorf("invalid domain root %q", domainRoot)
	}

	certificateDirectory := strings.TrimSpace(configurationManager.GetString(configKeyCertificateDirectory))
	if certificateDirectory == "" {
		return environmentConfiguration{}, errors.New("certificate directory is not configured")
	}
	absoluteCertificateDirectory, absoluteErr := filepath.Abs(certificateDirectory)
	if absoluteErr != nil {
		return environmentConfiguration{}, fmt.Errorf("resolve certificate directory: %w", absoluteErr)
	}

	networkName := strings.TrimSpace(configurationManager.GetString(configKeyNetworkName))
	if networkName == "" {
		return environmentConfiguration{}, errors.New("network name is not configured")
	}

	return environmentConfiguration{
		Domains: []string{
			domainRoot,
			"*." + domainRoot,
			"127.0.0.1",
			"::1",
		},
		CertificateOutputPath: filepath.Join(absoluteCertificateDirectory, configurationManager.GetString(configKeyCertificateFileName)),
		PrivateKeyOutputPath:  filepath.Join(absoluteCertificateDirectory, configurationManager.GetString(configKeyPrivateKeyFileName)),
		InstallDirectoryPath:  configurationManager.GetString(configKeyInstallDirectory),
		NetworkName:           networkName,
		ComposeFilePath:       configurationManager.GetString(configKeyComposeFilePath),
		EnvTemplateFilePath:   configurationManager.GetString(configKeyEnvTemplateFilePath),
		EnvFilePath:           configurationManager.GetString(configKeyEnvFilePath),
	}, nil
}

func buildEnvironmentComponents(resources *applicationResources) (environmentComponents, error) {
	configuration, configurationErr := resolveEnvironmentConfiguration(resources.configurationManager)
	if configurationErr != nil {
		return environmentComponents{}, configurationErr
	}

	commandRunner := system.NewExecutableRunner()
	binaryLocator := system.NewExecutableLocator()
	fileSystem := system.NewOperatingSystemFileSystem()
	loggingService := resources.loggingService

	return environmentComponents{
		platformDetector:      platform.NewDetector(commandRunner, fileSystem),
		packageManagerResolve: pkgmanager.NewResolver(binaryLocator),
		certToolInstaller: certtool.NewInstaller(
			commandRunner,
			binaryLocator,
			fileSystem,
			certtool.NewHTTPDownloader(),
			newProgressReporter(resources.loggingType()),
			loggingService,
			certtool.Configuration{InstallDirectoryPath: configuration.InstallDirectoryPath},
		),
		authorityBootstrapper: certificates.NewAuthorityBootstrapper(commandRunner, loggingService, certtool.BinaryName),
		leafGenerator:         certificates.NewLeafGenerator(commandRunner, fileSystem, loggingService, certtool.BinaryName),
		stackLauncher: stack.NewLauncher(commandRunner, binaryLocator, fileSystem, loggingService, stack.Configuration{
			NetworkName:         configuration.NetworkName,
			ComposeFilePath:     configuration.ComposeFilePath,
			EnvTemplateFilePath: configuration.EnvTemplateFilePath,
			EnvFilePath:         configuration.EnvFilePath,
		}),
		configuration: configuration,
	}, nil
}

func runBootstrap(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	components, componentsErr := buildEnvironmentComponents(resources)
	if componentsErr != nil {
		return componentsErr
	}

	runner := bootstrap.NewRunner(
		components.platformDetector,
		components.packageManagerResolve,
		components.certToolInstaller,
		components.authorityBootstrapper,
		components.leafGenerator,
		components.stackLauncher,
		resources.loggingService,
		bootstrap.Configuration{
			Domains:               components.configuration.Domains,
			CertificateOutputPath: components.configuration.CertificateOutputPath,
			PrivateKeyOutputPath:  components.configuration.PrivateKeyOutputPath,
			NetworkName:           components.configuration.NetworkName,
			EnvTemplateFilePath:   components.configuration.EnvTemplateFilePath,
			EnvFilePath:           components.configuration.EnvFilePath,
		},
	)

	bootstrapContext, cancel := createSignalContext(cmd.Context(), resources.loggingService)
	defer cancel()
	return runner.Run(bootstrapContext)
}

func runCertificateGeneration(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	components, componentsErr := buildEnvironmentComponents(resources)
	if componentsErr != nil {
		return componentsErr
	}

	generationContext, cancel := createSignalContext(cmd.Context(), resources.loggingService)
	defer cancel()
	return components.leafGenerator.Generate(generationContext, certificates.Request{
		Domains:               components.configuration.Domains,
		CertificateOutputPath: components.configuration.CertificateOutputPath,
		PrivateKeyOutputPath:  components.configuration.PrivateKeyOutputPath,
	})
}

func runTrustAssertion(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	components, componentsErr := buildEnvironmentComponents(resources)
	if componentsErr != nil {
		return componentsErr
	}

	trustContext, cancel := createSignalContext(cmd.Context(), resources.loggingService)
	defer cancel()
	return components.authorityBootstrapper.EnsureTrusted(trustContext)
}

func runStackDown(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	components, componentsErr := buildEnvironmentComponents(resources)
	if componentsErr != nil {
		return componentsErr
	}

	downContext, cancel := createSignalContext(cmd.Context(), resources.loggingService)
	defer cancel()
	return components.stackLauncher.Down(downContext)
}
