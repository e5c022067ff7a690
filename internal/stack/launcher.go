package stack

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/fkrzski/docker-proxy/internal/system"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

const (
	dockerBinaryName            = "docker"
	standaloneComposeBinaryName = "docker-compose"

	envFileMode              = 0o644
	composeProjectNameEnvKey = "COMPOSE_PROJECT_NAME"
)

var (
	// ErrNetworkEnsure is returned when the container network could not be
	// created.
	ErrNetworkEnsure = errors.New("container network provisioning failed")

	// ErrLaunch is returned when the orchestration layer failed to start or
	// stop the container stack. The underlying output is surfaced verbatim.
	ErrLaunch = errors.New("container stack launch failed")
)

// Configuration controls which compose file and network the launcher manages.
type Configuration struct {
	NetworkName         string
	ComposeFilePath     string
	EnvTemplateFilePath string
	EnvFilePath         string
}

// Launcher ensures the external container network exists, materializes the
// environment file from its template, and starts the declared container
// stack in detached mode. No operation retries: any failure from the
// container daemon is fatal and reported as-is.
type Launcher struct {
	commandRunner  system.CommandRunner
	binaryLocator  system.BinaryLocator
	fileSystem     system.FileSystem
	loggingService *logging.Service
	configuration  Configuration
}

// NewLauncher constructs a Launcher.
func NewLauncher(commandRunner system.CommandRunner, binaryLocator system.BinaryLocator, fileSystem system.FileSystem, loggingService *logging.Service, configuration Configuration) Launcher {
	return Launcher{
		commandRunner:  commandRunner,
		binaryLocator:  binaryLocator,
		fileSystem:     fileSystem,
		loggingService: loggingService,
		configuration:  configuration,
	}
}

// EnsureNetwork creates the named container network if it does not exist.
func (launcher Launcher) EnsureNetwork(ctx context.Context, name string) error {
	inspectErr := launcher.commandRunner.Run(ctx, dockerBinaryName, []string{"network", "inspect", name})
	if inspectErr == nil {
		launcher.loggingService.Info("container network already exists", logging.String("network", name))
		return nil
	}

	launcher.loggingService.Info("creating container network", logging.String("network", name))
	createErr := launcher.commandRunner.Run(ctx, dockerBinaryName, []string{"network", "create", name})
	if createErr != nil {
		return fmt.Errorf("%w: %v", ErrNetworkEnsure, createErr)
	}
	return nil
}

// EnsureEnvFile materializes targetPath from templatePath on first run only.
// The copy is byte-verbatim; the template is parsed beforehand so a
// malformed template fails here instead of inside the compose run.
func (launcher Launcher) EnsureEnvFile(ctx context.Context, templatePath string, targetPath string) error {
	targetExists, targetExistsErr := launcher.fileSystem.FileExists(targetPath)
	if targetExistsErr != nil {
		return fmt.Errorf("check environment file: %w", targetExistsErr)
	}
	if targetExists {
		launcher.loggingService.Info("environment file already exists", logging.String("path", targetPath))
		return nil
	}

	templateContent, readErr := launcher.fileSystem.ReadFile(templatePath)
	if readErr != nil {
		return fmt.Errorf("read environment template: %w", readErr)
	}
	entries, parseErr := godotenv.Parse(bytes.NewReader(templateContent))
	if parseErr != nil {
		return fmt.Errorf("environment template is malformed: %w", parseErr)
	}

	if writeErr := launcher.fileSystem.WriteFile(targetPath, templateContent, envFileMode); writeErr != nil {
		return fmt.Errorf("write environment file: %w", writeErr)
	}

	if projectName, found := entries[composeProjectNameEnvKey]; found {
		launcher.loggingService.Info("environment file created", logging.String("path", targetPath), logging.String("project", projectName))
		return nil
	}
	launcher.loggingService.Info("environment file created", logging.String("path", targetPath))
	return nil
}

// Launch starts the declared container stack in detached mode.
func (launcher Launcher) Launch(ctx context.Context) error {
	executable, baseArguments, resolveErr := launcher.composeCommand(ctx)
	if resolveErr != nil {
		return resolveErr
	}

	arguments := append(baseArguments, "-f", launcher.configuration.ComposeFilePath, "up", "-d")
	launcher.loggingService.Info("starting container stack", logging.String("compose_file", launcher.configuration.ComposeFilePath))
	if runErr := launcher.commandRunner.Run(ctx, executable, arguments); runErr != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, runErr)
	}
	return nil
}

// Down stops the container stack.
func (launcher Launcher) Down(ctx context.Context) error {
	executable, baseArguments, resolveErr := launcher.composeCommand(ctx)
	if resolveErr != nil {
		return resolveErr
	}

	arguments := append(baseArguments, "-f", launcher.configuration.ComposeFilePath, "down")
	launcher.loggingService.Info("stopping container stack", logging.String("compose_file", launcher.configuration.ComposeFilePath))
	if runErr := launcher.commandRunner.Run(ctx, executable, arguments); runErr != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, runErr)
	}
	return nil
}

// composeCommand prefers the docker compose plugin and falls back to the
// standalone docker-compose binary.
func (launcher Launcher) composeCommand(ctx context.Context) (string, []string, error) {
	if _, dockerErr := launcher.binaryLocator.LookPath(dockerBinaryName); dockerErr == nil {
		if pluginErr := launcher.commandRunner.Run(ctx, dockerBinaryName, []string{"compose", "version"}); pluginErr == nil {
			return dockerBinaryName, []string{"compose"}, nil
		}
	}
	if _, standaloneErr := launcher.binaryLocator.LookPath(standaloneComposeBinaryName); standaloneErr == nil {
		return standaloneComposeBinaryName, []string{}, nil
	}
	return "", nil, fmt.Errorf("%w: neither the docker compose plugin nor docker-compose is available; install Docker Desktop or the compose plugin", ErrLaunch)
}
