package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/fkrzski/docker-proxy/internal/certificates"
	"github.com/fkrzski/docker-proxy/internal/certtool"
	"github.com/fkrzski/docker-proxy/pkg/logging"
)

type contextKey string

const (
	contextKeyApplicationResources contextKey = "application-resources"

	defaultApplicationName = "docker-proxy"
	defaultConfigFileName  = "config"
	defaultConfigFileType  = "yaml"

	defaultDomainRoot           = "docker.localhost"
	defaultCertificateDirectory = "./certs"
	defaultNetworkName          = "proxy"
	defaultComposeFilePath      = "docker-compose.yml"
	defaultEnvTemplateFilePath  = ".env.template"
	defaultEnvFilePath          = ".env"

	flagNameConfigFile     = "config"
	flagNameDomainRoot     = "domain"
	flagNameCertificateDir = "cert-dir"
	flagNameNetworkName    = "network"
	flagNameComposeFile    = "compose-file"
	flagNameInstallDir     = "install-dir"
	flagNameLoggingType    = "logging-type"
	flagNameLogFile        = "log-file"

	configKeyDomainRoot           = "proxy.domain_root"
	configKeyCertificateDirectory = "certificates.directory"
	configKeyCertificateFileName  = "certificates.certificate_file"
	configKeyPrivateKeyFileName   = "certificates.private_key_file"
	configKeyInstallDirectory     = "tool.install_directory"
	configKeyNetworkName          = "stack.network_name"
	configKeyComposeFilePath      = "stack.compose_file"
	configKeyEnvTemplateFilePath  = "stack.env_template_file"
	configKeyEnvFilePath          = "stack.env_file"
	configKeyLoggingType          = "log.type"
	configKeyLogFilePath          = "log.file"

	logMessageFailedInitializeLogger = "failed to initialize logger"
	logMessageResolveUserConfigDir   = "resolve user config directory"
	logMessageCommandExecutionFailed = "command execution failed"
)

type applicationResources struct {
	configurationManager *viper.Viper
	loggingService       *logging.Service
	defaultConfigDirPath string
	currentLogFilePath   string
}

func (resources *applicationResources) updateLogger(loggingType string, logFilePath string) error {
	normalizedType, err := logging.NormalizeType(loggingType)
	if err != nil {
		return err
	}
	if resources.loggingService != nil && resources.loggingService.Type() == normalizedType && resources.currentLogFilePath == logFilePath {
		return nil
	}
	service, err := logging.NewServiceWithFile(normalizedType, logFilePath)
	if err != nil {
		return err
	}
	if resources.loggingService != nil {
		_ = resources.loggingService.Sync()
	}
	resources.loggingService = service
	resources.currentLogFilePath = logFilePath
	return nil
}

func (resources *applicationResources) loggingType() string {
	if resources.loggingService == nil {
		return logging.TypeConsole
	}
	return resources.loggingService.Type()
}

// Execute runs the CLI using the provided context and arguments, returning an exit code.
func Execute(ctx context.Context, arguments []string) int {
	initialService, err := logging.NewService(logging.TypeConsole)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", logMessageFailedInitializeLogger, err)
		return 1
	}
	configurationManager := viper.New()
	environmentPrefix := strings.ReplaceAll(strings.ToUpper(defaultApplicationName), "-", "_")
	configurationManager.SetEnvPrefix(environmentPrefix)
	configurationManager.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configurationManager.AutomaticEnv()

	userConfigDir, userConfigErr := os.UserConfigDir()
	if userConfigErr != nil {
		initialService.Error(logMessageResolveUserConfigDir, userConfigErr)
		return 1
	}
	applicationConfigDir := filepath.Join(userConfigDir, defaultApplicationName)

	configureDefaults(configurationManager)
	resources := &applicationResources{
		configurationManager: configurationManager,
		loggingService:       initialService,
		defaultConfigDirPath: applicationConfigDir,
	}
	if err := resources.updateLogger(configurationManager.GetString(configKeyLoggingType), configurationManager.GetString(configKeyLogFilePath)); err != nil {
		resources.loggingService = initialService
		resources.loggingService.Error(logMessageFailedInitializeLogger, err)
		return 1
	}
	defer func() {
		if resources.loggingService != nil {
			_ = resources.loggingService.Sync()
		}
	}()

	rootCommand := newRootCommand(resources)
	baseContext := context.WithValue(ctx, contextKeyApplicationResources, resources)
	rootCommand.SetContext(baseContext)
	rootCommand.SetArgs(arguments)

	if executionErr := rootCommand.Execute(); executionErr != nil {
		resources.loggingService.Error(logMessageCommandExecutionFailed, executionErr)
		return 1
	}

	return 0
}

func configureDefaults(configurationManager *viper.Viper) {
	configurationManager.SetDefault(configKeyDomainRoot, defaultDomainRoot)
	configurationManager.SetDefault(configKeyCertificateDirectory, defaultCertificateDirectory)
	configurationManager.SetDefault(configKeyCertificateFileName, certificates.DefaultLeafCertificateFileName)
	configurationManager.SetDefault(configKeyPrivateKeyFileName, certificates.DefaultLeafPrivateKeyFileName)
	configurationManager.SetDefault(configKeyInstallDirectory, certtool.DefaultInstallDirectoryPath)
	configurationManager.SetDefault(configKeyNetworkName, defaultNetworkName)
	configurationManager.SetDefault(configKeyComposeFilePath, defaultComposeFilePath)
	configurationManager.SetDefault(configKeyEnvTemplateFilePath, defaultEnvTemplateFilePath)
	configurationManager.SetDefault(configKeyEnvFilePath, defaultEnvFilePath)
	configurationManager.SetDefault(configKeyLoggingType, logging.TypeConsole)
	configurationManager.SetDefault(configKeyLogFilePath, "")
}
