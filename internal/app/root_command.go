package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fkrzski/docker-proxy/pkg/logging"
)

const (
	logFieldSignal           = "signal"
	logMessageReceivedSignal = "received signal"
)

func newRootCommand(resources *applicationResources) *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           defaultApplicationName,
		Short:         "Bootstrap a trusted HTTPS reverse proxy for local container development",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigurationFile(cmd); err != nil {
				return err
			}
			return applyLoggingConfiguration(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd)
		},
	}

	environmentFlags := pflag.NewFlagSet("environment", pflag.ContinueOnError)
	configureEnvironmentFlags(environmentFlags, resources.configurationManager)
	rootCommand.PersistentFlags().AddFlagSet(environmentFlags)
	rootCommand.PersistentFlags().String(flagNameConfigFile, "", "Path to configuration file")

	rootCommand.AddCommand(newCertificatesCommand(resources))
	rootCommand.AddCommand(newTrustCommand(resources))
	rootCommand.AddCommand(newDownCommand(resources))

	return rootCommand
}

func configureEnvironmentFlags(flagSet *pflag.FlagSet, configurationManager *viper.Viper) {
	flagSet.String(flagNameDomainRoot, configurationManager.GetString(configKeyDomainRoot), "Root domain for the local environment (certificates cover it and its wildcard)")
	flagSet.String(flagNameCertificateDir, configurationManager.GetString(configKeyCertificateDirectory), "Directory for generated certificates")
	flagSet.String(flagNameNetworkName, configurationManager.GetString(configKeyNetworkName), "External container network shared with proxied services")
	flagSet.String(flagNameComposeFile, configurationManager.GetString(configKeyComposeFilePath), "Compose file describing the proxy stack")
	flagSet.String(flagNameInstallDir, configurationManager.GetString(configKeyInstallDirectory), "Directory the certificate tool is installed into")
	flagSet.String(flagNameLoggingType, configurationManager.GetString(configKeyLoggingType), "Logging type (CONSOLE or JSON)")
	flagSet.String(flagNameLogFile, configurationManager.GetString(configKeyLogFilePath), "Rotating log file path (disabled when empty)")
	_ = configurationManager.BindPFlag(configKeyDomainRoot, flagSet.Lookup(flagNameDomainRoot))
	_ = configurationManager.BindPFlag(configKeyCertificateDirectory, flagSet.Lookup(flagNameCertificateDir))
	_ = configurationManager.BindPFlag(configKeyNetworkName, flagSet.Lookup(flagNameNetworkName))
	_ = configurationManager.BindPFlag(configKeyComposeFilePath, flagSet.Lookup(flagNameComposeFile))
	_ = configurationManager.BindPFlag(configKeyInstallDirectory, flagSet.Lookup(flagNameInstallDir))
	_ = configurationManager.BindPFlag(configKeyLoggingType, flagSet.Lookup(flagNameLoggingType))
	_ = configurationManager.BindPFlag(configKeyLogFilePath, flagSet.Lookup(flagNameLogFile))
}

func newCertificatesCommand(resources *applicationResources) *cobra.Command {
	return &cobra.Command{
		Use:   "certs",
		Short: "Generate the wildcard certificate for the configured domain root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCertificateGeneration(cmd)
		},
	}
}

func newTrustCommand(resources *applicationResources) *cobra.Command {
	return &cobra.Command{
		Use:   "trust",
		Short: "Install the local certificate authority into the system trust stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrustAssertion(cmd)
		},
	}
}

func newDownCommand(resources *applicationResources) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop the proxy container stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStackDown(cmd)
		},
	}
}

func loadConfigurationFile(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	configurationManager := resources.configurationManager
	configFilePath, flagErr := cmd.Flags().GetString(flagNameConfigFile)
	if flagErr != nil {
		return fmt.Errorf("read config flag: %w", flagErr)
	}
	if configFilePath != "" {
		configurationManager.SetConfigFile(configFilePath)
	} else {
		configurationManager.AddConfigPath(resources.defaultConfigDirPath)
		configurationManager.SetConfigName(defaultConfigFileName)
		configurationManager.SetConfigType(defaultConfigFileType)
	}
	if readErr := configurationManager.ReadInConfig(); readErr != nil {
		if _, notFound := readErr.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("read configuration: %w", readErr)
		}
	}
	return nil
}

func applyLoggingConfiguration(cmd *cobra.Command) error {
	resources, err := getApplicationResources(cmd)
	if err != nil {
		return err
	}
	loggingType := resources.configurationManager.GetString(configKeyLoggingType)
	logFilePath := resources.configurationManager.GetString(configKeyLogFilePath)
	if loggerErr := resources.updateLogger(loggingType, logFilePath); loggerErr != nil {
		return fmt.Errorf("configure logger: %w", loggerErr)
	}
	return nil
}

func getApplicationResources(cmd *cobra.Command) (*applicationResources, error) {
	resourceValue := cmd.Context().Value(contextKeyApplicationResources)
	if resourceValue == nil {
		return nil, errors.New("application resources not configured")
	}
	resources, ok := resourceValue.(*applicationResources)
	if !ok {
		return nil, errors.New("invalid application resources type")
	}
	return resources, nil
}

func createSignalContext(parent context.Context, loggingService *logging.Service) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			return
		case receivedSignal := <-signalChannel:
			if loggingService != nil {
				loggingService.Info(logMessageReceivedSignal, logging.String(logFieldSignal, receivedSignal.String()))
			}
			cancel()
		}
	}()

	return ctx, func() {
		signal.Stop(signalChannel)
		cancel()
	}
}
