package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/console"
	"github.com/auditops/abctl/internal/deletion"
	"github.com/auditops/abctl/internal/dependencies"
	"github.com/auditops/abctl/internal/discovery"
	"github.com/auditops/abctl/internal/restoration"
	"github.com/auditops/abctl/internal/results"
	"github.com/auditops/abctl/internal/safety"
	"github.com/auditops/abctl/internal/utils"
)

const (
	applicationNameConstant                 = "abctl"
	applicationShortDescriptionConstant     = "Command-line interface for AuditBoard record operations"
	applicationLongDescriptionConstant      = "abctl discovers, deletes, and verifies restoration of AuditBoard records.\nDestructive commands default to dry-run and require a typed confirmation phrase in live mode."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonLogDirConfigKeyConstant           = commonConfigurationKeyConstant + ".log_dir"
	auditboardConfigurationKeyConstant      = "auditboard"
	auditboardBaseURLConfigKeyConstant      = auditboardConfigurationKeyConstant + ".base_url"
	auditboardAPITokenConfigKeyConstant     = auditboardConfigurationKeyConstant + ".api_token"
	safetyConfigurationKeyConstant          = "safety"
	safetyDryRunDefaultConfigKeyConstant    = safetyConfigurationKeyConstant + ".dry_run_default"
	deletionConfigurationKeyConstant        = "deletion"
	displayConfigurationKeyConstant         = "display"
	environmentPrefixConstant               = "ABCTL"
	baseURLEnvironmentVariableConstant      = "AUDITBOARD_BASE_URL"
	apiTokenEnvironmentVariableConstant     = "AUDITBOARD_API_TOKEN"
	dryRunEnvironmentVariableConstant       = "DRY_RUN"
	logLevelEnvironmentVariableConstant     = "LOG_LEVEL"
	logDirEnvironmentVariableConstant       = "LOG_DIR"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "abctl CLI executed"
	rootCommandDebugMessageConstant         = "abctl CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common     ApplicationCommonConfiguration `mapstructure:"common"`
	AuditBoard auditboard.Configuration       `mapstructure:"auditboard"`
	Safety     safety.Configuration           `mapstructure:"safety"`
	Deletion   deletion.Configuration         `mapstructure:"deletion"`
	Display    console.Configuration          `mapstructure:"display"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogDir    string `mapstructure:"log_dir"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEnvironmentBindings(map[string]string{
		auditboardBaseURLConfigKeyConstant:   baseURLEnvironmentVariableConstant,
		auditboardAPITokenConfigKeyConstant:  apiTokenEnvironmentVariableConstant,
		safetyDryRunDefaultConfigKeyConstant: dryRunEnvironmentVariableConstant,
		commonLogLevelConfigKeyConstant:      logLevelEnvironmentVariableConstant,
		commonLogDirConfigKeyConstant:        logDirEnvironmentVariableConstant,
	})

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	clientConfigurationProvider := func() auditboard.Configuration {
		return application.configuration.AuditBoard
	}
	displayConfigurationProvider := func() console.Configuration {
		return application.configuration.Display
	}
	resultsSettingsProvider := func() results.Settings {
		return application.configuration.Deletion.ResultsSettings()
	}

	analyzeBuilder := discovery.AnalyzeCommandBuilder{
		LoggerProvider:              loggerProvider,
		ClientConfigurationProvider: clientConfigurationProvider,
		ResultsSettingsProvider:     resultsSettingsProvider,
	}
	analyzeCommand, analyzeBuildError := analyzeBuilder.Build()
	if analyzeBuildError == nil {
		cobraCommand.AddCommand(analyzeCommand)
	}

	searchBuilder := discovery.SearchCommandBuilder{
		LoggerProvider:               loggerProvider,
		ClientConfigurationProvider:  clientConfigurationProvider,
		DisplayConfigurationProvider: displayConfigurationProvider,
		ResultsSettingsProvider:      resultsSettingsProvider,
	}
	searchCommand, searchBuildError := searchBuilder.Build()
	if searchBuildError == nil {
		cobraCommand.AddCommand(searchCommand)
	}

	dependenciesBuilder := dependencies.CommandBuilder{
		LoggerProvider:               loggerProvider,
		ClientConfigurationProvider:  clientConfigurationProvider,
		DisplayConfigurationProvider: displayConfigurationProvider,
		ResultsSettingsProvider:      resultsSettingsProvider,
	}
	dependenciesCommand, dependenciesBuildError := dependenciesBuilder.Build()
	if dependenciesBuildError == nil {
		cobraCommand.AddCommand(dependenciesCommand)
	}

	deletionBuilder := deletion.CommandBuilder{
		LoggerProvider:              loggerProvider,
		ClientConfigurationProvider: clientConfigurationProvider,
		SafetyConfigurationProvider: func() safety.Configuration {
			return application.configuration.Safety
		},
		DeletionConfigurationProvider: func() deletion.Configuration {
			return application.configuration.Deletion
		},
	}
	deletionCommand, deletionBuildError := deletionBuilder.Build()
	if deletionBuildError == nil {
		cobraCommand.AddCommand(deletionCommand)
	}

	restorationBuilder := restoration.CommandBuilder{
		LoggerProvider:              loggerProvider,
		ClientConfigurationProvider: clientConfigurationProvider,
		ResultsSettingsProvider:     resultsSettingsProvider,
	}
	restorationCommand, restorationBuildError := restorationBuilder.Build()
	if restorationBuildError == nil {
		cobraCommand.AddCommand(restorationCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger
// flushing. SIGINT and SIGTERM cancel the command context so countdowns and
// batch loops stop at the next pause point.
func (application *Application) Execute() error {
	signalContext, stopSignalHandling := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignalHandling()
	application.rootCommand.SetContext(signalContext)

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range auditboard.DefaultConfigurationValues(auditboardConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range safety.DefaultConfigurationValues(safetyConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range deletion.DefaultConfigurationValues(deletionConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range console.DefaultConfigurationValues(displayConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLoggerWithFileOutput(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		application.configuration.Common.LogDir,
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
