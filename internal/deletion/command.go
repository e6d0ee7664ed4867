package deletion

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/console"
	"github.com/auditops/abctl/internal/results"
	"github.com/auditops/abctl/internal/safety"
)

const (
	parentCommandUseConstant          = "delete"
	parentCommandShortDescription     = "Delete records with confirmation and pacing"
	parentCommandLongDescription      = "delete removes records permanently after the confirmation phrase and countdown.\nDry-run is the default; pass --live to perform real deletions."
	regionCommandUseConstant          = "region"
	regionCommandShortDescription     = "Delete one region after a dependency check"
	bulkCommandShortTemplateConstant  = "Delete %s by ids, ids-file, or pattern"
	idsFlagNameConstant               = "ids"
	idsFlagUsageConstant              = "Record identifiers to delete."
	idsFileFlagNameConstant           = "ids-file"
	idsFileFlagUsageConstant          = "JSON or YAML file holding record identifiers."
	patternFlagNameConstant           = "pattern"
	patternFlagUsageConstant          = "Delete records whose uid or name contains this substring (controls only)."
	caseSensitiveFlagNameConstant     = "case-sensitive"
	caseSensitiveFlagUsageConstant    = "Match the pattern case-sensitively."
	liveFlagNameConstant              = "live"
	liveFlagUsageConstant             = "Perform real deletions instead of the default dry-run."
	confirmFlagNameConstant           = "confirm"
	confirmFlagUsageConstant          = "Skip the interactive confirmation phrase."
	forceFlagNameConstant             = "force"
	forceFlagUsageConstant            = "Skip the dependency check before deleting the region."
	outputFlagNameConstant            = "output"
	outputFlagUsageConstant           = "Output file path for the JSON report."
	regionIDFlagNameConstant          = "id"
	regionIDFlagUsageConstant         = "Region identifier to delete."
	regionIDRequiredMessageConstant   = "--id is required"
	cancelledNoticeConstant           = "Deletion cancelled"
	productionDeclinedMessageConstant = "production confirmation declined"
	reportSavedTemplateConstant       = "Results saved to: %s"
	bulkReportBaseTemplateConstant    = "deletion_%s_%s"
	regionReportBaseTemplateConstant  = "region_deletion_%d_%s"
	dryRunModeLabelConstant           = "dry_run"
	liveModeLabelConstant             = "live"
)

var bulkResourceKinds = []auditboard.ResourceKind{
	auditboard.ResourceControls,
	auditboard.ResourceSubprocesses,
	auditboard.ResourceProcesses,
	auditboard.ResourceEntities,
}

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the delete command tree.
type CommandBuilder struct {
	LoggerProvider                LoggerProvider
	ClientConfigurationProvider   func() auditboard.Configuration
	SafetyConfigurationProvider   func() safety.Configuration
	DeletionConfigurationProvider func() Configuration
}

// Build constructs the delete command with one subcommand per record type
// plus the region workflow.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	parentCommand := &cobra.Command{
		Use:   parentCommandUseConstant,
		Short: parentCommandShortDescription,
		Long:  parentCommandLongDescription,
	}

	for _, resourceKind := range bulkResourceKinds {
		parentCommand.AddCommand(builder.buildBulkCommand(resourceKind))
	}
	parentCommand.AddCommand(builder.buildRegionCommand())

	return parentCommand, nil
}

func (builder *CommandBuilder) buildBulkCommand(resourceKind auditboard.ResourceKind) *cobra.Command {
	command := &cobra.Command{
		Use:   string(resourceKind),
		Short: fmt.Sprintf(bulkCommandShortTemplateConstant, string(resourceKind)),
		RunE: func(command *cobra.Command, _ []string) error {
			return builder.runBulk(command, resourceKind)
		},
	}

	command.Flags().Int64Slice(idsFlagNameConstant, nil, idsFlagUsageConstant)
	command.Flags().String(idsFileFlagNameConstant, "", idsFileFlagUsageConstant)
	command.Flags().String(patternFlagNameConstant, "", patternFlagUsageConstant)
	command.Flags().Bool(caseSensitiveFlagNameConstant, false, caseSensitiveFlagUsageConstant)
	command.Flags().Bool(liveFlagNameConstant, false, liveFlagUsageConstant)
	command.Flags().Bool(confirmFlagNameConstant, false, confirmFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)

	return command
}

func (builder *CommandBuilder) buildRegionCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   regionCommandUseConstant,
		Short: regionCommandShortDescription,
		RunE:  builder.runRegion,
	}

	command.Flags().Int64(regionIDFlagNameConstant, 0, regionIDFlagUsageConstant)
	command.Flags().Bool(liveFlagNameConstant, false, liveFlagUsageConstant)
	command.Flags().Bool(confirmFlagNameConstant, false, confirmFlagUsageConstant)
	command.Flags().Bool(forceFlagNameConstant, false, forceFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	_ = command.MarkFlagRequired(regionIDFlagNameConstant)

	return command
}

func (builder *CommandBuilder) runBulk(command *cobra.Command, resourceKind auditboard.ResourceKind) error {
	logger := resolveLogger(builder.LoggerProvider)
	safetyConfiguration := builder.SafetyConfigurationProvider()
	deletionConfiguration := builder.DeletionConfigurationProvider()
	clientConfiguration := builder.ClientConfigurationProvider()

	identifierValues, _ := command.Flags().GetInt64Slice(idsFlagNameConstant)
	idsFilePath, _ := command.Flags().GetString(idsFileFlagNameConstant)
	patternValue, _ := command.Flags().GetString(patternFlagNameConstant)
	caseSensitive, _ := command.Flags().GetBool(caseSensitiveFlagNameConstant)
	liveMode, _ := command.Flags().GetBool(liveFlagNameConstant)
	skipConfirmation, _ := command.Flags().GetBool(confirmFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)

	selector := Selector{
		IDs:           identifierValues,
		IDsFilePath:   idsFilePath,
		Pattern:       patternValue,
		CaseSensitive: caseSensitive,
	}
	if validationError := selector.Validate(); validationError != nil {
		return validationError
	}

	client, clientError := auditboard.NewClient(clientConfiguration)
	if clientError != nil {
		return clientError
	}

	operatorConsole := console.NewConsole()
	dryRun := resolveDryRun(safetyConfiguration, liveMode)
	gate := safety.NewGate(safety.NewIOPhrasePrompter(os.Stdin, os.Stdout), operatorConsole, logger, safetyConfiguration, dryRun)

	if !dryRun {
		productionConfirmed, productionError := gate.ConfirmProduction(clientConfiguration.BaseURL)
		if productionError != nil {
			return productionError
		}
		if !productionConfirmed {
			logger.Info(productionDeclinedMessageConstant)
			operatorConsole.Warning(cancelledNoticeConstant)
			return nil
		}
	}

	resolver, resolverError := NewTargetResolver(client, logger)
	if resolverError != nil {
		return resolverError
	}
	targetRecords, resolveError := resolver.Resolve(command.Context(), resourceKind, selector)
	if resolveError != nil {
		return resolveError
	}

	service, serviceError := NewService(
		client,
		gate,
		operatorConsole,
		consoleProgressFactory(operatorConsole),
		logger,
		deletionConfiguration,
		safetyConfiguration,
	)
	if serviceError != nil {
		return serviceError
	}

	report, batchError := service.DeleteBatch(command.Context(), resourceKind, targetRecords, Options{
		DryRun:           dryRun,
		SkipConfirmation: skipConfirmation,
		CountdownSeconds: safetyConfiguration.CountdownDuration(),
	})
	if batchError != nil {
		if errors.Is(batchError, ErrCancelled) {
			operatorConsole.Warning(cancelledNoticeConstant)
			return nil
		}
		return batchError
	}

	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)

	baseName := fmt.Sprintf(bulkReportBaseTemplateConstant, string(resourceKind), modeLabel(dryRun))
	return builder.saveReport(operatorConsole, deletionConfiguration, report, outputPath, baseName)
}

func (builder *CommandBuilder) runRegion(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	safetyConfiguration := builder.SafetyConfigurationProvider()
	deletionConfiguration := builder.DeletionConfigurationProvider()
	clientConfiguration := builder.ClientConfigurationProvider()

	regionIdentifier, _ := command.Flags().GetInt64(regionIDFlagNameConstant)
	liveMode, _ := command.Flags().GetBool(liveFlagNameConstant)
	skipConfirmation, _ := command.Flags().GetBool(confirmFlagNameConstant)
	forceDeletion, _ := command.Flags().GetBool(forceFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)

	if regionIdentifier == 0 {
		return errors.New(regionIDRequiredMessageConstant)
	}

	client, clientError := auditboard.NewClient(clientConfiguration)
	if clientError != nil {
		return clientError
	}

	operatorConsole := console.NewConsole()
	dryRun := resolveDryRun(safetyConfiguration, liveMode)
	gate := safety.NewGate(safety.NewIOPhrasePrompter(os.Stdin, os.Stdout), operatorConsole, logger, safetyConfiguration, dryRun)

	if !dryRun {
		productionConfirmed, productionError := gate.ConfirmProduction(clientConfiguration.BaseURL)
		if productionError != nil {
			return productionError
		}
		if !productionConfirmed {
			logger.Info(productionDeclinedMessageConstant)
			operatorConsole.Warning(cancelledNoticeConstant)
			return nil
		}
	}

	regionDeleter, deleterError := NewRegionDeleter(client, gate, operatorConsole, logger)
	if deleterError != nil {
		return deleterError
	}

	report, deleteError := regionDeleter.DeleteRegion(command.Context(), regionIdentifier, RegionOptions{
		DryRun:           dryRun,
		SkipConfirmation: skipConfirmation,
		Force:            forceDeletion,
		CountdownSeconds: safetyConfiguration.CountdownDuration(),
	})
	if deleteError != nil {
		if errors.Is(deleteError, ErrCancelled) {
			operatorConsole.Warning(cancelledNoticeConstant)
			return nil
		}
		if report.RegionID == 0 {
			return deleteError
		}
	}

	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)

	baseName := fmt.Sprintf(regionReportBaseTemplateConstant, regionIdentifier, modeLabel(dryRun))
	if saveError := builder.saveReport(operatorConsole, deletionConfiguration, report, outputPath, baseName); saveError != nil {
		return saveError
	}
	return deleteError
}

func (builder *CommandBuilder) saveReport(operatorConsole *console.Console, deletionConfiguration Configuration, report any, outputPath string, baseName string) error {
	resultsSettings := deletionConfiguration.ResultsSettings()
	if !resultsSettings.SaveResults && len(outputPath) == 0 {
		return nil
	}

	writer := results.NewWriter(resultsSettings.Directory, nil)
	savedPath, saveError := writer.Save(report, outputPath, baseName)
	if saveError != nil {
		return saveError
	}
	operatorConsole.Info(reportSavedTemplateConstant, savedPath)
	return nil
}

// resolveDryRun keeps dry-run as the default posture: the configured default
// applies unless --live flips the run to real deletions.
func resolveDryRun(safetyConfiguration safety.Configuration, liveMode bool) bool {
	if liveMode {
		return false
	}
	return safetyConfiguration.DryRunDefault
}

func modeLabel(dryRun bool) string {
	if dryRun {
		return dryRunModeLabelConstant
	}
	return liveModeLabelConstant
}

func consoleProgressFactory(operatorConsole *console.Console) ProgressFactory {
	return func(title string, total int) ProgressReporter {
		return operatorConsole.Progress(title, total)
	}
}

func resolveLogger(loggerProvider LoggerProvider) *zap.Logger {
	if loggerProvider == nil {
		return zap.NewNop()
	}
	logger := loggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
