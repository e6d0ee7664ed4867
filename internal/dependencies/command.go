package dependencies

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/console"
	"github.com/auditops/abctl/internal/results"
)

const (
	commandUseConstant              = "dependencies"
	commandShortDescriptionConstant = "Check for blocking child records before deletion"
	commandLongDescriptionConstant  = "dependencies queries the child collection one level below the given records and reports whether deletion is blocked.\nThe region check inspects entities and processes directly."
	typeFlagNameConstant            = "type"
	typeFlagUsageConstant           = "Record type to check (entities, processes, subprocesses, regions)."
	idsFlagNameConstant             = "ids"
	idsFlagUsageConstant            = "Record identifiers to check."
	idFlagNameConstant              = "id"
	idFlagUsageConstant             = "Region identifier to check (regions type only)."
	outputFlagNameConstant          = "output"
	outputFlagUsageConstant         = "Output file path for the JSON report."
	regionIDRequiredMessageConstant = "--id required when type is 'regions'"
	idsRequiredMessageConstant      = "--ids required when type is not 'regions'"
	unsupportedTypeTemplateConstant = "dependency checks do not support type %q"
	dependenciesExistMessage        = "dependencies exist"
	reportBaseNameTemplateConstant  = "dependencies_%s"
	reportSavedTemplateConstant     = "Results saved to: %s"
	blockedHeadlineTemplateConstant = "Found %d %s linked to the checked %s"
	previewLineTemplateConstant     = "  - %s %d: %s"
	previewMoreTemplateConstant     = "  ... and %d more"
	safeHeadlineConstant            = "No dependencies found - safe to delete"
	regionTypeAliasConstant         = "region"
)

// ErrDependenciesFound signals blocking records to the process exit code.
var ErrDependenciesFound = errors.New(dependenciesExistMessage)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the dependencies cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ClientConfigurationProvider  func() auditboard.Configuration
	DisplayConfigurationProvider func() console.Configuration
	ResultsSettingsProvider      func() results.Settings
}

// Build constructs the dependencies command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(typeFlagNameConstant, "", typeFlagUsageConstant)
	command.Flags().Int64Slice(idsFlagNameConstant, nil, idsFlagUsageConstant)
	command.Flags().Int64(idFlagNameConstant, 0, idFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	_ = command.MarkFlagRequired(typeFlagNameConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	typeValue, _ := command.Flags().GetString(typeFlagNameConstant)
	identifierValues, _ := command.Flags().GetInt64Slice(idsFlagNameConstant)
	regionIdentifier, _ := command.Flags().GetInt64(idFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)

	if typeValue == regionTypeAliasConstant {
		typeValue = string(auditboard.ResourceRegions)
	}
	resourceKind, parseError := auditboard.ParseResourceKind(typeValue)
	if parseError != nil {
		return parseError
	}

	if resourceKind == auditboard.ResourceRegions && regionIdentifier == 0 {
		return errors.New(regionIDRequiredMessageConstant)
	}
	if resourceKind != auditboard.ResourceRegions && len(identifierValues) == 0 {
		return errors.New(idsRequiredMessageConstant)
	}

	client, clientError := auditboard.NewClient(builder.ClientConfigurationProvider())
	if clientError != nil {
		return clientError
	}

	checker, checkerError := NewChecker(client, logger)
	if checkerError != nil {
		return checkerError
	}

	operatorConsole := console.NewConsole()
	executionContext := command.Context()

	var report Report
	var checkError error
	switch resourceKind {
	case auditboard.ResourceEntities:
		report, checkError = checker.CheckEntities(executionContext, identifierValues)
	case auditboard.ResourceProcesses:
		report, checkError = checker.CheckProcesses(executionContext, identifierValues)
	case auditboard.ResourceSubprocesses:
		report, checkError = checker.CheckSubprocesses(executionContext, identifierValues)
	case auditboard.ResourceRegions:
		report, checkError = checker.CheckRegion(executionContext, regionIdentifier)
	default:
		return fmt.Errorf(unsupportedTypeTemplateConstant, typeValue)
	}
	if checkError != nil {
		return checkError
	}

	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)

	displayReport(operatorConsole, builder.DisplayConfigurationProvider(), report)

	resultsSettings := builder.ResultsSettingsProvider()
	if resultsSettings.SaveResults || len(outputPath) > 0 {
		writer := results.NewWriter(resultsSettings.Directory, nil)
		savedPath, saveError := writer.Save(report, outputPath, fmt.Sprintf(reportBaseNameTemplateConstant, report.CheckedType))
		if saveError != nil {
			return saveError
		}
		operatorConsole.Info(reportSavedTemplateConstant, savedPath)
	}

	if report.HasDependencies {
		return ErrDependenciesFound
	}
	return nil
}

func displayReport(operatorConsole *console.Console, displayConfiguration console.Configuration, report Report) {
	if !report.HasDependencies {
		operatorConsole.Success(safeHeadlineConstant)
		return
	}

	previewLimit := displayConfiguration.DependencyPreviewLimit()
	for _, blockingGroup := range report.Blocking {
		if blockingGroup.Count == 0 {
			continue
		}

		operatorConsole.Warning(blockedHeadlineTemplateConstant, blockingGroup.Count, blockingGroup.DependencyType, report.CheckedType)
		for recordIndex, blockingRecord := range blockingGroup.Records {
			if recordIndex == previewLimit {
				operatorConsole.Warning(previewMoreTemplateConstant, blockingGroup.Count-previewLimit)
				break
			}
			label := blockingRecord.Name()
			if len(label) == 0 {
				label = blockingRecord.UID()
			}
			operatorConsole.Warning(previewLineTemplateConstant, blockingGroup.DependencyType, blockingRecord.ID(), label)
		}
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
