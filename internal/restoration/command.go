package restoration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/console"
	"github.com/auditops/abctl/internal/deletion"
	"github.com/auditops/abctl/internal/results"
)

const (
	parentCommandUseConstant         = "restoration"
	parentCommandShortDescription    = "Confirm deleted records exist again"
	checkCommandUseConstant          = "check"
	checkCommandShortDescription     = "Check that expected records are present"
	verifyCommandUseConstant         = "verify"
	verifyCommandShortDescription    = "Compare restored records against the original deletion report"
	typeFlagNameConstant             = "type"
	typeFlagUsageConstant            = "Record type to check."
	idsFlagNameConstant              = "ids"
	idsFlagUsageConstant             = "Record identifiers expected to exist."
	idsFileFlagNameConstant          = "ids-file"
	idsFileFlagUsageConstant         = "JSON or YAML file holding expected record identifiers."
	namesFlagNameConstant            = "names"
	namesFlagUsageConstant           = "Record names expected to exist; paired positionally with --ids when both are given."
	namesFileFlagNameConstant        = "names-file"
	namesFileFlagUsageConstant       = "JSON or YAML file holding expected record names."
	originalFileFlagNameConstant     = "original-file"
	originalFileFlagUsageConstant    = "Deletion report holding the original record snapshots."
	outputFlagNameConstant           = "output"
	outputFlagUsageConstant          = "Output file path for the JSON report."
	checkSelectorRequiredMessage     = "one of --ids, --ids-file, --names, or --names-file is required"
	idsSourceConflictMessage         = "--ids and --ids-file are mutually exclusive"
	namesSourceConflictMessage       = "--names and --names-file are mutually exclusive"
	namePairingTemplateConstant      = "expected one name per identifier: %d names for %d ids"
	namesFileEmptyTemplateConstant   = "no names found in %s"
	namesFileDecodingTemplate        = "decoding %s: %w"
	reportSavedTemplateConstant      = "Results saved to: %s"
	checkReportBaseTemplateConstant  = "restoration_check_%s"
	verifyReportBaseTemplateConstant = "restoration_verify_%s"
	restoredSummaryTemplateConstant  = "Restored %d of %d %s"
	stillMissingHeadlineTemplate     = "%d records still missing:"
	stillMissingLineTemplate         = "  - %s"
	checkFailedHeadlineTemplate      = "%d lookups failed:"
	checkFailedLineTemplate          = "  - %s: %s"
	fullyRestoredMessageConstant     = "All records restored"
	perfectSummaryTemplateConstant   = "Perfect restoration: %d of %d records match exactly"
	verifySummaryTemplateConstant    = "Verification: %d perfect, %d partial, %d not found (of %d)"
	partialHeadlineTemplateConstant  = "%s restored with differences:"
	differenceLineTemplateConstant   = "    %s: expected %v, got %v"
	notFoundLineTemplateConstant     = "%s was not restored"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the restoration command tree.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	ClientConfigurationProvider func() auditboard.Configuration
	ResultsSettingsProvider     func() results.Settings
}

// Build constructs the restoration command with check and verify subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	parentCommand := &cobra.Command{
		Use:   parentCommandUseConstant,
		Short: parentCommandShortDescription,
	}

	parentCommand.AddCommand(builder.buildCheckCommand())
	parentCommand.AddCommand(builder.buildVerifyCommand())

	return parentCommand, nil
}

func (builder *CommandBuilder) buildCheckCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   checkCommandUseConstant,
		Short: checkCommandShortDescription,
		RunE:  builder.runCheck,
	}

	command.Flags().String(typeFlagNameConstant, string(auditboard.ResourceEntities), typeFlagUsageConstant)
	command.Flags().Int64Slice(idsFlagNameConstant, nil, idsFlagUsageConstant)
	command.Flags().String(idsFileFlagNameConstant, "", idsFileFlagUsageConstant)
	command.Flags().StringSlice(namesFlagNameConstant, nil, namesFlagUsageConstant)
	command.Flags().String(namesFileFlagNameConstant, "", namesFileFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)

	return command
}

func (builder *CommandBuilder) buildVerifyCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   verifyCommandUseConstant,
		Short: verifyCommandShortDescription,
		RunE:  builder.runVerify,
	}

	command.Flags().String(typeFlagNameConstant, string(auditboard.ResourceEntities), typeFlagUsageConstant)
	command.Flags().String(originalFileFlagNameConstant, "", originalFileFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	_ = command.MarkFlagRequired(originalFileFlagNameConstant)

	return command
}

func (builder *CommandBuilder) runCheck(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	typeValue, _ := command.Flags().GetString(typeFlagNameConstant)
	identifierValues, _ := command.Flags().GetInt64Slice(idsFlagNameConstant)
	idsFilePath, _ := command.Flags().GetString(idsFileFlagNameConstant)
	nameValues, _ := command.Flags().GetStringSlice(namesFlagNameConstant)
	namesFilePath, _ := command.Flags().GetString(namesFileFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)

	resourceKind, parseError := auditboard.ParseResourceKind(typeValue)
	if parseError != nil {
		return parseError
	}
	if validationError := validateCheckSelector(identifierValues, idsFilePath, nameValues, namesFilePath); validationError != nil {
		return validationError
	}

	client, clientError := auditboard.NewClient(builder.ClientConfigurationProvider())
	if clientError != nil {
		return clientError
	}
	checker, checkerError := NewChecker(client, logger)
	if checkerError != nil {
		return checkerError
	}

	report, checkError := builder.executeCheck(command.Context(), checker, resourceKind, identifierValues, idsFilePath, nameValues, namesFilePath)
	if checkError != nil {
		return checkError
	}
	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)

	operatorConsole := console.NewConsole()
	displayCheckReport(operatorConsole, report)

	if saveError := builder.saveReport(operatorConsole, report, outputPath, fmt.Sprintf(checkReportBaseTemplateConstant, report.CheckedType)); saveError != nil {
		return saveError
	}

	if !report.FullyRestored {
		return ErrRestorationIncomplete
	}
	return nil
}

func (builder *CommandBuilder) executeCheck(
	checkContext context.Context,
	checker *Checker,
	resourceKind auditboard.ResourceKind,
	identifierValues []int64,
	idsFilePath string,
	nameValues []string,
	namesFilePath string,
) (CheckReport, error) {
	identifiers := identifierValues
	if len(idsFilePath) > 0 {
		loadedIdentifiers, loadError := deletion.LoadIdentifierFile(idsFilePath)
		if loadError != nil {
			return CheckReport{}, loadError
		}
		identifiers = loadedIdentifiers
	}

	expectedNames := nameValues
	if len(namesFilePath) > 0 {
		loadedNames, loadError := LoadNameFile(namesFilePath)
		if loadError != nil {
			return CheckReport{}, loadError
		}
		expectedNames = loadedNames
	}

	if len(identifiers) == 0 {
		return checker.CheckNames(checkContext, resourceKind, expectedNames)
	}

	namesByIdentifier, pairingError := pairExpectedNames(identifiers, expectedNames)
	if pairingError != nil {
		return CheckReport{}, pairingError
	}
	return checker.CheckIdentifiers(checkContext, resourceKind, identifiers, namesByIdentifier)
}

// pairExpectedNames pairs names with identifiers positionally: the i-th name
// is the expected name of the i-th identifier. No names means no labels.
func pairExpectedNames(identifiers []int64, expectedNames []string) (map[int64]string, error) {
	if len(expectedNames) == 0 {
		return nil, nil
	}
	if len(expectedNames) != len(identifiers) {
		return nil, fmt.Errorf(namePairingTemplateConstant, len(expectedNames), len(identifiers))
	}

	namesByIdentifier := make(map[int64]string, len(identifiers))
	for identifierIndex, recordIdentifier := range identifiers {
		namesByIdentifier[recordIdentifier] = expectedNames[identifierIndex]
	}
	return namesByIdentifier, nil
}

func (builder *CommandBuilder) runVerify(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	typeValue, _ := command.Flags().GetString(typeFlagNameConstant)
	originalFilePath, _ := command.Flags().GetString(originalFileFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)

	resourceKind, parseError := auditboard.ParseResourceKind(typeValue)
	if parseError != nil {
		return parseError
	}

	originalRecords, loadError := LoadOriginalRecords(originalFilePath)
	if loadError != nil {
		return loadError
	}

	client, clientError := auditboard.NewClient(builder.ClientConfigurationProvider())
	if clientError != nil {
		return clientError
	}
	verifier, verifierError := NewVerifier(client, logger)
	if verifierError != nil {
		return verifierError
	}

	report, verifyError := verifier.Verify(command.Context(), resourceKind, originalRecords)
	if verifyError != nil {
		return verifyError
	}
	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)
	report.OriginalFile = originalFilePath

	operatorConsole := console.NewConsole()
	displayVerifyReport(operatorConsole, report)

	if saveError := builder.saveReport(operatorConsole, report, outputPath, fmt.Sprintf(verifyReportBaseTemplateConstant, report.VerifiedType)); saveError != nil {
		return saveError
	}

	if !report.PerfectRestoration {
		return ErrRestorationIncomplete
	}
	return nil
}

func (builder *CommandBuilder) saveReport(operatorConsole *console.Console, report any, outputPath string, baseName string) error {
	resultsSettings := builder.ResultsSettingsProvider()
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

// validateCheckSelector accepts one identifier source, one name source, or
// both together. Expected names given alongside identifiers label the
// missing entries rather than selecting records.
func validateCheckSelector(identifierValues []int64, idsFilePath string, nameValues []string, namesFilePath string) error {
	if len(identifierValues) > 0 && len(idsFilePath) > 0 {
		return errors.New(idsSourceConflictMessage)
	}
	if len(nameValues) > 0 && len(namesFilePath) > 0 {
		return errors.New(namesSourceConflictMessage)
	}
	if len(identifierValues) == 0 && len(idsFilePath) == 0 && len(nameValues) == 0 && len(namesFilePath) == 0 {
		return errors.New(checkSelectorRequiredMessage)
	}
	return nil
}

func displayCheckReport(operatorConsole *console.Console, report CheckReport) {
	operatorConsole.Info(restoredSummaryTemplateConstant, len(report.Restored), report.ExpectedCount, report.CheckedType)

	if len(report.StillMissing) > 0 {
		operatorConsole.Warning(stillMissingHeadlineTemplate, len(report.StillMissing))
		for _, missingLabel := range report.StillMissing {
			operatorConsole.Warning(stillMissingLineTemplate, missingLabel)
		}
	}
	if len(report.CheckFailed) > 0 {
		operatorConsole.Error(checkFailedHeadlineTemplate, len(report.CheckFailed))
		for _, checkFailure := range report.CheckFailed {
			operatorConsole.Error(checkFailedLineTemplate, failureLabel(checkFailure), checkFailure.Error)
		}
	}
	if report.FullyRestored {
		operatorConsole.Success(fullyRestoredMessageConstant)
	}
}

func displayVerifyReport(operatorConsole *console.Console, report VerifyReport) {
	if report.PerfectRestoration {
		operatorConsole.Success(perfectSummaryTemplateConstant, report.PerfectCount, report.TotalExpected)
		return
	}

	operatorConsole.Warning(verifySummaryTemplateConstant, report.PerfectCount, report.PartialCount, report.NotFoundCount, report.TotalExpected)
	for _, recordVerification := range report.Records {
		switch recordVerification.Status {
		case StatusPartial:
			operatorConsole.Warning(partialHeadlineTemplateConstant, recordVerification.Name)
			for _, fieldDifference := range recordVerification.Differences {
				operatorConsole.Printf(differenceLineTemplateConstant+"\n", fieldDifference.Field, fieldDifference.Expected, fieldDifference.Actual)
			}
		case StatusNotFound:
			operatorConsole.Warning(notFoundLineTemplateConstant, recordVerification.Name)
		}
	}
}

func failureLabel(checkFailure CheckFailure) string {
	if len(checkFailure.Name) > 0 {
		return checkFailure.Name
	}
	return identifierLabel(checkFailure.ID)
}

type nameDocument struct {
	Names []string `json:"names" yaml:"names"`
}

// LoadNameFile reads expected record names from a JSON or YAML file. The file
// may hold a bare list of names or an object with a "names" key.
func LoadNameFile(filePath string) ([]string, error) {
	fileContents, readError := os.ReadFile(filePath)
	if readError != nil {
		return nil, readError
	}

	var bareNames []string
	if decodeError := yaml.Unmarshal(fileContents, &bareNames); decodeError == nil && len(bareNames) > 0 {
		return bareNames, nil
	}

	var document nameDocument
	if decodeError := yaml.Unmarshal(fileContents, &document); decodeError != nil {
		return nil, fmt.Errorf(namesFileDecodingTemplate, filePath, decodeError)
	}
	if len(document.Names) == 0 {
		return nil, fmt.Errorf(namesFileEmptyTemplateConstant, filePath)
	}
	return document.Names, nil
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
