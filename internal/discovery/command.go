package discovery

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/console"
	"github.com/auditops/abctl/internal/results"
)

const (
	analyzeCommandUseConstant              = "analyze"
	analyzeCommandShortDescriptionConstant = "Map the full hierarchy below one region"
	analyzeCommandLongDescriptionConstant  = "analyze walks every level below a region and reports per-level counts.\nRun it before a region deletion to understand the blast radius."
	searchCommandUseConstant               = "search"
	searchCommandShortDescriptionConstant  = "Find records whose uid or name contains a pattern"
	searchCommandLongDescriptionConstant   = "search scans one collection for records whose uid or name contains the pattern.\nControl matches include the subprocess, process, and region they belong to."
	regionIDFlagNameConstant               = "region-id"
	regionIDFlagUsageConstant              = "Region identifier to analyze."
	outputFlagNameConstant                 = "output"
	outputFlagUsageConstant                = "Output file path for the JSON report."
	searchTypeFlagNameConstant             = "type"
	searchTypeFlagUsageConstant            = "Record type to search (controls, processes, entities)."
	patternFlagNameConstant                = "pattern"
	patternFlagUsageConstant               = "Substring to match against uid and name."
	caseSensitiveFlagNameConstant          = "case-sensitive"
	caseSensitiveFlagUsageConstant         = "Match the pattern case-sensitively."
	regionIDRequiredMessageConstant        = "--region-id is required"
	patternRequiredMessageConstant         = "--pattern is required"
	analyzeReportBaseTemplateConstant      = "region_analysis_%d"
	searchReportBaseTemplateConstant       = "search_%s"
	reportSavedTemplateConstant            = "Results saved to: %s"
	analyzeSectionTitleConstant            = "Region Analysis"
	searchSectionTitleConstant             = "Pattern Search"
	levelHeaderConstant                    = "Level"
	countHeaderConstant                    = "Count"
	totalRowLabelConstant                  = "Total"
	searchSummaryTemplateConstant          = "Matched %d of %d %s for pattern %q"
	regionGroupHeaderTemplateConstant      = "Region: %s (%d matches)"
	controlMatchLineTemplateConstant       = "  - control %d [%s] %s"
	matchLineTemplateConstant              = "  - %d [%s] %s"
	matchContextLineTemplateConstant       = "      subprocess: %s / process: %s"
	previewMoreTemplateConstant            = "  ... and %d more"
	noMatchesMessageConstant               = "No records matched the pattern"
	missingContextLabelConstant            = "unknown"
)

// AnalyzeCommandBuilder assembles the analyze cobra command.
type AnalyzeCommandBuilder struct {
	LoggerProvider              LoggerProvider
	ClientConfigurationProvider func() auditboard.Configuration
	ResultsSettingsProvider     func() results.Settings
}

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// Build constructs the analyze command.
func (builder *AnalyzeCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   analyzeCommandUseConstant,
		Short: analyzeCommandShortDescriptionConstant,
		Long:  analyzeCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().Int64(regionIDFlagNameConstant, 0, regionIDFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	_ = command.MarkFlagRequired(regionIDFlagNameConstant)

	return command, nil
}

func (builder *AnalyzeCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	regionIdentifier, _ := command.Flags().GetInt64(regionIDFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)
	if regionIdentifier == 0 {
		return errors.New(regionIDRequiredMessageConstant)
	}

	client, clientError := auditboard.NewClient(builder.ClientConfigurationProvider())
	if clientError != nil {
		return clientError
	}

	walker, walkerError := NewWalker(client, logger)
	if walkerError != nil {
		return walkerError
	}

	report, analyzeError := walker.AnalyzeRegion(command.Context(), regionIdentifier)
	if analyzeError != nil {
		return analyzeError
	}
	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)

	operatorConsole := console.NewConsole()
	displayAnalysis(operatorConsole, report)

	resultsSettings := builder.ResultsSettingsProvider()
	if resultsSettings.SaveResults || len(outputPath) > 0 {
		writer := results.NewWriter(resultsSettings.Directory, nil)
		savedPath, saveError := writer.Save(report, outputPath, fmt.Sprintf(analyzeReportBaseTemplateConstant, regionIdentifier))
		if saveError != nil {
			return saveError
		}
		operatorConsole.Info(reportSavedTemplateConstant, savedPath)
	}
	return nil
}

func displayAnalysis(operatorConsole *console.Console, report RegionReport) {
	operatorConsole.Section(analyzeSectionTitleConstant)
	if len(report.Error) > 0 {
		operatorConsole.Warning("%s", report.Error)
		return
	}

	operatorConsole.Info("%s", report.Summary.Region)
	operatorConsole.RenderTable(
		[]string{levelHeaderConstant, countHeaderConstant},
		[][]string{
			{string(auditboard.ResourceEntities), strconv.Itoa(report.Summary.EntitiesCount)},
			{string(auditboard.ResourceProcessesData), strconv.Itoa(report.Summary.ProcessesDataCount)},
			{string(auditboard.ResourceProcesses), strconv.Itoa(report.Summary.ProcessesCount)},
			{string(auditboard.ResourceSubprocessesData), strconv.Itoa(report.Summary.SubprocessesDataCount)},
			{string(auditboard.ResourceSubprocesses), strconv.Itoa(report.Summary.SubprocessesCount)},
			{string(auditboard.ResourceControls), strconv.Itoa(report.Summary.ControlsCount)},
			{string(auditboard.ResourceControlsData), strconv.Itoa(report.Summary.ControlsDataCount)},
			{totalRowLabelConstant, strconv.Itoa(report.Summary.TotalItems)},
		},
	)
}

// SearchCommandBuilder assembles the search cobra command.
type SearchCommandBuilder struct {
	LoggerProvider               LoggerProvider
	ClientConfigurationProvider  func() auditboard.Configuration
	DisplayConfigurationProvider func() console.Configuration
	ResultsSettingsProvider      func() results.Settings
}

// Build constructs the search command.
func (builder *SearchCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   searchCommandUseConstant,
		Short: searchCommandShortDescriptionConstant,
		Long:  searchCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(searchTypeFlagNameConstant, string(auditboard.ResourceControls), searchTypeFlagUsageConstant)
	command.Flags().String(patternFlagNameConstant, "", patternFlagUsageConstant)
	command.Flags().Bool(caseSensitiveFlagNameConstant, false, caseSensitiveFlagUsageConstant)
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)
	_ = command.MarkFlagRequired(patternFlagNameConstant)

	return command, nil
}

func (builder *SearchCommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)

	typeValue, _ := command.Flags().GetString(searchTypeFlagNameConstant)
	patternValue, _ := command.Flags().GetString(patternFlagNameConstant)
	caseSensitive, _ := command.Flags().GetBool(caseSensitiveFlagNameConstant)
	outputPath, _ := command.Flags().GetString(outputFlagNameConstant)
	if len(patternValue) == 0 {
		return errors.New(patternRequiredMessageConstant)
	}

	resourceKind, parseError := auditboard.ParseResourceKind(typeValue)
	if parseError != nil {
		return parseError
	}

	client, clientError := auditboard.NewClient(builder.ClientConfigurationProvider())
	if clientError != nil {
		return clientError
	}

	searcher, searcherError := NewSearcher(client, logger)
	if searcherError != nil {
		return searcherError
	}

	report, searchError := searcher.Search(command.Context(), resourceKind, patternValue, caseSensitive)
	if searchError != nil {
		return searchError
	}
	report.RunID = results.NewRunIdentifier()
	report.Timestamp = time.Now().Format(time.RFC3339)

	operatorConsole := console.NewConsole()
	displaySearch(operatorConsole, builder.DisplayConfigurationProvider(), report)

	resultsSettings := builder.ResultsSettingsProvider()
	if resultsSettings.SaveResults || len(outputPath) > 0 {
		writer := results.NewWriter(resultsSettings.Directory, nil)
		savedPath, saveError := writer.Save(report, outputPath, fmt.Sprintf(searchReportBaseTemplateConstant, report.SearchedType))
		if saveError != nil {
			return saveError
		}
		operatorConsole.Info(reportSavedTemplateConstant, savedPath)
	}
	return nil
}

func displaySearch(operatorConsole *console.Console, displayConfiguration console.Configuration, report SearchReport) {
	operatorConsole.Section(searchSectionTitleConstant)
	operatorConsole.Info(searchSummaryTemplateConstant, report.MatchCount, report.TotalSearched, report.SearchedType, report.Pattern)
	if report.MatchCount == 0 {
		operatorConsole.Info(noMatchesMessageConstant)
		return
	}

	previewLimit := displayConfiguration.SearchPreviewLimit()
	if len(report.ControlMatches) > 0 {
		displayControlMatches(operatorConsole, report, previewLimit)
		return
	}

	for matchIndex, matchedRecord := range report.Matches {
		if matchIndex == previewLimit {
			operatorConsole.Printf(previewMoreTemplateConstant+"\n", report.MatchCount-previewLimit)
			break
		}
		operatorConsole.Printf(matchLineTemplateConstant+"\n", matchedRecord.ID(), matchedRecord.UID(), matchedRecord.Name())
	}
}

// displayControlMatches previews control matches grouped by region, in region
// order, with per-region counts. The preview limit spans all groups.
func displayControlMatches(operatorConsole *console.Console, report SearchReport, previewLimit int) {
	previewedCount := 0
	for _, matchGroup := range groupMatchesByRegion(report.ControlMatches) {
		operatorConsole.Info(regionGroupHeaderTemplateConstant, matchGroup.Region, len(matchGroup.Matches))
		for _, controlMatch := range matchGroup.Matches {
			if previewedCount == previewLimit {
				operatorConsole.Printf(previewMoreTemplateConstant+"\n", report.MatchCount-previewLimit)
				return
			}
			operatorConsole.Printf(controlMatchLineTemplateConstant+"\n",
				controlMatch.Control.ID(), controlMatch.Control.UID(), controlMatch.Control.Name())
			operatorConsole.Printf(matchContextLineTemplateConstant+"\n",
				contextLabel(controlMatch.Subprocess), contextLabel(controlMatch.Process))
			previewedCount++
		}
	}
}

type regionMatchGroup struct {
	Region  string
	Matches []ControlMatch
}

func groupMatchesByRegion(controlMatches []ControlMatch) []regionMatchGroup {
	matchesByRegion := map[string][]ControlMatch{}
	for _, controlMatch := range controlMatches {
		regionLabel := contextLabel(controlMatch.Region)
		matchesByRegion[regionLabel] = append(matchesByRegion[regionLabel], controlMatch)
	}

	regionLabels := make([]string, 0, len(matchesByRegion))
	for regionLabel := range matchesByRegion {
		regionLabels = append(regionLabels, regionLabel)
	}
	sort.Strings(regionLabels)

	matchGroups := make([]regionMatchGroup, 0, len(regionLabels))
	for _, regionLabel := range regionLabels {
		matchGroups = append(matchGroups, regionMatchGroup{Region: regionLabel, Matches: matchesByRegion[regionLabel]})
	}
	return matchGroups
}

func contextLabel(contextRecord auditboard.Record) string {
	if contextRecord == nil {
		return missingContextLabelConstant
	}
	label := contextRecord.Name()
	if len(label) == 0 {
		label = contextRecord.UID()
	}
	if len(label) == 0 {
		return missingContextLabelConstant
	}
	return label
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
