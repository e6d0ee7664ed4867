package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
)

const (
	searchStartedMessageConstant      = "pattern search started"
	searchCompletedMessageConstant    = "pattern search completed"
	searchUnsupportedTemplateConstant = "pattern search does not support type %q"
	logFieldSearchedTypeConstant      = "searched_type"
	logFieldPatternConstant           = "pattern"
	logFieldCaseSensitiveConstant     = "case_sensitive"
	logFieldTotalSearchedConstant     = "total_searched"
	logFieldMatchCountConstant        = "match_count"
)

// RecordLister is the client surface the searcher needs.
type RecordLister interface {
	List(listContext context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error)
}

// Searcher performs substring matches over uid and name across one collection.
type Searcher struct {
	lister RecordLister
	logger *zap.Logger
}

// NewSearcher constructs a searcher, validating its collaborators.
func NewSearcher(lister RecordLister, logger *zap.Logger) (*Searcher, error) {
	if lister == nil {
		return nil, ErrClientNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &Searcher{lister: lister, logger: resolvedLogger}, nil
}

// Search matches records of the given kind against the pattern. Control
// matches are enriched with subprocess, process, and region context so
// results can be reviewed in hierarchy order.
func (searcher *Searcher) Search(searchContext context.Context, kind auditboard.ResourceKind, pattern string, caseSensitive bool) (SearchReport, error) {
	searcher.logger.Info(searchStartedMessageConstant,
		zap.String(logFieldSearchedTypeConstant, string(kind)),
		zap.String(logFieldPatternConstant, pattern),
		zap.Bool(logFieldCaseSensitiveConstant, caseSensitive),
	)

	report := SearchReport{
		SearchedType:  string(kind),
		Pattern:       pattern,
		CaseSensitive: caseSensitive,
	}

	switch kind {
	case auditboard.ResourceControls:
		if searchError := searcher.searchControls(searchContext, pattern, caseSensitive, &report); searchError != nil {
			return SearchReport{}, searchError
		}
	case auditboard.ResourceProcesses, auditboard.ResourceEntities:
		if searchError := searcher.searchFlat(searchContext, kind, pattern, caseSensitive, &report); searchError != nil {
			return SearchReport{}, searchError
		}
	default:
		return SearchReport{}, fmt.Errorf(searchUnsupportedTemplateConstant, string(kind))
	}

	searcher.logger.Info(searchCompletedMessageConstant,
		zap.Int(logFieldTotalSearchedConstant, report.TotalSearched),
		zap.Int(logFieldMatchCountConstant, report.MatchCount),
	)
	return report, nil
}

func (searcher *Searcher) searchControls(searchContext context.Context, pattern string, caseSensitive bool, report *SearchReport) error {
	allControls, listError := searcher.lister.List(searchContext, auditboard.ResourceControls)
	if listError != nil {
		return listError
	}
	report.TotalSearched = len(allControls)

	subprocessIndex, indexError := searcher.indexByID(searchContext, auditboard.ResourceSubprocesses)
	if indexError != nil {
		return indexError
	}
	processIndex, indexError := searcher.indexByID(searchContext, auditboard.ResourceProcesses)
	if indexError != nil {
		return indexError
	}
	regionIndex, indexError := searcher.indexByID(searchContext, auditboard.ResourceRegions)
	if indexError != nil {
		return indexError
	}

	report.ControlMatches = []ControlMatch{}
	for _, controlRecord := range allControls {
		if !controlRecord.MatchesPattern(pattern, caseSensitive) {
			continue
		}

		subprocessID, _ := controlRecord.IntField("subprocess_id")
		subprocessRecord := subprocessIndex[subprocessID]
		processID, _ := subprocessRecord.IntField("process_id")
		processRecord := processIndex[processID]
		regionID, _ := processRecord.IntField("region_id")
		regionRecord := regionIndex[regionID]

		report.ControlMatches = append(report.ControlMatches, ControlMatch{
			Control:    controlRecord,
			Subprocess: subprocessRecord,
			Process:    processRecord,
			Region:     regionRecord,
		})
	}
	report.MatchCount = len(report.ControlMatches)
	return nil
}

func (searcher *Searcher) searchFlat(searchContext context.Context, kind auditboard.ResourceKind, pattern string, caseSensitive bool, report *SearchReport) error {
	allRecords, listError := searcher.lister.List(searchContext, kind)
	if listError != nil {
		return listError
	}
	report.TotalSearched = len(allRecords)

	report.Matches = []auditboard.Record{}
	for _, candidateRecord := range allRecords {
		if candidateRecord.MatchesPattern(pattern, caseSensitive) {
			report.Matches = append(report.Matches, candidateRecord)
		}
	}
	report.MatchCount = len(report.Matches)
	return nil
}

func (searcher *Searcher) indexByID(searchContext context.Context, kind auditboard.ResourceKind) (map[int64]auditboard.Record, error) {
	allRecords, listError := searcher.lister.List(searchContext, kind)
	if listError != nil {
		return nil, listError
	}

	recordIndex := make(map[int64]auditboard.Record, len(allRecords))
	for _, candidateRecord := range allRecords {
		recordIndex[candidateRecord.ID()] = candidateRecord
	}
	return recordIndex, nil
}
