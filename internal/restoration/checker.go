package restoration

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
)

const (
	clientNotConfiguredMessage    = "api client not configured"
	incompleteRestorationMessage  = "restoration incomplete"
	checkStartedMessageConstant   = "restoration check started"
	checkCompletedMessageConstant = "restoration check completed"
	logFieldCheckedTypeConstant   = "checked_type"
	logFieldExpectedCountConstant = "expected_count"
	logFieldRestoredCountConstant = "restored_count"
	logFieldMissingCountConstant  = "missing_count"
	logFieldFailedCountConstant   = "failed_count"
)

// ErrClientNotConfigured indicates the checker was built without a client.
var ErrClientNotConfigured = errors.New(clientNotConfiguredMessage)

// ErrRestorationIncomplete signals missing or unverifiable records to the
// process exit code.
var ErrRestorationIncomplete = errors.New(incompleteRestorationMessage)

// RecordClient is the client surface restoration checks need.
type RecordClient interface {
	List(listContext context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error)
	Find(findContext context.Context, kind auditboard.ResourceKind, recordID int64) (auditboard.Record, bool, error)
}

// RestoredItem records one record confirmed present again.
type RestoredItem struct {
	ID   int64  `json:"id"`
	UID  string `json:"uid,omitempty"`
	Name string `json:"name,omitempty"`
}

// CheckFailure records one identifier whose lookup failed outright. A failed
// lookup is reported separately from a confirmed absence so a flaky API never
// masquerades as a missing record.
type CheckFailure struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// CheckReport is the persisted outcome of one restoration check.
type CheckReport struct {
	RunID         string         `json:"run_id"`
	Timestamp     string         `json:"timestamp"`
	CheckedType   string         `json:"checked_type"`
	ExpectedCount int            `json:"expected_count"`
	Restored      []RestoredItem `json:"restored"`
	StillMissing  []string       `json:"still_missing"`
	CheckFailed   []CheckFailure `json:"check_failed"`
	FullyRestored bool           `json:"fully_restored"`
}

// Checker confirms expected records exist again after a restoration.
type Checker struct {
	client RecordClient
	logger *zap.Logger
}

// NewChecker constructs a checker, validating its collaborators.
func NewChecker(client RecordClient, logger *zap.Logger) (*Checker, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &Checker{client: client, logger: resolvedLogger}, nil
}

// CheckIdentifiers looks up each identifier and sorts it into restored,
// still missing, or check failed. The optional expectedNames map labels
// missing and failed entries with the name the record had before deletion;
// identifiers without an entry fall back to the bare id.
func (checker *Checker) CheckIdentifiers(checkContext context.Context, kind auditboard.ResourceKind, identifiers []int64, expectedNames map[int64]string) (CheckReport, error) {
	checker.logger.Info(checkStartedMessageConstant,
		zap.String(logFieldCheckedTypeConstant, string(kind)),
		zap.Int(logFieldExpectedCountConstant, len(identifiers)),
	)

	report := newCheckReport(kind, len(identifiers))
	for _, recordIdentifier := range identifiers {
		expectedName := expectedNames[recordIdentifier]

		foundRecord, recordExists, findError := checker.client.Find(checkContext, kind, recordIdentifier)
		if findError != nil {
			report.CheckFailed = append(report.CheckFailed, CheckFailure{ID: recordIdentifier, Name: expectedName, Error: findError.Error()})
			continue
		}
		if !recordExists {
			missingLabel := expectedName
			if len(missingLabel) == 0 {
				missingLabel = identifierLabel(recordIdentifier)
			}
			report.StillMissing = append(report.StillMissing, missingLabel)
			continue
		}
		report.Restored = append(report.Restored, RestoredItem{ID: foundRecord.ID(), UID: foundRecord.UID(), Name: foundRecord.Name()})
	}

	checker.finish(&report)
	return report, nil
}

// CheckNames fetches the collection once and confirms each expected name is
// present. Name comparison ignores case and surrounding whitespace.
func (checker *Checker) CheckNames(checkContext context.Context, kind auditboard.ResourceKind, expectedNames []string) (CheckReport, error) {
	checker.logger.Info(checkStartedMessageConstant,
		zap.String(logFieldCheckedTypeConstant, string(kind)),
		zap.Int(logFieldExpectedCountConstant, len(expectedNames)),
	)

	report := newCheckReport(kind, len(expectedNames))

	allRecords, listError := checker.client.List(checkContext, kind)
	if listError != nil {
		for _, expectedName := range expectedNames {
			report.CheckFailed = append(report.CheckFailed, CheckFailure{Name: expectedName, Error: listError.Error()})
		}
		checker.finish(&report)
		return report, nil
	}

	recordsByName := make(map[string]auditboard.Record, len(allRecords))
	for _, candidateRecord := range allRecords {
		recordsByName[normalizeName(candidateRecord.Name())] = candidateRecord
	}

	for _, expectedName := range expectedNames {
		foundRecord, recordExists := recordsByName[normalizeName(expectedName)]
		if !recordExists {
			report.StillMissing = append(report.StillMissing, expectedName)
			continue
		}
		report.Restored = append(report.Restored, RestoredItem{ID: foundRecord.ID(), UID: foundRecord.UID(), Name: foundRecord.Name()})
	}

	checker.finish(&report)
	return report, nil
}

func (checker *Checker) finish(report *CheckReport) {
	report.FullyRestored = len(report.StillMissing) == 0 && len(report.CheckFailed) == 0

	checker.logger.Info(checkCompletedMessageConstant,
		zap.String(logFieldCheckedTypeConstant, report.CheckedType),
		zap.Int(logFieldRestoredCountConstant, len(report.Restored)),
		zap.Int(logFieldMissingCountConstant, len(report.StillMissing)),
		zap.Int(logFieldFailedCountConstant, len(report.CheckFailed)),
	)
}

func newCheckReport(kind auditboard.ResourceKind, expectedCount int) CheckReport {
	return CheckReport{
		CheckedType:   string(kind),
		ExpectedCount: expectedCount,
		Restored:      []RestoredItem{},
		StillMissing:  []string{},
		CheckFailed:   []CheckFailure{},
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func identifierLabel(recordIdentifier int64) string {
	return strconv.FormatInt(recordIdentifier, 10)
}
