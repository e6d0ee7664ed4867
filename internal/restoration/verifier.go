package restoration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
)

const (
	originalFileEmptyTemplateConstant     = "no records found in %s"
	originalFileDecodingTemplate          = "decoding %s: %w"
	verifyStartedMessageConstant          = "restoration verification started"
	verifyCompletedMessageConstant        = "restoration verification completed"
	logFieldVerifiedTypeConstant          = "verified_type"
	logFieldOriginalCountConstant         = "original_count"
	logFieldPerfectCountConstant          = "perfect_count"
	logFieldPartialCountConstant          = "partial_count"
	logFieldNotFoundCountConstant         = "not_found_count"
	unnamedOriginalRecordTemplateConstant = "record %d"
)

// MatchStatus classifies one verified record.
type MatchStatus string

// Verification statuses, from exact field match down to absent.
const (
	StatusPerfect  MatchStatus = "PERFECT"
	StatusPartial  MatchStatus = "PARTIAL"
	StatusNotFound MatchStatus = "NOT_FOUND"
)

// identityFieldNames are the fields compared between the original record and
// its restored counterpart. Fields absent from the original are skipped.
var identityFieldNames = []string{
	"id",
	"name",
	"uid",
	"region_id",
	"entity_type_id",
	"process_id",
	"subprocess_id",
}

// FieldDifference records one identity field that changed across restoration.
type FieldDifference struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
}

// RecordVerification is the verdict for one original record.
type RecordVerification struct {
	Name        string            `json:"name"`
	Status      MatchStatus       `json:"status"`
	RestoredID  int64             `json:"restored_id,omitempty"`
	Differences []FieldDifference `json:"differences,omitempty"`
}

// VerifyReport is the persisted outcome of one verification run.
type VerifyReport struct {
	RunID              string               `json:"run_id"`
	Timestamp          string               `json:"timestamp"`
	VerifiedType       string               `json:"verified_type"`
	OriginalFile       string               `json:"original_file,omitempty"`
	TotalExpected      int                  `json:"total_expected"`
	PerfectCount       int                  `json:"perfect_count"`
	PartialCount       int                  `json:"partial_count"`
	NotFoundCount      int                  `json:"not_found_count"`
	Records            []RecordVerification `json:"records"`
	PerfectRestoration bool                 `json:"perfect_restoration"`
}

// Verifier compares restored records field by field against the snapshot
// captured before deletion. Records are refetched by identifier so a rename
// surfaces as a field difference, never as an absence.
type Verifier struct {
	client RecordClient
	logger *zap.Logger
}

// NewVerifier constructs a verifier, validating its collaborators.
func NewVerifier(client RecordClient, logger *zap.Logger) (*Verifier, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &Verifier{client: client, logger: resolvedLogger}, nil
}

// Verify refetches each original record by identifier and compares the
// identity fields the original carried. A transport failure aborts the run so
// a flaky API is never reported as a missing record. The report is perfect
// only when every record is a PERFECT match.
func (verifier *Verifier) Verify(verifyContext context.Context, kind auditboard.ResourceKind, originalRecords []auditboard.Record) (VerifyReport, error) {
	verifier.logger.Info(verifyStartedMessageConstant,
		zap.String(logFieldVerifiedTypeConstant, string(kind)),
		zap.Int(logFieldOriginalCountConstant, len(originalRecords)),
	)

	report := VerifyReport{
		VerifiedType:  string(kind),
		TotalExpected: len(originalRecords),
		Records:       []RecordVerification{},
	}

	for recordIndex, originalRecord := range originalRecords {
		verification, verifyError := verifier.verifyRecord(verifyContext, kind, recordIndex, originalRecord)
		if verifyError != nil {
			return VerifyReport{}, verifyError
		}
		report.Records = append(report.Records, verification)

		switch verification.Status {
		case StatusPerfect:
			report.PerfectCount++
		case StatusPartial:
			report.PartialCount++
		case StatusNotFound:
			report.NotFoundCount++
		}
	}

	report.PerfectRestoration = report.PerfectCount == report.TotalExpected

	verifier.logger.Info(verifyCompletedMessageConstant,
		zap.String(logFieldVerifiedTypeConstant, string(kind)),
		zap.Int(logFieldPerfectCountConstant, report.PerfectCount),
		zap.Int(logFieldPartialCountConstant, report.PartialCount),
		zap.Int(logFieldNotFoundCountConstant, report.NotFoundCount),
	)
	return report, nil
}

func (verifier *Verifier) verifyRecord(verifyContext context.Context, kind auditboard.ResourceKind, recordIndex int, originalRecord auditboard.Record) (RecordVerification, error) {
	displayName := originalRecord.Name()
	if len(displayName) == 0 {
		displayName = fmt.Sprintf(unnamedOriginalRecordTemplateConstant, recordIndex+1)
	}

	originalIdentifier := originalRecord.ID()
	if originalIdentifier == 0 {
		return RecordVerification{Name: displayName, Status: StatusNotFound}, nil
	}

	restoredRecord, recordExists, findError := verifier.client.Find(verifyContext, kind, originalIdentifier)
	if findError != nil {
		return RecordVerification{}, findError
	}
	if !recordExists {
		return RecordVerification{Name: displayName, Status: StatusNotFound}, nil
	}

	differences := compareIdentityFields(originalRecord, restoredRecord)
	verification := RecordVerification{
		Name:        displayName,
		Status:      StatusPerfect,
		RestoredID:  restoredRecord.ID(),
		Differences: differences,
	}
	if len(differences) > 0 {
		verification.Status = StatusPartial
	}
	return verification, nil
}

// compareIdentityFields reports the identity fields whose values differ.
// Numeric values are normalized before comparison because decoded JSON mixes
// float64 and integer representations of the same id.
func compareIdentityFields(originalRecord auditboard.Record, restoredRecord auditboard.Record) []FieldDifference {
	differences := []FieldDifference{}
	for _, fieldName := range identityFieldNames {
		expectedValue, fieldPresent := originalRecord[fieldName]
		if !fieldPresent || expectedValue == nil {
			continue
		}

		actualValue := restoredRecord[fieldName]
		if !valuesEqual(expectedValue, actualValue) {
			differences = append(differences, FieldDifference{Field: fieldName, Expected: expectedValue, Actual: actualValue})
		}
	}
	return differences
}

func valuesEqual(expectedValue any, actualValue any) bool {
	expectedNumber, expectedIsNumber := numericValue(expectedValue)
	actualNumber, actualIsNumber := numericValue(actualValue)
	if expectedIsNumber && actualIsNumber {
		return expectedNumber == actualNumber
	}
	return fmt.Sprintf("%v", expectedValue) == fmt.Sprintf("%v", actualValue)
}

func numericValue(rawValue any) (float64, bool) {
	switch typedValue := rawValue.(type) {
	case float64:
		return typedValue, true
	case float32:
		return float64(typedValue), true
	case int64:
		return float64(typedValue), true
	case int:
		return float64(typedValue), true
	case json.Number:
		parsedValue, parseError := typedValue.Float64()
		if parseError != nil {
			return 0, false
		}
		return parsedValue, true
	default:
		return 0, false
	}
}

type originalDocument struct {
	Deleted  []auditboard.Record `json:"deleted"`
	Entities []auditboard.Record `json:"entities"`
}

// LoadOriginalRecords reads the snapshot captured by a deletion run. The file
// may hold a bare list of records or a report object with a "deleted" or
// "entities" key.
func LoadOriginalRecords(filePath string) ([]auditboard.Record, error) {
	fileContents, readError := os.ReadFile(filePath)
	if readError != nil {
		return nil, readError
	}

	var bareRecords []auditboard.Record
	if decodeError := jsoniter.ConfigFastest.Unmarshal(fileContents, &bareRecords); decodeError == nil {
		if len(bareRecords) == 0 {
			return nil, fmt.Errorf(originalFileEmptyTemplateConstant, filePath)
		}
		return bareRecords, nil
	}

	var document originalDocument
	if decodeError := jsoniter.ConfigFastest.Unmarshal(fileContents, &document); decodeError != nil {
		return nil, fmt.Errorf(originalFileDecodingTemplate, filePath, decodeError)
	}

	originalRecords := document.Deleted
	if len(originalRecords) == 0 {
		originalRecords = document.Entities
	}
	if len(originalRecords) == 0 {
		return nil, fmt.Errorf(originalFileEmptyTemplateConstant, filePath)
	}
	return originalRecords, nil
}
