package deletion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/auditops/abctl/internal/auditboard"
)

const (
	finderNotConfiguredMessage         = "record finder not configured"
	noSelectorMessageConstant          = "one of --ids, --ids-file, or --pattern is required"
	multipleSelectorsMessageConstant   = "--ids, --ids-file, and --pattern are mutually exclusive"
	idsFileEmptyTemplateConstant       = "no identifiers found in %s"
	idsFileDecodingTemplateConstant    = "decoding %s: %w"
	jsonFileExtensionConstant          = ".json"
	targetSkippedMessageConstant       = "target record not found, skipping"
	targetResolutionStartedMessage     = "resolving deletion targets"
	targetResolutionCompletedMessage   = "deletion targets resolved"
	logFieldResourceConstant           = "resource"
	logFieldRequestedCountConstant     = "requested_count"
	logFieldResolvedCountConstant      = "resolved_count"
	logFieldRecordIDConstant           = "record_id"
	logFieldPatternConstant            = "pattern"
	patternResolutionUnsupportedError  = "pattern selection is not supported for type %q"
	patternResolutionSupportedControls = auditboard.ResourceControls
)

// ErrNoSelector indicates a deletion command was invoked without targets.
var ErrNoSelector = errors.New(noSelectorMessageConstant)

// ErrMultipleSelectors indicates conflicting target selectors were given.
var ErrMultipleSelectors = errors.New(multipleSelectorsMessageConstant)

// ErrFinderNotConfigured indicates the resolver was built without a client.
var ErrFinderNotConfigured = errors.New(finderNotConfiguredMessage)

// RecordFinder is the client surface target resolution needs.
type RecordFinder interface {
	List(listContext context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error)
	Find(findContext context.Context, kind auditboard.ResourceKind, recordID int64) (auditboard.Record, bool, error)
}

// Selector carries the mutually exclusive target selection inputs of one run.
type Selector struct {
	IDs           []int64
	IDsFilePath   string
	Pattern       string
	CaseSensitive bool
}

// Validate rejects empty and conflicting selections before any API call.
func (selector Selector) Validate() error {
	selectorCount := 0
	if len(selector.IDs) > 0 {
		selectorCount++
	}
	if len(selector.IDsFilePath) > 0 {
		selectorCount++
	}
	if len(selector.Pattern) > 0 {
		selectorCount++
	}

	if selectorCount == 0 {
		return ErrNoSelector
	}
	if selectorCount > 1 {
		return ErrMultipleSelectors
	}
	return nil
}

// TargetResolver turns a selector into the concrete records a run will delete.
type TargetResolver struct {
	finder RecordFinder
	logger *zap.Logger
}

// NewTargetResolver constructs a resolver, validating its collaborators.
func NewTargetResolver(finder RecordFinder, logger *zap.Logger) (*TargetResolver, error) {
	if finder == nil {
		return nil, ErrFinderNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &TargetResolver{finder: finder, logger: resolvedLogger}, nil
}

// Resolve fetches the records selected for deletion. Identifiers that no
// longer exist are skipped with a log entry rather than failing the run;
// transport failures still abort so a flaky API is never mistaken for an
// already-deleted record.
func (resolver *TargetResolver) Resolve(resolveContext context.Context, kind auditboard.ResourceKind, selector Selector) ([]auditboard.Record, error) {
	if validationError := selector.Validate(); validationError != nil {
		return nil, validationError
	}

	var resolvedRecords []auditboard.Record
	var resolveError error
	switch {
	case len(selector.Pattern) > 0:
		resolvedRecords, resolveError = resolver.resolveByPattern(resolveContext, kind, selector.Pattern, selector.CaseSensitive)
	case len(selector.IDsFilePath) > 0:
		identifiers, loadError := LoadIdentifierFile(selector.IDsFilePath)
		if loadError != nil {
			return nil, loadError
		}
		resolvedRecords, resolveError = resolver.resolveByIdentifiers(resolveContext, kind, identifiers)
	default:
		resolvedRecords, resolveError = resolver.resolveByIdentifiers(resolveContext, kind, selector.IDs)
	}
	if resolveError != nil {
		return nil, resolveError
	}

	resolver.logger.Info(targetResolutionCompletedMessage,
		zap.String(logFieldResourceConstant, string(kind)),
		zap.Int(logFieldResolvedCountConstant, len(resolvedRecords)),
	)
	return resolvedRecords, nil
}

func (resolver *TargetResolver) resolveByIdentifiers(resolveContext context.Context, kind auditboard.ResourceKind, identifiers []int64) ([]auditboard.Record, error) {
	resolver.logger.Info(targetResolutionStartedMessage,
		zap.String(logFieldResourceConstant, string(kind)),
		zap.Int(logFieldRequestedCountConstant, len(identifiers)),
	)

	resolvedRecords := make([]auditboard.Record, 0, len(identifiers))
	for _, recordIdentifier := range identifiers {
		foundRecord, recordExists, findError := resolver.finder.Find(resolveContext, kind, recordIdentifier)
		if findError != nil {
			return nil, findError
		}
		if !recordExists {
			resolver.logger.Warn(targetSkippedMessageConstant,
				zap.String(logFieldResourceConstant, string(kind)),
				zap.Int64(logFieldRecordIDConstant, recordIdentifier),
			)
			continue
		}
		resolvedRecords = append(resolvedRecords, foundRecord)
	}
	return resolvedRecords, nil
}

func (resolver *TargetResolver) resolveByPattern(resolveContext context.Context, kind auditboard.ResourceKind, pattern string, caseSensitive bool) ([]auditboard.Record, error) {
	if kind != patternResolutionSupportedControls {
		return nil, fmt.Errorf(patternResolutionUnsupportedError, string(kind))
	}

	resolver.logger.Info(targetResolutionStartedMessage,
		zap.String(logFieldResourceConstant, string(kind)),
		zap.String(logFieldPatternConstant, pattern),
	)

	allRecords, listError := resolver.finder.List(resolveContext, kind)
	if listError != nil {
		return nil, listError
	}

	matchedRecords := make([]auditboard.Record, 0)
	for _, candidateRecord := range allRecords {
		if candidateRecord.MatchesPattern(pattern, caseSensitive) {
			matchedRecords = append(matchedRecords, candidateRecord)
		}
	}
	return matchedRecords, nil
}

type identifierDocument struct {
	IDs []int64 `json:"ids" yaml:"ids"`
}

// LoadIdentifierFile reads record identifiers from a JSON or YAML file. The
// file may hold a bare list of identifiers or an object with an "ids" key.
func LoadIdentifierFile(filePath string) ([]int64, error) {
	fileContents, readError := os.ReadFile(filePath)
	if readError != nil {
		return nil, readError
	}

	identifiers, decodeError := decodeIdentifiers(filePath, fileContents)
	if decodeError != nil {
		return nil, decodeError
	}
	if len(identifiers) == 0 {
		return nil, fmt.Errorf(idsFileEmptyTemplateConstant, filePath)
	}
	return identifiers, nil
}

func decodeIdentifiers(filePath string, fileContents []byte) ([]int64, error) {
	isJSONFile := strings.EqualFold(filepath.Ext(filePath), jsonFileExtensionConstant)

	var bareIdentifiers []int64
	if isJSONFile {
		if decodeError := jsoniter.ConfigFastest.Unmarshal(fileContents, &bareIdentifiers); decodeError == nil {
			return bareIdentifiers, nil
		}
	} else {
		if decodeError := yaml.Unmarshal(fileContents, &bareIdentifiers); decodeError == nil {
			return bareIdentifiers, nil
		}
	}

	var document identifierDocument
	if isJSONFile {
		if decodeError := jsoniter.ConfigFastest.Unmarshal(fileContents, &document); decodeError != nil {
			return nil, fmt.Errorf(idsFileDecodingTemplateConstant, filePath, decodeError)
		}
	} else {
		if decodeError := yaml.Unmarshal(fileContents, &document); decodeError != nil {
			return nil, fmt.Errorf(idsFileDecodingTemplateConstant, filePath, decodeError)
		}
	}
	return document.IDs, nil
}
