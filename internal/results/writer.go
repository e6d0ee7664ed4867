package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	defaultResultsDirectoryConstant = "results"
	fileTimestampLayoutConstant     = "20060102_150405"
	reportFileTemplateConstant      = "%s_%s.json"
	directoryPermissionsConstant    = 0o755
	filePermissionsConstant         = 0o644
	jsonIndentConstant              = "  "
)

var jsonCodec = jsoniter.ConfigDefault

// Settings carries the resolved persistence options commands hand to a Writer.
type Settings struct {
	SaveResults bool
	Directory   string
}

// Clock abstracts time for deterministic file naming in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Writer saves reports under a configured results directory.
type Writer struct {
	directory string
	clock     Clock
}

// NewWriter constructs a writer rooted at the given directory, falling back
// to the default results directory when empty.
func NewWriter(directory string, clock Clock) *Writer {
	resolvedDirectory := directory
	if len(resolvedDirectory) == 0 {
		resolvedDirectory = defaultResultsDirectoryConstant
	}
	resolvedClock := clock
	if resolvedClock == nil {
		resolvedClock = SystemClock{}
	}
	return &Writer{directory: resolvedDirectory, clock: resolvedClock}
}

// NewRunIdentifier returns a unique identifier stamped into every report.
func NewRunIdentifier() string {
	return uuid.NewString()
}

// Save writes the report as indented JSON. An explicit path wins; otherwise
// the file lands at <directory>/<baseName>_<timestamp>.json. The resolved
// path is returned for logging.
func (writer *Writer) Save(report any, explicitPath string, baseName string) (string, error) {
	outputPath := explicitPath
	if len(outputPath) == 0 {
		timestamp := writer.clock.Now().Format(fileTimestampLayoutConstant)
		outputPath = filepath.Join(writer.directory, fmt.Sprintf(reportFileTemplateConstant, baseName, timestamp))
	}

	parentDirectory := filepath.Dir(outputPath)
	if makeDirectoryError := os.MkdirAll(parentDirectory, directoryPermissionsConstant); makeDirectoryError != nil {
		return "", makeDirectoryError
	}

	encodedReport, encodeError := jsonCodec.MarshalIndent(report, "", jsonIndentConstant)
	if encodeError != nil {
		return "", encodeError
	}

	if writeError := os.WriteFile(outputPath, encodedReport, filePermissionsConstant); writeError != nil {
		return "", writeError
	}

	return outputPath, nil
}
