package results_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/results"
)

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

type sampleReport struct {
	RunID   string `json:"run_id"`
	Deleted int    `json:"deleted"`
}

func TestWriterSaveTimestampedFile(testInstance *testing.T) {
	resultsDirectory := filepath.Join(testInstance.TempDir(), "results")
	clock := fixedClock{instant: time.Date(2026, time.March, 14, 9, 30, 15, 0, time.UTC)}
	writer := results.NewWriter(resultsDirectory, clock)

	savedPath, saveError := writer.Save(sampleReport{RunID: "run-1", Deleted: 3}, "", "deletion_controls_live")
	require.NoError(testInstance, saveError)
	require.Equal(testInstance, filepath.Join(resultsDirectory, "deletion_controls_live_20260314_093015.json"), savedPath)

	fileContents, readError := os.ReadFile(savedPath)
	require.NoError(testInstance, readError)

	var decodedReport sampleReport
	require.NoError(testInstance, jsoniter.ConfigDefault.Unmarshal(fileContents, &decodedReport))
	require.Equal(testInstance, "run-1", decodedReport.RunID)
	require.Equal(testInstance, 3, decodedReport.Deleted)
}

func TestWriterSaveExplicitPathWins(testInstance *testing.T) {
	explicitPath := filepath.Join(testInstance.TempDir(), "reports", "custom.json")
	writer := results.NewWriter("", fixedClock{instant: time.Now()})

	savedPath, saveError := writer.Save(sampleReport{RunID: "run-2"}, explicitPath, "deletion_controls_dry_run")
	require.NoError(testInstance, saveError)
	require.Equal(testInstance, explicitPath, savedPath)

	_, statError := os.Stat(explicitPath)
	require.NoError(testInstance, statError)
}

func TestNewRunIdentifierIsUnique(testInstance *testing.T) {
	firstIdentifier := results.NewRunIdentifier()
	secondIdentifier := results.NewRunIdentifier()
	require.NotEmpty(testInstance, firstIdentifier)
	require.NotEqual(testInstance, firstIdentifier, secondIdentifier)
}
