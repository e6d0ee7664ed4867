package deletion_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditops/abctl/internal/deletion"
)

func TestDefaultConfigurationValues(testInstance *testing.T) {
	defaultValues := deletion.DefaultConfigurationValues("deletion")

	require.Equal(testInstance, 10, defaultValues["deletion.batch_size"])
	require.Equal(testInstance, 5, defaultValues["deletion.pause_every_n"])
	require.Equal(testInstance, true, defaultValues["deletion.save_results"])
	require.Equal(testInstance, "results", defaultValues["deletion.results_dir"])
}

func TestConfigurationPauseInterval(testInstance *testing.T) {
	require.Equal(testInstance, 3, deletion.Configuration{PauseEveryN: 3}.PauseInterval())
	require.Equal(testInstance, 5, deletion.Configuration{}.PauseInterval())
}

func TestConfigurationResultsSettings(testInstance *testing.T) {
	settings := deletion.Configuration{SaveResults: true, ResultsDir: "reports"}.ResultsSettings()
	require.True(testInstance, settings.SaveResults)
	require.Equal(testInstance, "reports", settings.Directory)

	fallbackSettings := deletion.Configuration{}.ResultsSettings()
	require.Equal(testInstance, "results", fallbackSettings.Directory)
}
