package deletion

import "github.com/auditops/abctl/internal/results"

const (
	defaultBatchSizeConstant        = 10
	defaultPauseEveryNConstant      = 5
	defaultSaveResultsConstant      = true
	defaultResultsDirectoryConstant = "results"
)

// Configuration describes the batch pacing and report persistence settings.
type Configuration struct {
	BatchSize   int    `mapstructure:"batch_size"`
	PauseEveryN int    `mapstructure:"pause_every_n"`
	SaveResults bool   `mapstructure:"save_results"`
	ResultsDir  string `mapstructure:"results_dir"`
}

// DefaultConfigurationValues returns the loader defaults for the deletion section.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + ".batch_size":    defaultBatchSizeConstant,
		configurationKeyPrefix + ".pause_every_n": defaultPauseEveryNConstant,
		configurationKeyPrefix + ".save_results":  defaultSaveResultsConstant,
		configurationKeyPrefix + ".results_dir":   defaultResultsDirectoryConstant,
	}
}

// PauseInterval returns the configured pacing interval or the default.
func (configuration Configuration) PauseInterval() int {
	if configuration.PauseEveryN > 0 {
		return configuration.PauseEveryN
	}
	return defaultPauseEveryNConstant
}

// ResultsSettings projects the persistence options commands hand to a results writer.
func (configuration Configuration) ResultsSettings() results.Settings {
	directory := configuration.ResultsDir
	if len(directory) == 0 {
		directory = defaultResultsDirectoryConstant
	}
	return results.Settings{SaveResults: configuration.SaveResults, Directory: directory}
}
