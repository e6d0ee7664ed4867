package safety

import "time"

const (
	defaultRequireConfirmationConstant   = true
	defaultRateLimitDelaySecondsConstant = 1.0
	defaultCountdownSecondsConstant      = 5
	defaultDryRunDefaultConstant         = true
)

// Configuration describes the safety settings shared by destructive commands.
type Configuration struct {
	RequireConfirmation bool    `mapstructure:"require_confirmation"`
	RateLimitDelay      float64 `mapstructure:"rate_limit_delay"`
	CountdownSeconds    int     `mapstructure:"countdown_seconds"`
	DryRunDefault       bool    `mapstructure:"dry_run_default"`
}

// DefaultConfigurationValues returns the loader defaults for the safety section.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + ".require_confirmation": defaultRequireConfirmationConstant,
		configurationKeyPrefix + ".rate_limit_delay":     defaultRateLimitDelaySecondsConstant,
		configurationKeyPrefix + ".countdown_seconds":    defaultCountdownSecondsConstant,
		configurationKeyPrefix + ".dry_run_default":      defaultDryRunDefaultConstant,
	}
}

// RateLimitDelayDuration converts the configured pacing delay to a duration.
func (configuration Configuration) RateLimitDelayDuration() time.Duration {
	delaySeconds := configuration.RateLimitDelay
	if delaySeconds <= 0 {
		delaySeconds = defaultRateLimitDelaySecondsConstant
	}
	return time.Duration(delaySeconds * float64(time.Second))
}

// CountdownDuration returns the configured countdown length in seconds.
func (configuration Configuration) CountdownDuration() int {
	if configuration.CountdownSeconds > 0 {
		return configuration.CountdownSeconds
	}
	return defaultCountdownSecondsConstant
}
