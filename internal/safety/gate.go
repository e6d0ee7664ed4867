package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	dryRunWouldDeleteTemplateConstant        = "[DRY-RUN] Would delete %d %s"
	confirmationSkippedMessageConstant       = "Confirmation skipped with --confirm flag"
	permanentDeletionWarningTemplateConstant = "PERMANENTLY DELETING %d %s!"
	deletionWarningTemplateConstant          = "You are about to PERMANENTLY DELETE %d %s! This operation CANNOT be undone."
	deletionPromptTemplateConstant           = "Type '%s' to confirm: "
	confirmationFailedMessageConstant        = "Confirmation failed"
	deletionPhraseTemplateConstant           = "DELETE %d %s"
	liveModeWarningMessageConstant           = "LIVE DELETION MODE - This will permanently delete data!"
	countdownWarningTemplateConstant         = "Press Ctrl+C within %d seconds to abort..."
	sandboxURLMarkerConstant                 = "sandbox"
	productionDetectedMessageConstant        = "PRODUCTION ENVIRONMENT DETECTED"
	productionBaseURLTemplateConstant        = "Base URL: %s"
	productionWarningMessageConstant         = "You are about to perform operations on a PRODUCTION environment, not a sandbox."
	productionConfirmationPhraseConstant     = "I UNDERSTAND THIS IS PRODUCTION"
	logFieldItemTypeConstant                 = "item_type"
	logFieldItemCountConstant                = "item_count"
	confirmationDeclinedMessageConstant      = "deletion confirmation declined"
	confirmationAcceptedMessageConstant      = "deletion confirmed"
)

// OperatorOutput is the console surface the gate writes warnings to.
type OperatorOutput interface {
	Info(format string, arguments ...any)
	Warning(format string, arguments ...any)
	Error(format string, arguments ...any)
}

// Gate enforces the confirmation, countdown, and production checks preceding
// destructive calls.
type Gate struct {
	prompter            PhrasePrompter
	output              OperatorOutput
	logger              *zap.Logger
	dryRun              bool
	requireConfirmation bool
	sleep               func(sleepContext context.Context, duration time.Duration) error
}

// NewGate constructs a gate for one command invocation.
func NewGate(prompter PhrasePrompter, output OperatorOutput, logger *zap.Logger, configuration Configuration, dryRun bool) *Gate {
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	return &Gate{
		prompter:            prompter,
		output:              output,
		logger:              resolvedLogger,
		dryRun:              dryRun,
		requireConfirmation: configuration.RequireConfirmation,
		sleep:               sleepWithContext,
	}
}

func sleepWithContext(sleepContext context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-sleepContext.Done():
		return sleepContext.Err()
	case <-timer.C:
		return nil
	}
}

// DeletionPhrase builds the default confirmation phrase for a batch.
func DeletionPhrase(itemCount int, itemType string) string {
	return fmt.Sprintf(deletionPhraseTemplateConstant, itemCount, strings.ToUpper(itemType))
}

// ConfirmDeletion requires the operator to type the exact confirmation
// phrase before a live deletion proceeds. Dry-run always passes; the skip
// flag and a disabled require_confirmation setting pass with a warning.
func (gate *Gate) ConfirmDeletion(itemType string, itemCount int, requiredPhrase string, skipConfirmation bool) (bool, error) {
	if gate.dryRun {
		gate.output.Info(dryRunWouldDeleteTemplateConstant, itemCount, itemType)
		return true, nil
	}

	if skipConfirmation || !gate.requireConfirmation {
		gate.output.Warning(confirmationSkippedMessageConstant)
		gate.output.Warning(permanentDeletionWarningTemplateConstant, itemCount, itemType)
		return true, nil
	}

	if len(requiredPhrase) == 0 {
		requiredPhrase = DeletionPhrase(itemCount, itemType)
	}

	gate.output.Warning(deletionWarningTemplateConstant, itemCount, itemType)

	confirmed, promptError := gate.prompter.RequirePhrase(fmt.Sprintf(deletionPromptTemplateConstant, requiredPhrase), requiredPhrase)
	if promptError != nil {
		return false, promptError
	}

	if !confirmed {
		gate.output.Error(confirmationFailedMessageConstant)
		gate.logger.Info(confirmationDeclinedMessageConstant,
			zap.String(logFieldItemTypeConstant, itemType),
			zap.Int(logFieldItemCountConstant, itemCount),
		)
		return false, nil
	}

	gate.logger.Info(confirmationAcceptedMessageConstant,
		zap.String(logFieldItemTypeConstant, itemType),
		zap.Int(logFieldItemCountConstant, itemCount),
	)
	return true, nil
}

// Countdown gives the operator a final window to interrupt a live deletion.
// Context cancellation aborts the wait and surfaces the context error so
// callers can exit cleanly.
func (gate *Gate) Countdown(countdownContext context.Context, seconds int) error {
	if gate.dryRun {
		return nil
	}

	gate.output.Warning(liveModeWarningMessageConstant)
	gate.output.Warning(countdownWarningTemplateConstant, seconds)

	return gate.sleep(countdownContext, time.Duration(seconds)*time.Second)
}

// ConfirmProduction requires an extra phrase when the base URL does not look
// like a sandbox. Dry-run and sandbox URLs pass without prompting.
func (gate *Gate) ConfirmProduction(baseURL string) (bool, error) {
	if gate.dryRun {
		return true, nil
	}
	if strings.Contains(strings.ToLower(baseURL), sandboxURLMarkerConstant) {
		return true, nil
	}

	gate.output.Warning(productionDetectedMessageConstant)
	gate.output.Warning(productionBaseURLTemplateConstant, baseURL)
	gate.output.Warning(productionWarningMessageConstant)

	confirmed, promptError := gate.prompter.RequirePhrase(
		fmt.Sprintf(deletionPromptTemplateConstant, productionConfirmationPhraseConstant),
		productionConfirmationPhraseConstant,
	)
	if promptError != nil {
		return false, promptError
	}
	if !confirmed {
		gate.output.Error(confirmationFailedMessageConstant)
	}
	return confirmed, nil
}
