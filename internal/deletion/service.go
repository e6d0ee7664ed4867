package deletion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/safety"
)

const (
	deleterNotConfiguredMessage    = "record deleter not configured"
	gateNotConfiguredMessage       = "safety gate not configured"
	cancelledMessageConstant       = "deletion cancelled"
	noTargetsMessageConstant       = "No records to delete"
	dryRunDeletedTemplateConstant  = "[DRY-RUN] Would delete %s %d: %s"
	progressTitleTemplateConstant  = "Deleting %s"
	summaryTemplateConstant        = "Deleted %d of %d %s"
	dryRunSummaryTemplateConstant  = "[DRY-RUN] Would have deleted %d %s"
	failureSummaryTemplateConstant = "%d deletions failed"
	failureLineTemplateConstant    = "  - %s %d: %s"
	failureMoreTemplateConstant    = "  ... and %d more failures"
	failureSampleLimitConstant     = 10
	batchStartedMessageConstant    = "deletion batch started"
	batchCompletedMessageConstant  = "deletion batch completed"
	recordDeletedMessageConstant   = "record deleted"
	recordDeletionFailedMessage    = "record deletion failed"
	logFieldDryRunConstant         = "dry_run"
	logFieldTotalConstant          = "total"
	logFieldDeletedCountConstant   = "deleted_count"
	logFieldFailedCountConstant    = "failed_count"
	logFieldTargetResourceConstant = "resource"
	logFieldTargetRecordIDConstant = "record_id"
)

// ErrCancelled signals the operator declined the confirmation phrase. The
// command layer reports it without treating the run as failed.
var ErrCancelled = errors.New(cancelledMessageConstant)

// ErrDeleterNotConfigured indicates the service was built without a client.
var ErrDeleterNotConfigured = errors.New(deleterNotConfiguredMessage)

// ErrGateNotConfigured indicates the service was built without a safety gate.
var ErrGateNotConfigured = errors.New(gateNotConfiguredMessage)

// RecordDeleter is the client surface batch deletion needs.
type RecordDeleter interface {
	DeleteRecord(deleteContext context.Context, kind auditboard.ResourceKind, recordID int64) error
}

// ConfirmationGate is the safety surface batch deletion needs.
type ConfirmationGate interface {
	ConfirmDeletion(itemType string, itemCount int, requiredPhrase string, skipConfirmation bool) (bool, error)
	Countdown(countdownContext context.Context, seconds int) error
}

// ProgressReporter tracks one batch on screen.
type ProgressReporter interface {
	Increment()
	Stop()
}

// ProgressFactory starts a progress display for one batch. A nil factory
// disables progress rendering.
type ProgressFactory func(title string, total int) ProgressReporter

// OperatorOutput is the console surface the service reports through.
type OperatorOutput interface {
	Info(format string, arguments ...any)
	Warning(format string, arguments ...any)
	Error(format string, arguments ...any)
	Success(format string, arguments ...any)
}

// Item records the outcome for one deleted or failed record.
type Item struct {
	ID    int64  `json:"id"`
	UID   string `json:"uid,omitempty"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

// Report is the persisted outcome of one batch deletion run.
type Report struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	DryRun    bool   `json:"dry_run"`
	Resource  string `json:"resource"`
	Total     int    `json:"total"`
	Deleted   []Item `json:"deleted"`
	Failed    []Item `json:"failed"`
}

// Options carries the per-invocation switches of one batch run.
type Options struct {
	DryRun           bool
	SkipConfirmation bool
	CountdownSeconds int
}

// Service deletes batches of records behind the safety gate.
type Service struct {
	deleter       RecordDeleter
	gate          ConfirmationGate
	output        OperatorOutput
	progress      ProgressFactory
	logger        *zap.Logger
	pauseInterval int
	pauseDelay    time.Duration
	sleep         func(sleepContext context.Context, duration time.Duration) error
}

// NewService constructs a batch deletion service, validating its collaborators.
func NewService(
	deleter RecordDeleter,
	gate ConfirmationGate,
	output OperatorOutput,
	progress ProgressFactory,
	logger *zap.Logger,
	deletionConfiguration Configuration,
	safetyConfiguration safety.Configuration,
) (*Service, error) {
	if deleter == nil {
		return nil, ErrDeleterNotConfigured
	}
	if gate == nil {
		return nil, ErrGateNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	return &Service{
		deleter:       deleter,
		gate:          gate,
		output:        output,
		progress:      progress,
		logger:        resolvedLogger,
		pauseInterval: deletionConfiguration.PauseInterval(),
		pauseDelay:    safetyConfiguration.RateLimitDelayDuration(),
		sleep:         sleepWithContext,
	}, nil
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

// DeleteBatch confirms, counts down, and deletes the targets one by one. A
// failed record is recorded and the batch continues; every target ends up in
// exactly one of Deleted or Failed. ErrCancelled is returned when the
// operator declines the confirmation phrase.
func (service *Service) DeleteBatch(batchContext context.Context, kind auditboard.ResourceKind, targets []auditboard.Record, options Options) (Report, error) {
	report := Report{
		DryRun:   options.DryRun,
		Resource: string(kind),
		Total:    len(targets),
		Deleted:  []Item{},
		Failed:   []Item{},
	}

	if len(targets) == 0 {
		service.output.Warning(noTargetsMessageConstant)
		return report, nil
	}

	confirmed, confirmationError := service.gate.ConfirmDeletion(string(kind), len(targets), "", options.SkipConfirmation)
	if confirmationError != nil {
		return Report{}, confirmationError
	}
	if !confirmed {
		return Report{}, ErrCancelled
	}

	if countdownError := service.gate.Countdown(batchContext, options.CountdownSeconds); countdownError != nil {
		return Report{}, countdownError
	}

	service.logger.Info(batchStartedMessageConstant,
		zap.String(logFieldTargetResourceConstant, string(kind)),
		zap.Int(logFieldTotalConstant, len(targets)),
		zap.Bool(logFieldDryRunConstant, options.DryRun),
	)

	var progressHandle ProgressReporter
	if service.progress != nil {
		progressHandle = service.progress(progressTitle(kind), len(targets))
	}

	for targetIndex, targetRecord := range targets {
		resultItem := Item{ID: targetRecord.ID(), UID: targetRecord.UID(), Name: targetRecord.Name()}

		if options.DryRun {
			service.output.Info(dryRunDeletedTemplateConstant, kind.SingularLabel(), resultItem.ID, itemLabel(resultItem))
			report.Deleted = append(report.Deleted, resultItem)
		} else {
			deleteError := service.deleter.DeleteRecord(batchContext, kind, targetRecord.ID())
			if deleteError != nil {
				resultItem.Error = deleteError.Error()
				report.Failed = append(report.Failed, resultItem)
				service.logger.Warn(recordDeletionFailedMessage,
					zap.String(logFieldTargetResourceConstant, string(kind)),
					zap.Int64(logFieldTargetRecordIDConstant, resultItem.ID),
					zap.Error(deleteError),
				)
			} else {
				report.Deleted = append(report.Deleted, resultItem)
				service.logger.Info(recordDeletedMessageConstant,
					zap.String(logFieldTargetResourceConstant, string(kind)),
					zap.Int64(logFieldTargetRecordIDConstant, resultItem.ID),
				)
			}
		}

		if progressHandle != nil {
			progressHandle.Increment()
		}

		if service.shouldPause(options.DryRun, targetIndex, len(targets)) {
			if sleepError := service.sleep(batchContext, service.pauseDelay); sleepError != nil {
				if progressHandle != nil {
					progressHandle.Stop()
				}
				return Report{}, sleepError
			}
		}
	}

	if progressHandle != nil {
		progressHandle.Stop()
	}

	service.logger.Info(batchCompletedMessageConstant,
		zap.String(logFieldTargetResourceConstant, string(kind)),
		zap.Int(logFieldDeletedCountConstant, len(report.Deleted)),
		zap.Int(logFieldFailedCountConstant, len(report.Failed)),
	)
	service.displaySummary(kind, report)
	return report, nil
}

// shouldPause paces live deletions every pauseInterval records, never after
// the last one and never in dry-run.
func (service *Service) shouldPause(dryRun bool, targetIndex int, totalTargets int) bool {
	if dryRun {
		return false
	}
	processedCount := targetIndex + 1
	if processedCount == totalTargets {
		return false
	}
	return processedCount%service.pauseInterval == 0
}

func (service *Service) displaySummary(kind auditboard.ResourceKind, report Report) {
	if report.DryRun {
		service.output.Info(dryRunSummaryTemplateConstant, len(report.Deleted), string(kind))
		return
	}

	service.output.Success(summaryTemplateConstant, len(report.Deleted), report.Total, string(kind))
	if len(report.Failed) == 0 {
		return
	}

	service.output.Error(failureSummaryTemplateConstant, len(report.Failed))
	for failureIndex, failedItem := range report.Failed {
		if failureIndex == failureSampleLimitConstant {
			service.output.Error(failureMoreTemplateConstant, len(report.Failed)-failureSampleLimitConstant)
			break
		}
		service.output.Error(failureLineTemplateConstant, kind.SingularLabel(), failedItem.ID, failedItem.Error)
	}
}

func progressTitle(kind auditboard.ResourceKind) string {
	return fmt.Sprintf(progressTitleTemplateConstant, string(kind))
}

func itemLabel(resultItem Item) string {
	if len(resultItem.Name) > 0 {
		return resultItem.Name
	}
	return resultItem.UID
}
