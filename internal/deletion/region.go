package deletion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
	"github.com/auditops/abctl/internal/dependencies"
)

const (
	regionBlockedMessageConstant     = "region has dependencies"
	regionNotFoundTemplateConstant   = "region %d not found"
	regionPhraseTemplateConstant     = "DELETE REGION %d"
	regionItemTypeTemplateConstant   = "region %d (%s)"
	regionForcedWarningConstant      = "Dependency check skipped with --force"
	regionBlockedWarningConstant     = "Region %d still has child records; delete them first or pass --force"
	regionDryRunTemplateConstant     = "[DRY-RUN] Would delete region %d: %s"
	regionDeletedTemplateConstant    = "Deleted region %d: %s"
	regionDeletionStartedMessage     = "region deletion started"
	regionDeletionCompletedMessage   = "region deletion completed"
	logFieldRegionIdentifierConstant = "region_id"
	logFieldRegionForceConstant      = "force"
	logFieldRegionDryRunConstant     = "dry_run"
)

// ErrRegionBlocked signals child records still reference the region.
var ErrRegionBlocked = errors.New(regionBlockedMessageConstant)

// RegionClient is the client surface region deletion needs.
type RegionClient interface {
	List(listContext context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error)
	Find(findContext context.Context, kind auditboard.ResourceKind, recordID int64) (auditboard.Record, bool, error)
	DeleteRecord(deleteContext context.Context, kind auditboard.ResourceKind, recordID int64) error
}

// RegionGate is the safety surface region deletion needs.
type RegionGate interface {
	ConfirmDeletion(itemType string, itemCount int, requiredPhrase string, skipConfirmation bool) (bool, error)
	Countdown(countdownContext context.Context, seconds int) error
}

// RegionReport is the persisted outcome of one region deletion run. Failed
// runs carry the error so the audit trail records what went wrong.
type RegionReport struct {
	RunID        string               `json:"run_id"`
	Timestamp    string               `json:"timestamp"`
	DryRun       bool                 `json:"dry_run"`
	RegionID     int64                `json:"region_id"`
	RegionName   string               `json:"region_name,omitempty"`
	Force        bool                 `json:"force"`
	Deleted      bool                 `json:"deleted"`
	Error        string               `json:"error,omitempty"`
	Dependencies *dependencies.Report `json:"dependencies,omitempty"`
}

// RegionOptions carries the per-invocation switches of one region run.
type RegionOptions struct {
	DryRun           bool
	SkipConfirmation bool
	Force            bool
	CountdownSeconds int
}

// RegionDeleter deletes a single region after verifying nothing below it
// remains. The dependency check is the last line of defense against
// orphaning an entire subtree; --force bypasses it deliberately.
type RegionDeleter struct {
	client  RegionClient
	gate    RegionGate
	checker *dependencies.Checker
	output  OperatorOutput
	logger  *zap.Logger
}

// NewRegionDeleter constructs a region deleter, validating its collaborators.
func NewRegionDeleter(client RegionClient, gate RegionGate, output OperatorOutput, logger *zap.Logger) (*RegionDeleter, error) {
	if client == nil {
		return nil, ErrDeleterNotConfigured
	}
	if gate == nil {
		return nil, ErrGateNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	checker, checkerError := dependencies.NewChecker(client, resolvedLogger)
	if checkerError != nil {
		return nil, checkerError
	}

	return &RegionDeleter{
		client:  client,
		gate:    gate,
		checker: checker,
		output:  output,
		logger:  resolvedLogger,
	}, nil
}

// DeleteRegion runs the full region workflow: existence check, dependency
// check, confirmation with the region phrase, countdown, then the single
// DELETE. ErrRegionBlocked is returned when dependencies remain and force is
// off; ErrCancelled when the operator declines.
func (deleter *RegionDeleter) DeleteRegion(deleteContext context.Context, regionID int64, options RegionOptions) (RegionReport, error) {
	deleter.logger.Info(regionDeletionStartedMessage,
		zap.Int64(logFieldRegionIdentifierConstant, regionID),
		zap.Bool(logFieldRegionForceConstant, options.Force),
		zap.Bool(logFieldRegionDryRunConstant, options.DryRun),
	)

	report := RegionReport{
		DryRun:   options.DryRun,
		RegionID: regionID,
		Force:    options.Force,
	}

	regionRecord, regionFound, findError := deleter.client.Find(deleteContext, auditboard.ResourceRegions, regionID)
	if findError != nil {
		return RegionReport{}, findError
	}
	if !regionFound {
		notFoundError := fmt.Errorf(regionNotFoundTemplateConstant, regionID)
		report.Error = notFoundError.Error()
		return report, notFoundError
	}
	report.RegionName = regionRecord.Name()

	if options.Force {
		deleter.output.Warning(regionForcedWarningConstant)
	} else {
		dependencyReport, checkError := deleter.checker.CheckRegion(deleteContext, regionID)
		if checkError != nil {
			return RegionReport{}, checkError
		}
		report.Dependencies = &dependencyReport
		if dependencyReport.HasDependencies {
			deleter.output.Warning(regionBlockedWarningConstant, regionID)
			report.Error = ErrRegionBlocked.Error()
			return report, ErrRegionBlocked
		}
	}

	requiredPhrase := fmt.Sprintf(regionPhraseTemplateConstant, regionID)
	itemType := fmt.Sprintf(regionItemTypeTemplateConstant, regionID, report.RegionName)
	confirmed, confirmationError := deleter.gate.ConfirmDeletion(itemType, 1, requiredPhrase, options.SkipConfirmation)
	if confirmationError != nil {
		return RegionReport{}, confirmationError
	}
	if !confirmed {
		return RegionReport{}, ErrCancelled
	}

	if countdownError := deleter.gate.Countdown(deleteContext, options.CountdownSeconds); countdownError != nil {
		return RegionReport{}, countdownError
	}

	if options.DryRun {
		deleter.output.Info(regionDryRunTemplateConstant, regionID, report.RegionName)
		report.Deleted = true
		return report, nil
	}

	if deleteError := deleter.client.DeleteRecord(deleteContext, auditboard.ResourceRegions, regionID); deleteError != nil {
		report.Error = deleteError.Error()
		return report, deleteError
	}

	report.Deleted = true
	deleter.output.Success(regionDeletedTemplateConstant, regionID, report.RegionName)
	deleter.logger.Info(regionDeletionCompletedMessage, zap.Int64(logFieldRegionIdentifierConstant, regionID))
	return report, nil
}
