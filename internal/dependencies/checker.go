package dependencies

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
)

const (
	entityIDFieldConstant          = "entity_id"
	processIDFieldConstant         = "process_id"
	subprocessIDFieldConstant      = "subprocess_id"
	regionIDFieldConstant          = "region_id"
	listerNotConfiguredMessage     = "record lister not configured"
	checkingDependenciesMessage    = "checking dependencies"
	blockingRecordsFoundMessage    = "blocking child records found"
	noDependenciesMessage          = "no dependencies found"
	logFieldCheckedTypeConstant    = "checked_type"
	logFieldCheckedCountConstant   = "checked_count"
	logFieldDependencyTypeConstant = "dependency_type"
	logFieldBlockingCountConstant  = "blocking_count"
)

// ErrListerNotConfigured indicates the checker was built without a client.
var ErrListerNotConfigured = errors.New(listerNotConfiguredMessage)

// RecordLister is the client surface the checker needs.
type RecordLister interface {
	List(listContext context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error)
}

// BlockingGroup holds one class of child records blocking a deletion.
type BlockingGroup struct {
	DependencyType string              `json:"dependency_type"`
	Count          int                 `json:"count"`
	Records        []auditboard.Record `json:"records"`
}

// Report is the persisted outcome of one dependency check.
type Report struct {
	RunID           string          `json:"run_id"`
	Timestamp       string          `json:"timestamp"`
	CheckedType     string          `json:"checked_type"`
	CheckedIDs      []int64         `json:"checked_ids,omitempty"`
	RegionID        int64           `json:"region_id,omitempty"`
	HasDependencies bool            `json:"has_dependencies"`
	Blocking        []BlockingGroup `json:"blocking"`
}

// Checker resolves blocking child records one level below a set of parents.
// The region check is the exception: it inspects entities and processes
// directly.
type Checker struct {
	lister RecordLister
	logger *zap.Logger
}

// NewChecker constructs a checker, validating its collaborators.
func NewChecker(lister RecordLister, logger *zap.Logger) (*Checker, error) {
	if lister == nil {
		return nil, ErrListerNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &Checker{lister: lister, logger: resolvedLogger}, nil
}

// CheckEntities finds processes_data links attached to the given entities.
func (checker *Checker) CheckEntities(checkContext context.Context, entityIDs []int64) (Report, error) {
	return checker.checkChildren(checkContext, string(auditboard.ResourceEntities), entityIDs, auditboard.ResourceProcessesData, entityIDFieldConstant)
}

// CheckProcesses finds subprocesses attached to the given processes.
func (checker *Checker) CheckProcesses(checkContext context.Context, processIDs []int64) (Report, error) {
	return checker.checkChildren(checkContext, string(auditboard.ResourceProcesses), processIDs, auditboard.ResourceSubprocesses, processIDFieldConstant)
}

// CheckSubprocesses finds controls attached to the given subprocesses.
func (checker *Checker) CheckSubprocesses(checkContext context.Context, subprocessIDs []int64) (Report, error) {
	return checker.checkChildren(checkContext, string(auditboard.ResourceSubprocesses), subprocessIDs, auditboard.ResourceControls, subprocessIDFieldConstant)
}

// CheckRegion finds entities and processes still scoped to the region.
func (checker *Checker) CheckRegion(checkContext context.Context, regionID int64) (Report, error) {
	checker.logger.Info(checkingDependenciesMessage,
		zap.String(logFieldCheckedTypeConstant, string(auditboard.ResourceRegions)),
		zap.Int64(regionIDFieldConstant, regionID),
	)

	report := Report{
		CheckedType: string(auditboard.ResourceRegions),
		RegionID:    regionID,
		Blocking:    []BlockingGroup{},
	}

	childKinds := []auditboard.ResourceKind{auditboard.ResourceEntities, auditboard.ResourceProcesses}
	for _, childKind := range childKinds {
		allChildren, listError := checker.lister.List(checkContext, childKind)
		if listError != nil {
			return Report{}, listError
		}

		blockingRecords := auditboard.FilterByFieldValue(allChildren, regionIDFieldConstant, regionID)
		report.Blocking = append(report.Blocking, BlockingGroup{
			DependencyType: string(childKind),
			Count:          len(blockingRecords),
			Records:        blockingRecords,
		})
		if len(blockingRecords) > 0 {
			report.HasDependencies = true
		}
	}

	checker.logOutcome(report)
	return report, nil
}

func (checker *Checker) checkChildren(checkContext context.Context, checkedType string, parentIDs []int64, childKind auditboard.ResourceKind, foreignKeyField string) (Report, error) {
	checker.logger.Info(checkingDependenciesMessage,
		zap.String(logFieldCheckedTypeConstant, checkedType),
		zap.Int(logFieldCheckedCountConstant, len(parentIDs)),
	)

	allChildren, listError := checker.lister.List(checkContext, childKind)
	if listError != nil {
		return Report{}, listError
	}

	blockingRecords := auditboard.FilterByFieldMembership(allChildren, foreignKeyField, auditboard.IDSet(parentIDs))

	report := Report{
		CheckedType:     checkedType,
		CheckedIDs:      parentIDs,
		HasDependencies: len(blockingRecords) > 0,
		Blocking: []BlockingGroup{{
			DependencyType: string(childKind),
			Count:          len(blockingRecords),
			Records:        blockingRecords,
		}},
	}

	checker.logOutcome(report)
	return report, nil
}

func (checker *Checker) logOutcome(report Report) {
	if !report.HasDependencies {
		checker.logger.Info(noDependenciesMessage, zap.String(logFieldCheckedTypeConstant, report.CheckedType))
		return
	}
	for _, blockingGroup := range report.Blocking {
		if blockingGroup.Count == 0 {
			continue
		}
		checker.logger.Warn(blockingRecordsFoundMessage,
			zap.String(logFieldCheckedTypeConstant, report.CheckedType),
			zap.String(logFieldDependencyTypeConstant, blockingGroup.DependencyType),
			zap.Int(logFieldBlockingCountConstant, blockingGroup.Count),
		)
	}
}
