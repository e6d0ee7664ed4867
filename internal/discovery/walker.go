package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/auditops/abctl/internal/auditboard"
)

const (
	clientNotConfiguredMessageConstant = "api client not configured"
	regionNotFoundTemplateConstant     = "region %d not found"
	regionSummaryTemplateConstant      = "Region %d - %s"
	regionMissingSummaryConstant       = "N/A"
	descriptionFieldConstant           = "description"
	entityTypeIDFieldConstant          = "entity_type_id"
	regionIDFieldConstant              = "region_id"
	entityIDFieldConstant              = "entity_id"
	processIDFieldConstant             = "process_id"
	processesDatumIDFieldConstant      = "processes_datum_id"
	subprocessIDFieldConstant          = "subprocess_id"
	controlIDFieldConstant             = "control_id"
	subprocessesDatumIDFieldConstant   = "subprocesses_datum_id"
	walkStartedMessageConstant         = "region analysis started"
	walkLevelMessageConstant           = "hierarchy level resolved"
	logFieldRegionIDConstant           = "region_id"
	logFieldLevelConstant              = "level"
	logFieldCountConstant              = "count"
)

// ErrClientNotConfigured indicates the walker was built without a client.
var ErrClientNotConfigured = errors.New(clientNotConfiguredMessageConstant)

// APIClient is the client surface the walker needs.
type APIClient interface {
	List(listContext context.Context, kind auditboard.ResourceKind) ([]auditboard.Record, error)
	Find(findContext context.Context, kind auditboard.ResourceKind, recordID int64) (auditboard.Record, bool, error)
}

// Walker resolves the full subtree of a region: entities, processes,
// subprocesses, controls, and the junction records connecting each level.
type Walker struct {
	client APIClient
	logger *zap.Logger
}

// NewWalker constructs a walker, validating its collaborators.
func NewWalker(client APIClient, logger *zap.Logger) (*Walker, error) {
	if client == nil {
		return nil, ErrClientNotConfigured
	}
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}
	return &Walker{client: client, logger: resolvedLogger}, nil
}

// AnalyzeRegion walks the hierarchy below one region. A missing region
// produces a report with empty child collections and an error flag rather
// than a failure; an empty level short-circuits all levels below it.
func (walker *Walker) AnalyzeRegion(walkContext context.Context, regionID int64) (RegionReport, error) {
	walker.logger.Info(walkStartedMessageConstant, zap.Int64(logFieldRegionIDConstant, regionID))

	report := RegionReport{
		RegionID:         regionID,
		Entities:         []EntityNode{},
		ProcessesData:    []ProcessLink{},
		Processes:        []ProcessNode{},
		SubprocessesData: []SubprocessLink{},
		Subprocesses:     []SubprocessNode{},
		Controls:         []ControlNode{},
		ControlsData:     []ControlInstance{},
	}

	regionRecord, regionFound, findError := walker.client.Find(walkContext, auditboard.ResourceRegions, regionID)
	if findError != nil {
		return RegionReport{}, findError
	}
	if !regionFound {
		report.Error = fmt.Sprintf(regionNotFoundTemplateConstant, regionID)
		report.Summary = summarize(report)
		return report, nil
	}

	description, _ := regionRecord.StringField(descriptionFieldConstant)
	report.Region = &RegionSummary{ID: regionRecord.ID(), Name: regionRecord.Name(), Description: description}

	if walkError := walker.walkEntities(walkContext, regionID, &report); walkError != nil {
		return RegionReport{}, walkError
	}

	report.Summary = summarize(report)
	return report, nil
}

func (walker *Walker) walkEntities(walkContext context.Context, regionID int64, report *RegionReport) error {
	allEntities, listError := walker.client.List(walkContext, auditboard.ResourceEntities)
	if listError != nil {
		return listError
	}

	regionEntities := auditboard.FilterByFieldValue(allEntities, regionIDFieldConstant, regionID)
	for _, entityRecord := range regionEntities {
		entityTypeID, _ := entityRecord.IntField(entityTypeIDFieldConstant)
		report.Entities = append(report.Entities, EntityNode{
			ID:           entityRecord.ID(),
			Name:         entityRecord.Name(),
			EntityTypeID: entityTypeID,
			RegionID:     regionID,
		})
	}
	walker.logLevel(string(auditboard.ResourceEntities), len(report.Entities))

	if len(report.Entities) == 0 {
		return nil
	}

	entityIDs := make([]int64, 0, len(report.Entities))
	for _, entityNode := range report.Entities {
		entityIDs = append(entityIDs, entityNode.ID)
	}
	return walker.walkProcessLinks(walkContext, entityIDs, report)
}

func (walker *Walker) walkProcessLinks(walkContext context.Context, entityIDs []int64, report *RegionReport) error {
	allProcessLinks, listError := walker.client.List(walkContext, auditboard.ResourceProcessesData)
	if listError != nil {
		return listError
	}

	regionProcessLinks := auditboard.FilterByFieldMembership(allProcessLinks, entityIDFieldConstant, auditboard.IDSet(entityIDs))
	for _, linkRecord := range regionProcessLinks {
		entityID, _ := linkRecord.IntField(entityIDFieldConstant)
		processID, _ := linkRecord.IntField(processIDFieldConstant)
		report.ProcessesData = append(report.ProcessesData, ProcessLink{ID: linkRecord.ID(), EntityID: entityID, ProcessID: processID})
	}
	walker.logLevel(string(auditboard.ResourceProcessesData), len(report.ProcessesData))

	if len(report.ProcessesData) == 0 {
		return nil
	}

	processIdentifiers := auditboard.CollectDistinctIntField(regionProcessLinks, processIDFieldConstant)
	if walkError := walker.walkProcesses(walkContext, processIdentifiers, report); walkError != nil {
		return walkError
	}
	return walker.walkSubprocessLinks(walkContext, report)
}

func (walker *Walker) walkProcesses(walkContext context.Context, processIdentifiers []int64, report *RegionReport) error {
	if len(processIdentifiers) == 0 {
		return nil
	}

	allProcesses, listError := walker.client.List(walkContext, auditboard.ResourceProcesses)
	if listError != nil {
		return listError
	}

	for _, processRecord := range auditboard.FilterByFieldMembership(allProcesses, "id", auditboard.IDSet(processIdentifiers)) {
		processRegionID, _ := processRecord.IntField(regionIDFieldConstant)
		report.Processes = append(report.Processes, ProcessNode{
			ID:       processRecord.ID(),
			UID:      processRecord.UID(),
			Name:     processRecord.Name(),
			RegionID: processRegionID,
		})
	}
	walker.logLevel(string(auditboard.ResourceProcesses), len(report.Processes))
	return nil
}

func (walker *Walker) walkSubprocessLinks(walkContext context.Context, report *RegionReport) error {
	processLinkIDs := map[int64]struct{}{}
	for _, processLink := range report.ProcessesData {
		processLinkIDs[processLink.ID] = struct{}{}
	}
	if len(processLinkIDs) == 0 {
		return nil
	}

	allSubprocessLinks, listError := walker.client.List(walkContext, auditboard.ResourceSubprocessesData)
	if listError != nil {
		return listError
	}

	for _, linkRecord := range auditboard.FilterByFieldMembership(allSubprocessLinks, processesDatumIDFieldConstant, processLinkIDs) {
		processesDatumID, _ := linkRecord.IntField(processesDatumIDFieldConstant)
		subprocessID, _ := linkRecord.IntField(subprocessIDFieldConstant)
		report.SubprocessesData = append(report.SubprocessesData, SubprocessLink{ID: linkRecord.ID(), ProcessesDatumID: processesDatumID, SubprocessID: subprocessID})
	}
	walker.logLevel(string(auditboard.ResourceSubprocessesData), len(report.SubprocessesData))

	if len(report.SubprocessesData) == 0 {
		return nil
	}
	return walker.walkSubprocesses(walkContext, report)
}

func (walker *Walker) walkSubprocesses(walkContext context.Context, report *RegionReport) error {
	subprocessIDs := map[int64]struct{}{}
	for _, subprocessLink := range report.SubprocessesData {
		subprocessIDs[subprocessLink.SubprocessID] = struct{}{}
	}
	if len(subprocessIDs) == 0 {
		return nil
	}

	allSubprocesses, listError := walker.client.List(walkContext, auditboard.ResourceSubprocesses)
	if listError != nil {
		return listError
	}

	for _, subprocessRecord := range auditboard.FilterByFieldMembership(allSubprocesses, "id", subprocessIDs) {
		processID, _ := subprocessRecord.IntField(processIDFieldConstant)
		report.Subprocesses = append(report.Subprocesses, SubprocessNode{
			ID:        subprocessRecord.ID(),
			UID:       subprocessRecord.UID(),
			Name:      subprocessRecord.Name(),
			ProcessID: processID,
		})
	}
	walker.logLevel(string(auditboard.ResourceSubprocesses), len(report.Subprocesses))

	return walker.walkControls(walkContext, subprocessIDs, report)
}

func (walker *Walker) walkControls(walkContext context.Context, subprocessIDs map[int64]struct{}, report *RegionReport) error {
	allControls, listError := walker.client.List(walkContext, auditboard.ResourceControls)
	if listError != nil {
		return listError
	}

	controlIDs := map[int64]struct{}{}
	for _, controlRecord := range auditboard.FilterByFieldMembership(allControls, subprocessIDFieldConstant, subprocessIDs) {
		subprocessID, _ := controlRecord.IntField(subprocessIDFieldConstant)
		report.Controls = append(report.Controls, ControlNode{
			ID:           controlRecord.ID(),
			UID:          controlRecord.UID(),
			Name:         controlRecord.Name(),
			SubprocessID: subprocessID,
		})
		controlIDs[controlRecord.ID()] = struct{}{}
	}
	walker.logLevel(string(auditboard.ResourceControls), len(report.Controls))

	if len(controlIDs) == 0 {
		return nil
	}

	allControlInstances, listError := walker.client.List(walkContext, auditboard.ResourceControlsData)
	if listError != nil {
		return listError
	}

	for _, instanceRecord := range auditboard.FilterByFieldMembership(allControlInstances, controlIDFieldConstant, controlIDs) {
		controlID, _ := instanceRecord.IntField(controlIDFieldConstant)
		subprocessesDatumID, _ := instanceRecord.IntField(subprocessesDatumIDFieldConstant)
		report.ControlsData = append(report.ControlsData, ControlInstance{ID: instanceRecord.ID(), ControlID: controlID, SubprocessesDatumID: subprocessesDatumID})
	}
	walker.logLevel(string(auditboard.ResourceControlsData), len(report.ControlsData))
	return nil
}

func (walker *Walker) logLevel(levelName string, resolvedCount int) {
	walker.logger.Info(walkLevelMessageConstant,
		zap.String(logFieldLevelConstant, levelName),
		zap.Int(logFieldCountConstant, resolvedCount),
	)
}

func summarize(report RegionReport) Summary {
	regionLabel := fmt.Sprintf(regionSummaryTemplateConstant, report.RegionID, regionMissingSummaryConstant)
	if report.Region != nil {
		regionLabel = fmt.Sprintf(regionSummaryTemplateConstant, report.RegionID, report.Region.Name)
	}

	return Summary{
		Region:                regionLabel,
		EntitiesCount:         len(report.Entities),
		ProcessesCount:        len(report.Processes),
		SubprocessesCount:     len(report.Subprocesses),
		ControlsCount:         len(report.Controls),
		ProcessesDataCount:    len(report.ProcessesData),
		SubprocessesDataCount: len(report.SubprocessesData),
		ControlsDataCount:     len(report.ControlsData),
		TotalItems:            len(report.Entities) + len(report.Processes) + len(report.Subprocesses) + len(report.Controls),
	}
}
