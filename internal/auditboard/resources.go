package auditboard

import (
	"fmt"
	"strings"
)

const unknownResourceKindTemplateConstant = "unknown resource kind: %s"

// ResourceKind identifies one AuditBoard collection reachable through the API.
type ResourceKind string

// Resource kinds supported by the client.
const (
	ResourceControls          ResourceKind = "controls"
	ResourceProcesses         ResourceKind = "processes"
	ResourceSubprocesses      ResourceKind = "subprocesses"
	ResourceEntities          ResourceKind = "entities"
	ResourceAuditableEntities ResourceKind = "auditable_entities"
	ResourceRegions           ResourceKind = "regions"
	ResourceProcessesData     ResourceKind = "processes_data"
	ResourceSubprocessesData  ResourceKind = "subprocesses_data"
	ResourceControlsData      ResourceKind = "controls_data"
)

type resourceDescriptor struct {
	endpointPath  string
	collectionKey string
	singularLabel string
}

// resourceDescriptors is the static dispatch table replacing name-based getter
// lookup: every kind carries its endpoint path, the JSON key wrapping the
// collection in responses, and a singular label for messages.
var resourceDescriptors = map[ResourceKind]resourceDescriptor{
	ResourceControls:          {endpointPath: "controls", collectionKey: "controls", singularLabel: "control"},
	ResourceProcesses:         {endpointPath: "processes", collectionKey: "processes", singularLabel: "process"},
	ResourceSubprocesses:      {endpointPath: "subprocesses", collectionKey: "subprocesses", singularLabel: "subprocess"},
	ResourceEntities:          {endpointPath: "entities", collectionKey: "entities", singularLabel: "entity"},
	ResourceAuditableEntities: {endpointPath: "auditable_entities", collectionKey: "auditable_entities", singularLabel: "auditable entity"},
	ResourceRegions:           {endpointPath: "regions", collectionKey: "regions", singularLabel: "region"},
	ResourceProcessesData:     {endpointPath: "processes_data", collectionKey: "processes_data", singularLabel: "processes_data link"},
	ResourceSubprocessesData:  {endpointPath: "subprocesses_data", collectionKey: "subprocesses_data", singularLabel: "subprocesses_data link"},
	ResourceControlsData:      {endpointPath: "controls_data", collectionKey: "controls_data", singularLabel: "controls_data instance"},
}

// ParseResourceKind converts a user-supplied type name into a ResourceKind.
func ParseResourceKind(candidate string) (ResourceKind, error) {
	normalized := ResourceKind(strings.ToLower(strings.TrimSpace(candidate)))
	if _, exists := resourceDescriptors[normalized]; !exists {
		return "", fmt.Errorf(unknownResourceKindTemplateConstant, candidate)
	}
	return normalized, nil
}

// Valid reports whether the kind appears in the resource table.
func (kind ResourceKind) Valid() bool {
	_, exists := resourceDescriptors[kind]
	return exists
}

// EndpointPath returns the collection endpoint relative to the API base URL.
func (kind ResourceKind) EndpointPath() string {
	return resourceDescriptors[kind].endpointPath
}

// CollectionKey returns the JSON key wrapping the collection in responses.
func (kind ResourceKind) CollectionKey() string {
	return resourceDescriptors[kind].collectionKey
}

// SingularLabel returns the human-readable singular name of the kind.
func (kind ResourceKind) SingularLabel() string {
	return resourceDescriptors[kind].singularLabel
}
