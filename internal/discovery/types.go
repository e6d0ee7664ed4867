package discovery

import "github.com/auditops/abctl/internal/auditboard"

// RegionSummary is the projected region header of an analysis report.
type RegionSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EntityNode is one entity scoped to the analyzed region.
type EntityNode struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EntityTypeID int64  `json:"entity_type_id"`
	RegionID     int64  `json:"region_id"`
}

// ProcessNode is one process reachable from the region's entities.
type ProcessNode struct {
	ID       int64  `json:"id"`
	UID      string `json:"uid"`
	Name     string `json:"name"`
	RegionID int64  `json:"region_id"`
}

// SubprocessNode is one subprocess reachable through the junction links.
type SubprocessNode struct {
	ID        int64  `json:"id"`
	UID       string `json:"uid"`
	Name      string `json:"name"`
	ProcessID int64  `json:"process_id"`
}

// ControlNode is one control attached to a reachable subprocess.
type ControlNode struct {
	ID           int64  `json:"id"`
	UID          string `json:"uid"`
	Name         string `json:"name"`
	SubprocessID int64  `json:"subprocess_id"`
}

// ProcessLink is one processes_data junction record (entity to process).
type ProcessLink struct {
	ID        int64 `json:"id"`
	EntityID  int64 `json:"entity_id"`
	ProcessID int64 `json:"process_id"`
}

// SubprocessLink is one subprocesses_data junction record.
type SubprocessLink struct {
	ID               int64 `json:"id"`
	ProcessesDatumID int64 `json:"processes_datum_id"`
	SubprocessID     int64 `json:"subprocess_id"`
}

// ControlInstance is one controls_data record (control instance data).
type ControlInstance struct {
	ID                  int64 `json:"id"`
	ControlID           int64 `json:"control_id"`
	SubprocessesDatumID int64 `json:"subprocesses_datum_id"`
}

// Summary aggregates per-level counts for one region analysis.
type Summary struct {
	Region                string `json:"region"`
	EntitiesCount         int    `json:"entities_count"`
	ProcessesCount        int    `json:"processes_count"`
	SubprocessesCount     int    `json:"subprocesses_count"`
	ControlsCount         int    `json:"controls_count"`
	ProcessesDataCount    int    `json:"processes_data_count"`
	SubprocessesDataCount int    `json:"subprocesses_data_count"`
	ControlsDataCount     int    `json:"controls_data_count"`
	TotalItems            int    `json:"total_items"`
}

// RegionReport is the persisted outcome of one region analysis.
type RegionReport struct {
	RunID            string            `json:"run_id"`
	Timestamp        string            `json:"timestamp"`
	RegionID         int64             `json:"region_id"`
	Region           *RegionSummary    `json:"region"`
	Entities         []EntityNode      `json:"entities"`
	ProcessesData    []ProcessLink     `json:"processes_data"`
	Processes        []ProcessNode     `json:"processes"`
	SubprocessesData []SubprocessLink  `json:"subprocesses_data"`
	Subprocesses     []SubprocessNode  `json:"subprocesses"`
	Controls         []ControlNode     `json:"controls"`
	ControlsData     []ControlInstance `json:"controls_data"`
	Summary          Summary           `json:"summary"`
	Error            string            `json:"error,omitempty"`
}

// ControlMatch is one control search hit enriched with hierarchy context.
type ControlMatch struct {
	Control    auditboard.Record `json:"control"`
	Subprocess auditboard.Record `json:"subprocess"`
	Process    auditboard.Record `json:"process"`
	Region     auditboard.Record `json:"region"`
}

// SearchReport is the persisted outcome of one pattern search.
type SearchReport struct {
	RunID          string              `json:"run_id"`
	Timestamp      string              `json:"timestamp"`
	SearchedType   string              `json:"searched_type"`
	Pattern        string              `json:"pattern"`
	CaseSensitive  bool                `json:"case_sensitive"`
	TotalSearched  int                 `json:"total_searched"`
	MatchCount     int                 `json:"match_count"`
	ControlMatches []ControlMatch      `json:"control_matches,omitempty"`
	Matches        []auditboard.Record `json:"matches,omitempty"`
}
