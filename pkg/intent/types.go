package intent

// Known intent names. Unmatched is a distinguished outcome, not an intent:
// it means no pattern in any table matched and exists solely to drive the
// orchestrator's escalation path.
const (
	Unmatched = "unmatched"

	EventOverview      = "event_overview"
	EventSchedule      = "event_schedule"
	ProjectSearch      = "project_search"
	ProjectDetails     = "project_details"
	PersonSearch       = "person_search"
	SessionLookup      = "session_lookup"
	EquipmentLogistics = "equipment_logistics"
	ArtifactLookup     = "artifact_lookup"
)

// UnmatchedConfidence is reported when zero patterns match across all
// intents. It is deliberately below the single-match floor of 0.5 so it can
// never be confused with a weak concrete match.
const UnmatchedConfidence = 0.3

// Classification captures the full result of analyzing a query.
// Immutable once produced; never persisted.
type Classification struct {
	Intent     string             `json:"intent"`
	Confidence float64            `json:"confidence"`
	Entities   map[string]*string `json:"entities"`
	Filters    map[string]any     `json:"filters"`
	Plan       []PlanStep         `json:"plan"`
}

// IsUnmatched reports whether no pattern matched.
func (c *Classification) IsUnmatched() bool {
	return c.Intent == Unmatched
}

// PlanOp names an abstract data-access operation.
type PlanOp string

const (
	OpGet    PlanOp = "get"
	OpList   PlanOp = "list"
	OpSearch PlanOp = "search"
	OpFilter PlanOp = "filter"
)

// PlanStep describes one intended data access without performing it.
// The execution layer is an external collaborator; steps only name the
// operation, the endpoint template, and the fields expected back.
type PlanStep struct {
	Operation    PlanOp             `json:"operation"`
	Endpoint     string             `json:"endpoint"`
	Params       map[string]*string `json:"params,omitempty"`
	ReturnFields []string           `json:"return_fields,omitempty"`
}
