package models

// Dispatch modes.
const (
	ModeSimulator = "simulator"
	ModeDetector  = "detector"
)

// Dispatch result statuses.
const (
	DispatchCreated = "created"
	DispatchNoMatch = "no_match"
	DispatchError   = "error"
)

// DispatchResult is the response body returned for every dispatch request.
type DispatchResult struct {
	Mode           string   `json:"mode"`
	Status         string   `json:"status"`
	IncidentID     string   `json:"incident_id,omitempty"`
	Scenario       Scenario `json:"scenario,omitempty"`
	Timestamp      string   `json:"timestamp,omitempty"`
	Source         string   `json:"source,omitempty"`
	EventName      string   `json:"event_name,omitempty"`
	Error          string   `json:"error,omitempty"`
	ValidScenarios []string `json:"valid_scenarios,omitempty"`
}

// RemediationSummary reports the outcome of one remediation scheduler pass.
// Eligible is the pre-processing query size; Processed counts only
// transitions that fully succeeded.
type RemediationSummary struct {
	Processed int `json:"processed"`
	Eligible  int `json:"total_eligible"`
}
