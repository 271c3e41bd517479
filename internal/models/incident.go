package models

import "time"

// Signal is the free-form evidence mapping attached to an incident. Fields
// vary by scenario (event names, error codes, failure counts) and are kept
// for audit traceability, never reparsed.
type Signal map[string]interface{}

// Incident is the unit of record for any detected or synthesized MFA
// security event.
type Incident struct {
	IncidentID      string   `json:"incident_id"`
	Scenario        Scenario `json:"scenario"`
	FailureType     string   `json:"failure_type,omitempty"`
	Severity        string   `json:"severity"`
	Status          string   `json:"status"`
	DetectionSource string   `json:"detection_source"`

	User     string `json:"user"`
	SourceIP string `json:"source_ip"`

	// CreatedAt is the record's clock anchor (epoch seconds) for cooldown
	// and MTTR math. Timestamp is the same instant in ISO-8601 for humans.
	CreatedAt int64  `json:"created_at"`
	Timestamp string `json:"timestamp"`

	DetectionSignal   Signal `json:"detection_signal"`
	Description       string `json:"description"`
	RecommendedAction string `json:"recommended_action"`

	AutoRemediation bool   `json:"auto_remediation"`
	CooldownSeconds int    `json:"cooldown_seconds,omitempty"`
	RemediationType string `json:"remediation_type,omitempty"`

	ResolvedAt            string `json:"resolved_at,omitempty"`
	ResolutionTimeSeconds int64  `json:"resolution_time_seconds,omitempty"`
	ResolutionNotes       string `json:"resolution_notes,omitempty"`

	Environment string                 `json:"environment"`
	TTL         int64                  `json:"ttl"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Resolution carries the fields written when the remediation scheduler
// transitions an incident to RESOLVED.
type Resolution struct {
	ResolvedAt            string
	ResolutionTimeSeconds int64
	ResolutionNotes       string
	RemediationType       string
}

// Resolve applies a resolution to the incident in place.
func (i *Incident) Resolve(r *Resolution) {
	i.Status = StatusResolved
	i.ResolvedAt = r.ResolvedAt
	i.ResolutionTimeSeconds = r.ResolutionTimeSeconds
	i.ResolutionNotes = r.ResolutionNotes
	i.RemediationType = r.RemediationType
}

// Expired reports whether the incident's retention window has elapsed.
func (i *Incident) Expired(now time.Time) bool {
	return i.TTL > 0 && now.Unix() >= i.TTL
}

// CooldownElapsed reports whether the incident's cooldown window has passed.
// Incidents without an explicit cooldown use the default.
func (i *Incident) CooldownElapsed(now time.Time) bool {
	cooldown := i.CooldownSeconds
	if cooldown == 0 {
		cooldown = DefaultCooldownSeconds
	}
	return now.Unix() >= i.CreatedAt+int64(cooldown)
}
