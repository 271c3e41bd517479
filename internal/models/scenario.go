package models

import (
	"strings"

	"github.com/google/uuid"
)

// Scenario identifies one of the known MFA incident patterns.
type Scenario string

const (
	ScenarioMFAAuthFailure Scenario = "mfa_auth_failure"
	ScenarioRateLimiting   Scenario = "rate_limiting"
	ScenarioPolicyMismatch Scenario = "policy_mismatch"
)

// Severity levels assigned to incidents.
const (
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Incident lifecycle states. Transitions are OPEN -> RESOLVED only.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
)

// Detection provenance values.
const (
	SourceSimulator  = "simulator"
	SourceCloudTrail = "cloudtrail"
)

// Failure sub-types for mfa_auth_failure incidents produced by the detector.
const (
	FailureAuthenticationFailed = "authentication_failed"
	FailureMFANotEnforced       = "mfa_not_enforced"
)

// Remediation type markers.
const (
	RemediationAssisted     = "assisted"
	RemediationAssistedAuto = "assisted_auto"
)

// DefaultCooldownSeconds is the fixed cooldown before assisted remediation.
const DefaultCooldownSeconds = 300

// IncidentTTLSeconds is the retention window applied at creation (7 days).
const IncidentTTLSeconds = 7 * 24 * 60 * 60

// Profile holds the per-scenario associations: id prefix, base severity,
// remediation eligibility and the operator guidance attached to every
// incident of that scenario.
type Profile struct {
	Prefix            string
	Severity          string
	RecommendedAction string
	AutoRemediation   bool
	CooldownSeconds   int
}

var profiles = map[Scenario]Profile{
	ScenarioMFAAuthFailure: {
		Prefix:            "MFA-AUTH",
		Severity:          SeverityMedium,
		RecommendedAction: "User must re-authenticate with valid MFA token",
	},
	ScenarioRateLimiting: {
		Prefix:            "RATE-LIMIT",
		Severity:          SeverityHigh,
		RecommendedAction: "Wait for cooldown period, then attempt re-authentication",
		AutoRemediation:   true,
		CooldownSeconds:   DefaultCooldownSeconds,
	},
	ScenarioPolicyMismatch: {
		Prefix:            "POLICY",
		Severity:          SeverityMedium,
		RecommendedAction: "Admin must review IAM policy conditions for aws:MultiFactorAuthPresent",
	},
}

// Valid reports whether s is one of the three known scenarios.
func (s Scenario) Valid() bool {
	_, ok := profiles[s]
	return ok
}

// Profile returns the scenario's configuration table entry.
// Calling it on an unknown scenario returns the zero Profile.
func (s Scenario) Profile() Profile {
	return profiles[s]
}

// ValidScenarios lists the accepted scenario names for error responses.
func ValidScenarios() []string {
	return []string{
		string(ScenarioMFAAuthFailure),
		string(ScenarioRateLimiting),
		string(ScenarioPolicyMismatch),
	}
}

// NewIncidentID generates a fresh incident ID of the form
// <PREFIX>-<8 uppercase hex chars>. IDs are never deterministic
// functions of the input event.
func NewIncidentID(s Scenario) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return s.Profile().Prefix + "-" + strings.ToUpper(hex[:8])
}
