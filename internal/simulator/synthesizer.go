// Package simulator builds well-formed synthetic incidents for each of the
// known scenario kinds. It performs no I/O; persistence and alerting are the
// dispatcher's responsibility.
package simulator

import (
	"fmt"
	"strings"
	"time"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// Synthesizer constructs incidents from caller-supplied seed parameters.
type Synthesizer struct {
	environment string
	now         func() time.Time
}

// New creates a Synthesizer tagging incidents with the given deployment
// environment label.
func New(environment string) *Synthesizer {
	return &Synthesizer{
		environment: environment,
		now:         time.Now,
	}
}

// Synthesize builds an incident for the given scenario. The scenario must be
// one of the known values; the dispatcher rejects unknown scenarios before
// calling here. Metadata supplies optional per-scenario overrides.
func (s *Synthesizer) Synthesize(scenario models.Scenario, user, sourceIP string, metadata map[string]interface{}) *models.Incident {
	switch scenario {
	case models.ScenarioRateLimiting:
		return s.rateLimiting(user, sourceIP, metadata)
	case models.ScenarioPolicyMismatch:
		return s.policyMismatch(user, sourceIP, metadata)
	default:
		return s.mfaAuthFailure(user, sourceIP, metadata)
	}
}

// mfaAuthFailure simulates an MFA authentication failure consistent with
// token expiration: a ConsoleLogin event with MFAUsed "No" and a failed
// authentication error.
func (s *Synthesizer) mfaAuthFailure(user, sourceIP string, metadata map[string]interface{}) *models.Incident {
	inc := s.base(models.ScenarioMFAAuthFailure, user, sourceIP, metadata)
	inc.DetectionSignal = models.Signal{
		"event_name":    "ConsoleLogin",
		"event_source":  "signin.amazonaws.com",
		"error_message": "Failed authentication",
		"additional_event_data": map[string]interface{}{
			"MFAUsed":       "No",
			"LoginTo":       "https://console.aws.amazon.com/console/home",
			"MobileVersion": "No",
		},
	}
	inc.Description = fmt.Sprintf("MFA authentication failure for user %s consistent with token expiration or timing issue", user)
	return inc
}

// rateLimiting simulates a lockout: repeated ConsoleLogin failures from the
// same user and IP. The only scenario eligible for assisted remediation.
func (s *Synthesizer) rateLimiting(user, sourceIP string, metadata map[string]interface{}) *models.Incident {
	failureCount := intFromMetadata(metadata, "failure_count", 5)
	windowSeconds := intFromMetadata(metadata, "window_seconds", 60)

	inc := s.base(models.ScenarioRateLimiting, user, sourceIP, metadata)
	inc.DetectionSignal = models.Signal{
		"event_name":     "ConsoleLogin",
		"event_source":   "signin.amazonaws.com",
		"failure_count":  failureCount,
		"window_seconds": windowSeconds,
		"pattern":        "Multiple failed attempts from same user and IP",
	}
	inc.Description = fmt.Sprintf("Rate limiting triggered: %d failed MFA attempts in %ds for user %s", failureCount, windowSeconds, user)
	inc.RemediationType = models.RemediationAssisted
	return inc
}

// policyMismatch simulates an MFA-present-but-denied event: the user holds a
// valid MFA session yet an IAM condition denies the action.
func (s *Synthesizer) policyMismatch(user, sourceIP string, metadata map[string]interface{}) *models.Incident {
	deniedAction := stringFromMetadata(metadata, "denied_action", "s3:GetObject")
	resource := stringFromMetadata(metadata, "resource", "arn:aws:s3:::sensitive-bucket/*")

	eventName := deniedAction
	eventSource := "aws.amazonaws.com"
	if service, action, ok := strings.Cut(deniedAction, ":"); ok {
		eventName = action
		eventSource = service + ".amazonaws.com"
	}

	inc := s.base(models.ScenarioPolicyMismatch, user, sourceIP, metadata)
	inc.DetectionSignal = models.Signal{
		"event_name":          eventName,
		"event_source":        eventSource,
		"error_code":          "AccessDenied",
		"error_message":       "User has MFA but policy condition denies action",
		"condition_evaluated": "aws:MultiFactorAuthPresent",
		"condition_result":    "false (expected true)",
		"attempted_action":    deniedAction,
		"resource":            resource,
	}
	inc.Description = fmt.Sprintf("Policy mismatch: User %s has MFA session but %s denied due to condition mismatch", user, deniedAction)
	return inc
}

// base fills the fields common to all synthesized incidents from the
// scenario profile table.
func (s *Synthesizer) base(scenario models.Scenario, user, sourceIP string, metadata map[string]interface{}) *models.Incident {
	profile := scenario.Profile()
	now := s.now().UTC()

	return &models.Incident{
		IncidentID:        models.NewIncidentID(scenario),
		Scenario:          scenario,
		Severity:          profile.Severity,
		Status:            models.StatusOpen,
		DetectionSource:   models.SourceSimulator,
		User:              user,
		SourceIP:          sourceIP,
		CreatedAt:         now.Unix(),
		Timestamp:         now.Format(time.RFC3339),
		RecommendedAction: profile.RecommendedAction,
		AutoRemediation:   profile.AutoRemediation,
		CooldownSeconds:   profile.CooldownSeconds,
		Environment:       s.environment,
		TTL:               now.Unix() + models.IncidentTTLSeconds,
		Metadata:          metadata,
	}
}

// intFromMetadata reads a numeric override, tolerating the numeric types
// JSON decoding and callers produce.
func intFromMetadata(metadata map[string]interface{}, key string, def int) int {
	if metadata == nil {
		return def
	}
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func stringFromMetadata(metadata map[string]interface{}, key string, def string) string {
	if metadata == nil {
		return def
	}
	if v, ok := metadata[key].(string); ok && v != "" {
		return v
	}
	return def
}
