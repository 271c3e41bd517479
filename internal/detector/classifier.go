// Package detector classifies live audit-event envelopes into MFA security
// incidents. At most one incident is produced per envelope; expected/benign
// activity yields a NoMatch instead.
package detector

import (
	"fmt"
	"time"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// NoMatch reports that an envelope represents expected behavior. It carries
// the raw event name for diagnostic logging.
type NoMatch struct {
	EventName string
}

// Classifier inspects audit-event envelopes for the known incident patterns.
type Classifier struct {
	environment string
	now         func() time.Time
}

// New creates a Classifier tagging incidents with the given deployment
// environment label.
func New(environment string) *Classifier {
	return &Classifier{
		environment: environment,
		now:         time.Now,
	}
}

// fields are the values extracted from the detail payload before pattern
// matching. Missing optional fields degrade to the documented defaults.
type fields struct {
	eventName        string
	errorCode        string
	errorMessage     string
	user             string
	sourceIP         string
	mfaUsed          string
	mfaAuthenticated string
}

// Classify matches the envelope against the known patterns in priority
// order. It returns exactly one of an incident or a NoMatch.
func (c *Classifier) Classify(req *models.DispatchRequest) (*models.Incident, *NoMatch, error) {
	detail, err := req.ParseDetail()
	if err != nil {
		return nil, nil, fmt.Errorf("parse event detail: %w", err)
	}

	f := extract(detail)

	// ConsoleLogin with any error message is a failed authentication,
	// regardless of the MFA-used flag.
	if f.eventName == "ConsoleLogin" && f.errorMessage != "" {
		return c.mfaAuthFailure(f, detail, models.FailureAuthenticationFailed, models.SeverityMedium), nil, nil
	}

	// A successful ConsoleLogin that bypassed MFA is the more severe
	// finding: a policy gap, not a user error.
	if f.eventName == "ConsoleLogin" && f.mfaUsed == "No" {
		return c.mfaAuthFailure(f, detail, models.FailureMFANotEnforced, models.SeverityHigh), nil, nil
	}

	// Access denied despite an MFA-authenticated session means the policy
	// condition, not the user, is wrong.
	if (f.errorCode == "AccessDenied" || f.errorCode == "UnauthorizedAccess") && f.mfaAuthenticated == "true" {
		return c.policyMismatch(f, detail), nil, nil
	}

	return nil, &NoMatch{EventName: f.eventName}, nil
}

func extract(detail *models.CloudTrailDetail) fields {
	f := fields{
		eventName:    detail.EventName,
		errorCode:    detail.ErrorCode,
		errorMessage: detail.ErrorMessage,
		sourceIP:     detail.SourceIPAddress,
	}
	if f.sourceIP == "" {
		f.sourceIP = "unknown"
	}

	// Prefer the named identity; fall back to the principal ID so user is
	// never empty even for federated or role identities.
	f.user = detail.UserIdentity.UserName
	if f.user == "" {
		f.user = detail.UserIdentity.PrincipalID
	}
	if f.user == "" {
		f.user = "unknown"
	}

	// CloudTrail omits MFAUsed on events where MFA was satisfied, so "Yes"
	// is the safe default.
	f.mfaUsed = "Yes"
	if v, ok := detail.AdditionalEventData["MFAUsed"].(string); ok && v != "" {
		f.mfaUsed = v
	}

	if detail.UserIdentity.SessionContext != nil {
		f.mfaAuthenticated = detail.UserIdentity.SessionContext.Attributes.MFAAuthenticated
	}

	return f
}

func (c *Classifier) mfaAuthFailure(f fields, detail *models.CloudTrailDetail, failureType, severity string) *models.Incident {
	inc := c.base(models.ScenarioMFAAuthFailure, f)
	inc.FailureType = failureType
	inc.Severity = severity
	inc.DetectionSignal = models.Signal{
		"event_name":    f.eventName,
		"event_source":  detail.EventSource,
		"error_message": f.errorMessage,
		"mfa_used":      f.mfaUsed,
	}
	if failureType == models.FailureMFANotEnforced {
		inc.Description = fmt.Sprintf("User %s logged in successfully without MFA from %s", f.user, f.sourceIP)
	} else {
		inc.Description = fmt.Sprintf("Authentication failed for user %s from %s", f.user, f.sourceIP)
	}
	return inc
}

func (c *Classifier) policyMismatch(f fields, detail *models.CloudTrailDetail) *models.Incident {
	inc := c.base(models.ScenarioPolicyMismatch, f)
	inc.DetectionSignal = models.Signal{
		"event_name":         f.eventName,
		"event_source":       detail.EventSource,
		"error_code":         f.errorCode,
		"error_message":      f.errorMessage,
		"denied_action":      f.eventName,
		"request_parameters": detail.RequestParameters,
		"mfa_authenticated":  f.mfaAuthenticated,
	}
	inc.Description = fmt.Sprintf("Policy mismatch: User %s has MFA session but %s denied", f.user, f.eventName)
	return inc
}

// base fills the fields common to all detected incidents. Detected
// incidents are never auto-remediated; cooldown remediation is reserved for
// the simulated rate_limiting path.
func (c *Classifier) base(scenario models.Scenario, f fields) *models.Incident {
	profile := scenario.Profile()
	now := c.now().UTC()

	return &models.Incident{
		IncidentID:        models.NewIncidentID(scenario),
		Scenario:          scenario,
		Severity:          profile.Severity,
		Status:            models.StatusOpen,
		DetectionSource:   models.SourceCloudTrail,
		User:              f.user,
		SourceIP:          f.sourceIP,
		CreatedAt:         now.Unix(),
		Timestamp:         now.Format(time.RFC3339),
		RecommendedAction: profile.RecommendedAction,
		AutoRemediation:   false,
		Environment:       c.environment,
		TTL:               now.Unix() + models.IncidentTTLSeconds,
	}
}
