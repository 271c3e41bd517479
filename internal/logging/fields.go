package logging

import "log/slog"

// Common field names for consistent logging across the service.
const (
	FieldService    = "service"
	FieldIncidentID = "incident_id"
	FieldScenario   = "scenario"
	FieldSeverity   = "severity"
	FieldEventName  = "event_name"
	FieldUser       = "user"
	FieldIP         = "ip"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IncidentID returns a slog attribute for an incident ID.
func IncidentID(id string) slog.Attr {
	return slog.String(FieldIncidentID, id)
}

// Scenario returns a slog attribute for an incident scenario.
func Scenario(s string) slog.Attr {
	return slog.String(FieldScenario, s)
}

// Severity returns a slog attribute for an incident severity.
func Severity(s string) slog.Attr {
	return slog.String(FieldSeverity, s)
}

// EventName returns a slog attribute for an audit event name.
func EventName(name string) slog.Attr {
	return slog.String(FieldEventName, name)
}

// User returns a slog attribute for the attributed user.
func User(name string) slog.Attr {
	return slog.String(FieldUser, name)
}

// IP returns a slog attribute for the source IP.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
