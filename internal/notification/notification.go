// Package notification delivers incident alerts and resolution notices.
// Delivery is best effort: the dispatcher and scheduler never fail a request
// because a channel did.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// Channel defines the interface for notification delivery.
type Channel interface {
	Publish(ctx context.Context, subject string, message interface{}) error
	Type() string
}

// AlertMessage is the payload published when an incident is created.
type AlertMessage struct {
	IncidentID        string          `json:"incident_id"`
	Scenario          models.Scenario `json:"scenario"`
	Severity          string          `json:"severity"`
	User              string          `json:"user"`
	Description       string          `json:"description"`
	Timestamp         string          `json:"timestamp"`
	RecommendedAction string          `json:"recommended_action"`
}

// ResolutionMessage is the payload published when the scheduler resolves an
// incident.
type ResolutionMessage struct {
	Event                   string          `json:"event"`
	IncidentID              string          `json:"incident_id"`
	Scenario                models.Scenario `json:"scenario"`
	User                    string          `json:"user"`
	OriginalSeverity        string          `json:"original_severity"`
	ResolutionTimeSeconds   int64           `json:"resolution_time_seconds"`
	ResolutionTimeFormatted string          `json:"resolution_time_formatted"`
	RemediationType         string          `json:"remediation_type"`
	Notes                   string          `json:"notes"`
	Timestamp               string          `json:"timestamp"`
}

// NewAlertMessage builds the alert payload for a created incident.
func NewAlertMessage(inc *models.Incident) *AlertMessage {
	return &AlertMessage{
		IncidentID:        inc.IncidentID,
		Scenario:          inc.Scenario,
		Severity:          inc.Severity,
		User:              inc.User,
		Description:       inc.Description,
		Timestamp:         inc.Timestamp,
		RecommendedAction: inc.RecommendedAction,
	}
}

// NewResolutionMessage builds the resolution payload for a resolved incident.
func NewResolutionMessage(inc *models.Incident, resolutionSeconds int64) *ResolutionMessage {
	return &ResolutionMessage{
		Event:                   "INCIDENT_RESOLVED",
		IncidentID:              inc.IncidentID,
		Scenario:                inc.Scenario,
		User:                    inc.User,
		OriginalSeverity:        inc.Severity,
		ResolutionTimeSeconds:   resolutionSeconds,
		ResolutionTimeFormatted: FormatDuration(resolutionSeconds),
		RemediationType:         models.RemediationAssisted,
		Notes:                   "Cooldown period completed. Rate limiting cleared.",
		Timestamp:               time.Now().UTC().Format(time.RFC3339),
	}
}

// FormatDuration renders seconds as a short human-readable duration.
func FormatDuration(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}

// LogChannel writes notifications to the structured log. Used in dev mode
// and as the fallback when no broker is configured.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a log-based notification channel.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Type() string {
	return "log"
}

func (l *LogChannel) Publish(ctx context.Context, subject string, message interface{}) error {
	l.logger.InfoContext(ctx, "notification published",
		slog.String("subject", subject),
		slog.Any("message", message),
	)
	return nil
}

// MultiChannel fans a notification out to multiple channels. Publishing
// succeeds if at least one channel accepted the message.
type MultiChannel struct {
	channels []Channel
}

// NewMultiChannel creates a fan-out channel.
func NewMultiChannel(channels ...Channel) *MultiChannel {
	return &MultiChannel{channels: channels}
}

func (m *MultiChannel) Type() string {
	return "multi"
}

func (m *MultiChannel) Publish(ctx context.Context, subject string, message interface{}) error {
	var lastErr error
	successCount := 0

	for _, ch := range m.channels {
		if err := ch.Publish(ctx, subject, message); err != nil {
			lastErr = fmt.Errorf("%s channel failed: %w", ch.Type(), err)
		} else {
			successCount++
		}
	}

	if successCount == 0 && len(m.channels) > 0 {
		return fmt.Errorf("all notification channels failed: %w", lastErr)
	}
	return nil
}
