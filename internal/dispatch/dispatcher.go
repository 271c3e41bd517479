// Package dispatch orchestrates incident creation: route a request to the
// detector or the simulator, persist the resulting incident, then notify and
// record metrics. The store write is the only fatal side effect.
package dispatch

import (
	"context"
	"fmt"

	"github.com/telhawk-systems/mfa-sentinel/internal/detector"
	"github.com/telhawk-systems/mfa-sentinel/internal/logging"
	"github.com/telhawk-systems/mfa-sentinel/internal/metrics"
	"github.com/telhawk-systems/mfa-sentinel/internal/models"
	"github.com/telhawk-systems/mfa-sentinel/internal/notification"
	"github.com/telhawk-systems/mfa-sentinel/internal/simulator"
	"github.com/telhawk-systems/mfa-sentinel/internal/store"
)

// Defaults applied to simulator requests with absent fields. The source IP
// is TEST-NET-1 per RFC 5737.
const (
	DefaultUser     = "test-user"
	DefaultSourceIP = "192.0.2.1"
)

// Dispatcher routes requests and drives the side-effect chain.
type Dispatcher struct {
	classifier  *detector.Classifier
	synthesizer *simulator.Synthesizer
	store       store.Store
	channel     notification.Channel
	sink        metrics.Sink
	environment string
	logger      *logging.Logger
}

// New creates a Dispatcher with explicit collaborators.
func New(st store.Store, channel notification.Channel, sink metrics.Sink, environment string, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		classifier:  detector.New(environment),
		synthesizer: simulator.New(environment),
		store:       st,
		channel:     channel,
		sink:        sink,
		environment: environment,
		logger:      logger,
	}
}

// Handle processes one request end to end and returns the result summary.
// A non-nil error means incident persistence failed; validation problems and
// no-match outcomes are reported in the result, not as errors.
func (d *Dispatcher) Handle(ctx context.Context, req *models.DispatchRequest) (*models.DispatchResult, error) {
	if req.IsLiveEvent() {
		return d.handleDetector(ctx, req)
	}
	return d.handleSimulator(ctx, req)
}

func (d *Dispatcher) handleDetector(ctx context.Context, req *models.DispatchRequest) (*models.DispatchResult, error) {
	inc, noMatch, err := d.classifier.Classify(req)
	if err != nil {
		return &models.DispatchResult{
			Mode:   models.ModeDetector,
			Status: models.DispatchError,
			Error:  err.Error(),
		}, nil
	}

	if noMatch != nil {
		d.logger.DebugContext(ctx, "event did not match any incident pattern",
			logging.EventName(noMatch.EventName))
		return &models.DispatchResult{
			Mode:      models.ModeDetector,
			Status:    models.DispatchNoMatch,
			EventName: noMatch.EventName,
		}, nil
	}

	if err := d.emit(ctx, inc); err != nil {
		return nil, err
	}

	return &models.DispatchResult{
		Mode:       models.ModeDetector,
		Status:     models.DispatchCreated,
		IncidentID: inc.IncidentID,
		Scenario:   inc.Scenario,
		Source:     inc.DetectionSource,
	}, nil
}

func (d *Dispatcher) handleSimulator(ctx context.Context, req *models.DispatchRequest) (*models.DispatchResult, error) {
	scenario := models.Scenario(req.Scenario)
	if req.Scenario == "" {
		scenario = models.ScenarioMFAAuthFailure
	}
	if !scenario.Valid() {
		return &models.DispatchResult{
			Mode:           models.ModeSimulator,
			Status:         models.DispatchError,
			Error:          fmt.Sprintf("Unknown scenario: %s", req.Scenario),
			ValidScenarios: models.ValidScenarios(),
		}, nil
	}

	user := req.User
	if user == "" {
		user = DefaultUser
	}
	sourceIP := req.SourceIP
	if sourceIP == "" {
		sourceIP = DefaultSourceIP
	}
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	inc := d.synthesizer.Synthesize(scenario, user, sourceIP, metadata)
	if err := d.emit(ctx, inc); err != nil {
		return nil, err
	}

	return &models.DispatchResult{
		Mode:       models.ModeSimulator,
		Status:     models.DispatchCreated,
		IncidentID: inc.IncidentID,
		Scenario:   inc.Scenario,
		Timestamp:  inc.Timestamp,
	}, nil
}

// emit runs the fixed side-effect chain: store, then notify, then metric.
// Notification and metric failures are logged and swallowed; they must never
// hide a successfully recorded incident. A store failure aborts the chain.
func (d *Dispatcher) emit(ctx context.Context, inc *models.Incident) error {
	if err := d.store.Put(ctx, inc); err != nil {
		return fmt.Errorf("store incident: %w", err)
	}
	d.logger.InfoContext(ctx, "incident created",
		logging.IncidentID(inc.IncidentID),
		logging.Scenario(string(inc.Scenario)),
		logging.Severity(inc.Severity),
		logging.User(inc.User),
	)

	if err := d.channel.Publish(ctx, notification.SubjectCreated, notification.NewAlertMessage(inc)); err != nil {
		d.logger.WarnContext(ctx, "failed to publish alert",
			logging.IncidentID(inc.IncidentID), logging.Error(err))
	}

	if err := d.sink.Record(metrics.MetricIncidentCount, 1, "Count", map[string]string{
		"scenario":    string(inc.Scenario),
		"severity":    inc.Severity,
		"environment": d.environment,
	}); err != nil {
		d.logger.WarnContext(ctx, "failed to record incident metric",
			logging.IncidentID(inc.IncidentID), logging.Error(err))
	}

	return nil
}
