package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
	"github.com/telhawk-systems/mfa-sentinel/internal/notification"
	"github.com/telhawk-systems/mfa-sentinel/internal/store"
)

type mockStore struct {
	mu        sync.Mutex
	putErr    error
	incidents []*models.Incident
	calls     []string
	order     *[]string
}

func (m *mockStore) Put(ctx context.Context, inc *models.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order != nil {
		*m.order = append(*m.order, "store")
	}
	if m.putErr != nil {
		return m.putErr
	}
	m.incidents = append(m.incidents, inc)
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) QueryOpen(ctx context.Context, scenario models.Scenario) ([]*models.Incident, error) {
	return nil, nil
}

func (m *mockStore) Resolve(ctx context.Context, id string, r *models.Resolution) error {
	return nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                   { return nil }

type mockChannel struct {
	mu       sync.Mutex
	err      error
	subjects []string
	messages []interface{}
	order    *[]string
}

func (m *mockChannel) Publish(ctx context.Context, subject string, message interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order != nil {
		*m.order = append(*m.order, "notify")
	}
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subject)
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockChannel) Type() string { return "mock" }

type mockSink struct {
	mu      sync.Mutex
	err     error
	records []string
	order   *[]string
}

func (m *mockSink) Record(name string, value float64, unit string, dims map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order != nil {
		*m.order = append(*m.order, "metric")
	}
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, name)
	return nil
}

func newTestDispatcher(st *mockStore, ch *mockChannel, sink *mockSink) *Dispatcher {
	return New(st, ch, sink, "test", nil)
}

func TestHandleSimulatorCreatesIncident(t *testing.T) {
	st := &mockStore{}
	ch := &mockChannel{}
	sink := &mockSink{}
	d := newTestDispatcher(st, ch, sink)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{
		Scenario: "rate_limiting",
		User:     "alice",
		SourceIP: "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeSimulator, result.Mode)
	assert.Equal(t, models.DispatchCreated, result.Status)
	assert.Equal(t, models.ScenarioRateLimiting, result.Scenario)
	assert.NotEmpty(t, result.IncidentID)
	assert.NotEmpty(t, result.Timestamp)

	require.Len(t, st.incidents, 1)
	assert.Equal(t, "alice", st.incidents[0].User)
	require.Len(t, ch.subjects, 1)
	assert.Equal(t, notification.SubjectCreated, ch.subjects[0])
	require.Len(t, sink.records, 1)
}

func TestHandleSimulatorAppliesDefaults(t *testing.T) {
	st := &mockStore{}
	d := newTestDispatcher(st, &mockChannel{}, &mockSink{})

	result, err := d.Handle(context.Background(), &models.DispatchRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.DispatchCreated, result.Status)
	assert.Equal(t, models.ScenarioMFAAuthFailure, result.Scenario)

	require.Len(t, st.incidents, 1)
	assert.Equal(t, DefaultUser, st.incidents[0].User)
	assert.Equal(t, DefaultSourceIP, st.incidents[0].SourceIP)
}

func TestHandleSimulatorRejectsUnknownScenario(t *testing.T) {
	st := &mockStore{}
	ch := &mockChannel{}
	sink := &mockSink{}
	d := newTestDispatcher(st, ch, sink)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{
		Scenario: "brute_force",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DispatchError, result.Status)
	assert.Contains(t, result.Error, "brute_force")
	assert.Equal(t, models.ValidScenarios(), result.ValidScenarios)

	// Validation failures must not reach any side effect.
	assert.Empty(t, st.incidents)
	assert.Empty(t, ch.subjects)
	assert.Empty(t, sink.records)
}

func TestHandleSideEffectOrder(t *testing.T) {
	var order []string
	st := &mockStore{order: &order}
	ch := &mockChannel{order: &order}
	sink := &mockSink{order: &order}
	d := newTestDispatcher(st, ch, sink)

	_, err := d.Handle(context.Background(), &models.DispatchRequest{Scenario: "mfa_auth_failure"})
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "notify", "metric"}, order)
}

func TestHandleStoreFailureAborts(t *testing.T) {
	var order []string
	st := &mockStore{order: &order, putErr: errors.New("connection refused")}
	ch := &mockChannel{order: &order}
	sink := &mockSink{order: &order}
	d := newTestDispatcher(st, ch, sink)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{Scenario: "mfa_auth_failure"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "connection refused")

	// Nothing downstream of the store may run.
	assert.Equal(t, []string{"store"}, order)
}

func TestHandleNotificationFailureIsSwallowed(t *testing.T) {
	st := &mockStore{}
	ch := &mockChannel{err: errors.New("broker down")}
	sink := &mockSink{}
	d := newTestDispatcher(st, ch, sink)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{Scenario: "mfa_auth_failure"})
	require.NoError(t, err)
	assert.Equal(t, models.DispatchCreated, result.Status)

	// The incident is stored and the metric still recorded.
	assert.Len(t, st.incidents, 1)
	assert.Len(t, sink.records, 1)
}

func TestHandleMetricFailureIsSwallowed(t *testing.T) {
	st := &mockStore{}
	sink := &mockSink{err: errors.New("sink unavailable")}
	d := newTestDispatcher(st, &mockChannel{}, sink)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{Scenario: "mfa_auth_failure"})
	require.NoError(t, err)
	assert.Equal(t, models.DispatchCreated, result.Status)
	assert.Len(t, st.incidents, 1)
}

func TestHandleRoutesLiveEventToDetector(t *testing.T) {
	st := &mockStore{}
	d := newTestDispatcher(st, &mockChannel{}, &mockSink{})

	detail, err := json.Marshal(map[string]interface{}{
		"eventName":    "ConsoleLogin",
		"errorMessage": "Failed authentication",
		"userIdentity": map[string]interface{}{"userName": "alice"},
	})
	require.NoError(t, err)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{
		DetailType: "AWS Console Sign In via CloudTrail",
		Detail:     detail,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeDetector, result.Mode)
	assert.Equal(t, models.DispatchCreated, result.Status)
	assert.Equal(t, models.SourceCloudTrail, result.Source)
	require.Len(t, st.incidents, 1)
	assert.Equal(t, models.SourceCloudTrail, st.incidents[0].DetectionSource)
}

func TestHandleLiveEventNoMatch(t *testing.T) {
	st := &mockStore{}
	d := newTestDispatcher(st, &mockChannel{}, &mockSink{})

	detail, err := json.Marshal(map[string]interface{}{
		"eventName":    "DescribeInstances",
		"userIdentity": map[string]interface{}{"userName": "alice"},
	})
	require.NoError(t, err)

	result, err := d.Handle(context.Background(), &models.DispatchRequest{
		DetailType: "AWS API Call via CloudTrail",
		Detail:     detail,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ModeDetector, result.Mode)
	assert.Equal(t, models.DispatchNoMatch, result.Status)
	assert.Equal(t, "DescribeInstances", result.EventName)
	assert.Empty(t, st.incidents)
}

func TestHandleMalformedDetailReturnsErrorResult(t *testing.T) {
	st := &mockStore{}
	d := newTestDispatcher(st, &mockChannel{}, &mockSink{})

	result, err := d.Handle(context.Background(), &models.DispatchRequest{
		DetailType: "AWS API Call via CloudTrail",
		Detail:     json.RawMessage(`{"eventName"`),
	})
	require.NoError(t, err)

	assert.Equal(t, models.DispatchError, result.Status)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, st.incidents)
}
