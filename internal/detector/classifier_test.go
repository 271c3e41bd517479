package detector

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

func newFixedClassifier(t *testing.T) *Classifier {
	t.Helper()
	c := New("test")
	c.now = func() time.Time {
		return time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	}
	return c
}

func liveRequest(t *testing.T, detail map[string]interface{}) *models.DispatchRequest {
	t.Helper()
	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	return &models.DispatchRequest{
		DetailType: "AWS Console Sign In via CloudTrail",
		Source:     "aws.signin",
		Detail:     raw,
	}
}

func TestClassifyConsoleLoginWithError(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName":       "ConsoleLogin",
		"eventSource":     "signin.amazonaws.com",
		"errorMessage":    "Failed authentication",
		"sourceIPAddress": "203.0.113.7",
		"userIdentity":    map[string]interface{}{"userName": "alice"},
		"additionalEventData": map[string]interface{}{
			"MFAUsed": "Yes",
		},
	})

	inc, noMatch, err := c.Classify(req)
	require.NoError(t, err)
	require.Nil(t, noMatch)
	require.NotNil(t, inc)

	assert.Equal(t, models.ScenarioMFAAuthFailure, inc.Scenario)
	assert.Equal(t, models.FailureAuthenticationFailed, inc.FailureType)
	assert.Equal(t, models.SeverityMedium, inc.Severity)
	assert.Equal(t, models.SourceCloudTrail, inc.DetectionSource)
	assert.Equal(t, "alice", inc.User)
	assert.Equal(t, "203.0.113.7", inc.SourceIP)
	assert.False(t, inc.AutoRemediation)
}

func TestClassifyErrorMessageTakesPriorityOverMFAUsed(t *testing.T) {
	c := newFixedClassifier(t)

	// Both patterns present: the error message wins and the incident is a
	// MEDIUM authentication failure, not a HIGH enforcement gap.
	req := liveRequest(t, map[string]interface{}{
		"eventName":    "ConsoleLogin",
		"errorMessage": "Failed authentication",
		"userIdentity": map[string]interface{}{"userName": "alice"},
		"additionalEventData": map[string]interface{}{
			"MFAUsed": "No",
		},
	})

	inc, _, err := c.Classify(req)
	require.NoError(t, err)
	require.NotNil(t, inc)
	assert.Equal(t, models.FailureAuthenticationFailed, inc.FailureType)
	assert.Equal(t, models.SeverityMedium, inc.Severity)
}

func TestClassifyMFANotEnforced(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName":       "ConsoleLogin",
		"sourceIPAddress": "198.51.100.4",
		"userIdentity":    map[string]interface{}{"userName": "bob"},
		"additionalEventData": map[string]interface{}{
			"MFAUsed": "No",
		},
	})

	inc, noMatch, err := c.Classify(req)
	require.NoError(t, err)
	require.Nil(t, noMatch)
	require.NotNil(t, inc)

	assert.Equal(t, models.ScenarioMFAAuthFailure, inc.Scenario)
	assert.Equal(t, models.FailureMFANotEnforced, inc.FailureType)
	assert.Equal(t, models.SeverityHigh, inc.Severity)
	assert.Contains(t, inc.Description, "without MFA")
}

func TestClassifySuccessfulLoginWithMFAIsNoMatch(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName":    "ConsoleLogin",
		"userIdentity": map[string]interface{}{"userName": "alice"},
		"additionalEventData": map[string]interface{}{
			"MFAUsed": "Yes",
		},
	})

	inc, noMatch, err := c.Classify(req)
	require.NoError(t, err)
	assert.Nil(t, inc)
	require.NotNil(t, noMatch)
	assert.Equal(t, "ConsoleLogin", noMatch.EventName)
}

func TestClassifyMissingAdditionalEventDataDefaultsToMFAUsed(t *testing.T) {
	c := newFixedClassifier(t)

	// No additionalEventData at all: MFAUsed defaults to "Yes", so a clean
	// ConsoleLogin is expected behavior.
	req := liveRequest(t, map[string]interface{}{
		"eventName":    "ConsoleLogin",
		"userIdentity": map[string]interface{}{"userName": "alice"},
	})

	inc, noMatch, err := c.Classify(req)
	require.NoError(t, err)
	assert.Nil(t, inc)
	require.NotNil(t, noMatch)
}

func TestClassifyPolicyMismatch(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName":       "GetObject",
		"eventSource":     "s3.amazonaws.com",
		"errorCode":       "AccessDenied",
		"errorMessage":    "Access Denied",
		"sourceIPAddress": "192.0.2.200",
		"userIdentity": map[string]interface{}{
			"userName": "finance-analyst-01",
			"sessionContext": map[string]interface{}{
				"attributes": map[string]interface{}{
					"mfaAuthenticated": "true",
				},
			},
		},
		"requestParameters": map[string]interface{}{
			"bucketName": "finance-reports",
		},
	})

	inc, noMatch, err := c.Classify(req)
	require.NoError(t, err)
	require.Nil(t, noMatch)
	require.NotNil(t, inc)

	assert.Equal(t, models.ScenarioPolicyMismatch, inc.Scenario)
	assert.Equal(t, models.SeverityMedium, inc.Severity)
	assert.Equal(t, "finance-analyst-01", inc.User)
	assert.Equal(t, "GetObject", inc.DetectionSignal["denied_action"])
	assert.Equal(t, "AccessDenied", inc.DetectionSignal["error_code"])

	params, ok := inc.DetectionSignal["request_parameters"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "finance-reports", params["bucketName"])
}

func TestClassifyUnauthorizedAccessMatchesPolicyMismatch(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName": "DescribeInstances",
		"errorCode": "UnauthorizedAccess",
		"userIdentity": map[string]interface{}{
			"userName": "ops-user",
			"sessionContext": map[string]interface{}{
				"attributes": map[string]interface{}{
					"mfaAuthenticated": "true",
				},
			},
		},
	})

	inc, _, err := c.Classify(req)
	require.NoError(t, err)
	require.NotNil(t, inc)
	assert.Equal(t, models.ScenarioPolicyMismatch, inc.Scenario)
}

func TestClassifyAccessDeniedWithoutMFASessionIsNoMatch(t *testing.T) {
	c := newFixedClassifier(t)

	// Access denied without an MFA-authenticated session is an ordinary
	// authorization failure, not an MFA policy finding.
	req := liveRequest(t, map[string]interface{}{
		"eventName": "GetObject",
		"errorCode": "AccessDenied",
		"userIdentity": map[string]interface{}{
			"userName": "alice",
			"sessionContext": map[string]interface{}{
				"attributes": map[string]interface{}{
					"mfaAuthenticated": "false",
				},
			},
		},
	})

	inc, noMatch, err := c.Classify(req)
	require.NoError(t, err)
	assert.Nil(t, inc)
	require.NotNil(t, noMatch)
	assert.Equal(t, "GetObject", noMatch.EventName)
}

func TestClassifyUserFallsBackToPrincipalID(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName":    "ConsoleLogin",
		"errorMessage": "Failed authentication",
		"userIdentity": map[string]interface{}{"principalId": "AIDAEXAMPLE123"},
	})

	inc, _, err := c.Classify(req)
	require.NoError(t, err)
	require.NotNil(t, inc)
	assert.Equal(t, "AIDAEXAMPLE123", inc.User)
}

func TestClassifyDefaultsUnknownUserAndIP(t *testing.T) {
	c := newFixedClassifier(t)

	req := liveRequest(t, map[string]interface{}{
		"eventName":    "ConsoleLogin",
		"errorMessage": "Failed authentication",
	})

	inc, _, err := c.Classify(req)
	require.NoError(t, err)
	require.NotNil(t, inc)
	assert.Equal(t, "unknown", inc.User)
	assert.Equal(t, "unknown", inc.SourceIP)
}

func TestClassifyMalformedDetail(t *testing.T) {
	c := newFixedClassifier(t)

	req := &models.DispatchRequest{
		DetailType: "AWS API Call via CloudTrail",
		Detail:     json.RawMessage(`{"eventName": `),
	}

	inc, noMatch, err := c.Classify(req)
	assert.Error(t, err)
	assert.Nil(t, inc)
	assert.Nil(t, noMatch)
}
