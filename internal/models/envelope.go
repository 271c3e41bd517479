package models

import (
	"bytes"
	"encoding/json"
)

// CloudTrailDetail is the nested payload of a live audit-event envelope.
// Only the fields the detector inspects are modeled; everything else is
// ignored on unmarshal.
type CloudTrailDetail struct {
	EventName           string                 `json:"eventName"`
	EventSource         string                 `json:"eventSource"`
	ErrorCode           string                 `json:"errorCode"`
	ErrorMessage        string                 `json:"errorMessage"`
	SourceIPAddress     string                 `json:"sourceIPAddress"`
	AdditionalEventData map[string]interface{} `json:"additionalEventData"`
	RequestParameters   map[string]interface{} `json:"requestParameters"`
	UserIdentity        UserIdentity           `json:"userIdentity"`
}

// UserIdentity describes the actor behind an audit event.
type UserIdentity struct {
	Type           string          `json:"type"`
	UserName       string          `json:"userName"`
	PrincipalID    string          `json:"principalId"`
	ARN            string          `json:"arn"`
	SessionContext *SessionContext `json:"sessionContext"`
}

// SessionContext carries session attributes for assumed-role and
// MFA-authenticated sessions.
type SessionContext struct {
	Attributes SessionAttributes `json:"attributes"`
}

// SessionAttributes holds string-typed session flags as CloudTrail emits
// them ("true"/"false", not booleans).
type SessionAttributes struct {
	MFAAuthenticated string `json:"mfaAuthenticated"`
	CreationDate     string `json:"creationDate"`
}

// DispatchRequest is the union of the two request shapes the dispatcher
// accepts: a live audit-event envelope (detail-type + detail) or a
// synthetic simulator request (scenario/user/source_ip/metadata).
type DispatchRequest struct {
	// Live envelope fields.
	DetailType string          `json:"detail-type,omitempty"`
	Source     string          `json:"source,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`

	// Simulator fields.
	Scenario string                 `json:"scenario,omitempty"`
	User     string                 `json:"user,omitempty"`
	SourceIP string                 `json:"source_ip,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IsLiveEvent reports whether the request qualifies as a live audit event:
// a non-empty detail-type and a structured (object-shaped) detail payload.
// Anything else is treated as a simulator request.
func (r *DispatchRequest) IsLiveEvent() bool {
	if r.DetailType == "" {
		return false
	}
	trimmed := bytes.TrimSpace(r.Detail)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ParseDetail unmarshals the raw detail payload. Callers should check
// IsLiveEvent first; a non-object detail returns an error.
func (r *DispatchRequest) ParseDetail() (*CloudTrailDetail, error) {
	var detail CloudTrailDetail
	if err := json.Unmarshal(r.Detail, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
