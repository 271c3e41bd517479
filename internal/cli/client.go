package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// Client talks to a running sentinel server over its HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.client.Do(req)
}

// DispatchEvent posts a simulator or live-event request and returns the
// dispatch result along with the HTTP status code.
func (c *Client) DispatchEvent(req *models.DispatchRequest) (*models.DispatchResult, int, error) {
	resp, err := c.doRequest("POST", "/api/v1/events", req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var result models.DispatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, resp.StatusCode, nil
}

// GetIncident fetches a stored incident by ID.
func (c *Client) GetIncident(id string) (*models.Incident, error) {
	resp, err := c.doRequest("GET", "/api/v1/incidents/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("incident %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var inc models.Incident
	if err := json.NewDecoder(resp.Body).Decode(&inc); err != nil {
		return nil, fmt.Errorf("failed to decode incident: %w", err)
	}
	return &inc, nil
}

// RunRemediation triggers one remediation pass on the server.
func (c *Client) RunRemediation() (*models.RemediationSummary, error) {
	resp, err := c.doRequest("POST", "/api/v1/remediation/run", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var summary models.RemediationSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}
