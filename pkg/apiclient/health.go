package apiclient

import (
	"encoding/json"
	"errors"
)

// Component is the readiness of one server component.
type Component struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type healthResponse struct {
	Status string      `json:"status"`
	Data   []Component `json:"data"`
	Error  string      `json:"error,omitempty"`
}

// Health returns nil when the server answers its liveness probe.
func (c *Client) Health() error {
	return c.get("/health", nil)
}

// Ready returns the readiness of each component. An unready server still
// reports its components, together with an *APIError.
func (c *Client) Ready() ([]Component, error) {
	var out healthResponse
	err := c.get("/health/ready", &out)
	if err == nil {
		return out.Data, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsUnavailable() {
		// Health bodies are not problems; do keeps them verbatim in Detail.
		if json.Unmarshal([]byte(apiErr.Detail), &out) == nil {
			return out.Data, err
		}
	}
	return nil, err
}
