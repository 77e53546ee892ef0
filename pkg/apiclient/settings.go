package apiclient

type asyncSetting struct {
	Enabled *bool `json:"enabled"`
}

// GetAsync reports whether the server runs transfers asynchronously.
func (c *Client) GetAsync() (bool, error) {
	var out asyncSetting
	if err := c.get("/api/v1/settings/async", &out); err != nil {
		return false, err
	}
	return out.Enabled != nil && *out.Enabled, nil
}

// SetAsync switches the execution mode and returns the applied value.
func (c *Client) SetAsync(on bool) (bool, error) {
	var out asyncSetting
	if err := c.put("/api/v1/settings/async", asyncSetting{Enabled: &on}, &out); err != nil {
		return false, err
	}
	return out.Enabled != nil && *out.Enabled, nil
}
