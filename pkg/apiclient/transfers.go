package apiclient

import (
	"net/url"
	"strconv"

	"github.com/marmos91/dittoio/pkg/transfer"
)

// TransferFilter narrows ListTransfers. Empty fields match everything.
type TransferFilter struct {
	EntityID  string
	Status    string
	Direction string
	Limit     int
}

func (f TransferFilter) query() string {
	q := url.Values{}
	if f.EntityID != "" {
		q.Set("entity", f.EntityID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Direction != "" {
		q.Set("direction", f.Direction)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListTransfers returns transfer records, oldest first.
func (c *Client) ListTransfers(f TransferFilter) ([]transfer.Record, error) {
	return listResources[transfer.Record](c, "/api/v1/transfers"+f.query())
}

// GetTransfer returns a single transfer record.
func (c *Client) GetTransfer(id string) (*transfer.Record, error) {
	return getResource[transfer.Record](c, "/api/v1/transfers/"+url.PathEscape(id))
}

// TransferSummary returns record counts keyed by status name.
func (c *Client) TransferSummary() (map[string]int, error) {
	var out map[string]int
	if err := c.get("/api/v1/transfers/summary", &out); err != nil {
		return nil, err
	}
	return out, nil
}
