package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/transfer"
)

func TestListTransfers_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		assert.Equal(t, "E1", r.URL.Query().Get("entity"))
		assert.Equal(t, "failed", r.URL.Query().Get("status"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("direction"))
		_ = json.NewEncoder(w).Encode([]transfer.Record{{
			ID:        "t1",
			EntityID:  "E1",
			Direction: transfer.Download,
			Status:    transfer.Failed,
			Error:     "boom",
		}})
	}))
	defer server.Close()

	records, err := New(server.URL).ListTransfers(TransferFilter{EntityID: "E1", Status: "failed", Limit: 5})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, transfer.Failed, records[0].Status)
	assert.Equal(t, "boom", records[0].Error)
}

func TestGetTransfer_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"about:blank","title":"Not Found","status":404,"detail":"Transfer not found"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).GetTransfer("nope")
	assert.True(t, IsNotFound(err))
}

func TestEntities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.EscapedPath()
		switch {
		case r.Method == http.MethodPost && path == "/api/v1/entities":
			var req CreateEntityRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(Entity{ID: req.ID, Locator: req.Locator, Handler: "http"})
		case r.Method == http.MethodPost && path == "/api/v1/entities/a%2Fb/read":
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(RequestAccepted{EntityID: "a/b", Event: "remote_read_requested", Listeners: 1})
		case r.Method == http.MethodDelete && path == "/api/v1/entities/E1":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	c := New(server.URL)

	e, err := c.CreateEntity("E1", "http://host/a.vtk")
	require.NoError(t, err)
	assert.Equal(t, "http", e.Handler)

	accepted, err := c.RequestRead("a/b")
	require.NoError(t, err)
	assert.Equal(t, 1, accepted.Listeners)

	require.NoError(t, c.DeleteEntity("E1"))
}

func TestAsyncSetting(t *testing.T) {
	state := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			var body asyncSetting
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			state = *body.Enabled
		}
		_ = json.NewEncoder(w).Encode(asyncSetting{Enabled: &state})
	}))
	defer server.Close()

	c := New(server.URL)
	on, err := c.GetAsync()
	require.NoError(t, err)
	assert.False(t, on)

	on, err = c.SetAsync(true)
	require.NoError(t, err)
	assert.True(t, on)
}
