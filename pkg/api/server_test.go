package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/entity/memory"
	"github.com/marmos91/dittoio/pkg/handler"
	"github.com/marmos91/dittoio/pkg/iomanager"
	"github.com/marmos91/dittoio/pkg/transfer"
)

type toggle struct{ on bool }

func (t *toggle) Async() bool      { return t.on }
func (t *toggle) SetAsync(on bool) { t.on = on }

func TestAPIServer_Lifecycle(t *testing.T) {
	enabled := true
	cfg := APIConfig{
		Enabled:      &enabled,
		Port:         18181,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
	}
	server := NewServer(cfg, Deps{
		Tracker:   transfer.NewTracker(),
		Entities:  memory.NewScene(),
		Handlers:  handler.NewRegistry(),
		Publisher: iomanager.New(),
		Toggle:    &toggle{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- server.Start(ctx) }()

	url := fmt.Sprintf("http://localhost:%d/health", cfg.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, cfg.Port, server.Port())

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Stop after shutdown is a no-op.
	assert.NoError(t, server.Stop(context.Background()))
}

func TestAPIConfig_Defaults(t *testing.T) {
	var cfg APIConfig
	assert.True(t, cfg.IsEnabled())

	cfg.ApplyDefaults()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.WriteTimeout)

	off := false
	cfg.Enabled = &off
	assert.False(t, cfg.IsEnabled())
}
