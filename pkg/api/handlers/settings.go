package handlers

import (
	"net/http"
)

// AsyncToggle is the runtime execution-mode switch.
type AsyncToggle interface {
	Async() bool
	SetAsync(on bool)
}

// SettingsHandler exposes runtime settings.
type SettingsHandler struct {
	toggle AsyncToggle
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(toggle AsyncToggle) *SettingsHandler {
	return &SettingsHandler{toggle: toggle}
}

// AsyncSetting is the body of the async settings endpoints.
type AsyncSetting struct {
	Enabled *bool `json:"enabled"`
}

// GetAsync handles GET /api/v1/settings/async.
func (h *SettingsHandler) GetAsync(w http.ResponseWriter, r *http.Request) {
	on := h.toggle.Async()
	WriteJSONOK(w, AsyncSetting{Enabled: &on})
}

// PutAsync handles PUT /api/v1/settings/async.
// The change applies to requests ingested afterwards.
func (h *SettingsHandler) PutAsync(w http.ResponseWriter, r *http.Request) {
	var req AsyncSetting
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		BadRequest(w, "enabled is required")
		return
	}

	h.toggle.SetAsync(*req.Enabled)
	on := h.toggle.Async()
	WriteJSONOK(w, AsyncSetting{Enabled: &on})
}
